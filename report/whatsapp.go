package report

import (
	"net/url"
	"strings"
)

// WhatsAppShareLink builds a wa.me deep link with a prefilled message.
// Phone may carry spaces, dashes or a leading plus; only digits survive.
// With an empty phone the link opens the recipient picker.
func WhatsAppShareLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	link := "https://wa.me/" + digits
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}
