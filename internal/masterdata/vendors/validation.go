package vendors

import (
	"errors"
	"regexp"
	"strings"
)

// GSTIN is 15 characters: state code, PAN, entity number, Z, checksum.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

func (s *Service) validate(v Vendor) error {
	if strings.TrimSpace(v.Code) == "" {
		return errors.New("vendor code is required")
	}
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("vendor name is required")
	}
	if v.GSTNumber != "" && !gstinPattern.MatchString(v.GSTNumber) {
		return errors.New("vendor GST number is not a valid GSTIN")
	}
	return nil
}
