package jobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"path"

	"github.com/hibiken/asynq"
)

// BlobStore reads stored objects for attachments.
type BlobStore interface {
	Get(key string) (io.ReadCloser, error)
}

// Mailer delivers transactional mail over SMTP.
type Mailer struct {
	Host   string
	Port   int
	From   string
	Store  BlobStore
	Logger *slog.Logger

	// send is swappable in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewMailer constructs a Mailer.
func NewMailer(host string, port int, from string, store BlobStore, logger *slog.Logger) *Mailer {
	return &Mailer{
		Host:   host,
		Port:   port,
		From:   from,
		Store:  store,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// HandleSendEmail processes mail:send tasks.
func (m *Mailer) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	msg, err := m.buildMessage(payload)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	if err := m.send(addr, m.From, []string{payload.To}, msg); err != nil {
		m.Logger.Error("mail send failed", "to", payload.To, "subject", payload.Subject, "error", err)
		return err
	}
	m.Logger.Info("mail sent", "to", payload.To, "subject", payload.Subject)
	return nil
}

func (m *Mailer) buildMessage(payload SendEmailPayload) ([]byte, error) {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "From: %s\r\n", m.From)
	fmt.Fprintf(buf, "To: %s\r\n", payload.To)
	fmt.Fprintf(buf, "Subject: %s\r\n", payload.Subject)
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")

	if payload.AttachmentKey == "" {
		fmt.Fprintf(buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(payload.Body)
		return buf.Bytes(), nil
	}

	blob, err := m.Store.Get(payload.AttachmentKey)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", payload.AttachmentKey, err)
	}
	defer blob.Close()
	content, err := io.ReadAll(blob)
	if err != nil {
		return nil, err
	}

	writer := multipart.NewWriter(buf)
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, payload.Body); err != nil {
		return nil, err
	}

	name := path.Base(payload.AttachmentKey)
	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", "application/pdf")
	fileHeader.Set("Content-Transfer-Encoding", "base64")
	fileHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	part, err = writer.CreatePart(fileHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, base64.StdEncoding.EncodeToString(content)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
