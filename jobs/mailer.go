package jobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"github.com/datapulse/datapulse/internal/analytics/export"
)

// SMTPMailer delivers reports through a plain SMTP relay (Mailpit in
// development).
type SMTPMailer struct {
	Addr string
	From string
}

// Send builds a multipart message with the CSV attached and submits it.
func (m *SMTPMailer) Send(ctx context.Context, to, subject string, csvAttachment []byte) error {
	if m == nil || m.Addr == "" {
		return fmt.Errorf("mailer not configured")
	}
	msg, err := buildMessage(m.From, to, subject, csvAttachment)
	if err != nil {
		return err
	}
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, msg)
}

func buildMessage(from, to, subject string, attachment []byte) ([]byte, error) {
	const boundary = "datapulse-report"

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "From: %s\r\n", from)
	fmt.Fprintf(buf, "To: %s\r\n", to)
	fmt.Fprintf(buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString("Your monthly sales summary is attached.\r\n\r\n")

	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: text/csv; name=%q\r\n", export.MonthlyCSVFilename)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", export.MonthlyCSVFilename)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	fmt.Fprintf(buf, "\r\n--%s--\r\n", boundary)

	return buf.Bytes(), nil
}
