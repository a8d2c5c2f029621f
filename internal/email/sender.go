package email

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"text/template"
)

type Sender interface {
	Send(to, subject, htmlBody string) error
}

type SMTPSender struct {
	host string
	port string
	from string
	auth smtp.Auth // nil for local dev (MailHog)
}

func NewSMTPSender() *SMTPSender {
	s := &SMTPSender{
		host: getenv("SMTP_HOST", "localhost"),
		port: getenv("SMTP_PORT", "1025"),
		from: getenv("SMTP_FROM", "orders@shortformfactory.com"),
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		s.auth = smtp.PlainAuth("", s.from, pass, s.host)
	}
	return s
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	msg := buildRFC822(s.from, to, subject, htmlBody)
	return smtp.SendMail(addr, s.auth, s.from, []string{to}, msg)
}

func buildRFC822(from, to, subject, html string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&buf, "\r\n%s\r\n", html)
	return buf.Bytes()
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

var settlementTpl = template.Must(template.New("settlement").Parse(`
<h2>Thanks for your payment!</h2>
<p>Order ID: <b>{{.OrderID}}</b></p>
<p>Capture ID: <b>{{.CaptureID}}</b></p>
<p>Amount: <b>{{.Currency}} {{.Amount}}</b></p>
{{if .Service}}<p>Service: <b>{{.Service}}</b>{{if .Tier}} ({{.Tier}}){{end}}</p>{{end}}
<p>We'll reach out shortly to collect your footage.</p>
`))

// RenderSettlementEmail builds the buyer-facing payment confirmation.
func RenderSettlementEmail(orderID, captureID, amount, currency, service, tier string) string {
	var buf bytes.Buffer
	_ = settlementTpl.Execute(&buf, map[string]any{
		"OrderID":   orderID,
		"CaptureID": captureID,
		"Amount":    amount,
		"Currency":  currency,
		"Service":   service,
		"Tier":      tier,
	})
	return buf.String()
}

// Fallback logger sender (useful for dev without SMTP)
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody string) error {
	log.Printf("[Email] to=%s subject=%q body=%q", to, subject, htmlBody)
	return nil
}
