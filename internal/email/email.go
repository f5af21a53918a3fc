// Package email delivers order receipts over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"github.com/comanda-pos/api/internal/service"
)

// Mailer sends receipt emails. When no SMTP host is configured it runs in
// dev mode: emails are logged instead of sent, and reported as delivered.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewMailer creates a Mailer from SMTP settings.
func NewMailer(host, port, username, password, from string) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<html>
<body style="font-family: monospace; max-width: 400px; margin: 0 auto;">
  <h2 style="text-align: center;">{{.RestaurantName}}</h2>
  <p style="text-align: center;">Order #{{.OrderNumber}}<br>{{.Date.Format "02 Jan 2006 15:04"}}</p>
  <hr>
  <table width="100%">
    {{range .Items}}
    <tr>
      <td>{{.Quantity}}x {{.ProductName}}</td>
      <td align="right">{{.Subtotal.StringFixed 2}}</td>
    </tr>
    {{if .Notes}}<tr><td colspan="2" style="font-size: smaller;">&nbsp;&nbsp;{{.Notes}}</td></tr>{{end}}
    {{end}}
  </table>
  <hr>
  <table width="100%">
    <tr><td><strong>Total</strong></td><td align="right"><strong>{{.TotalAmount.StringFixed 2}}</strong></td></tr>
    <tr><td>Payment</td><td align="right">{{.PaymentMethod}}</td></tr>
  </table>
  <p style="text-align: center;">Thank you for your order!</p>
</body>
</html>`))

// SendReceiptEmail renders and delivers a receipt to the given address.
// The bool reports whether the email was (considered) delivered.
func (m *Mailer) SendReceiptEmail(ctx context.Context, to string, receipt service.Receipt) (bool, error) {
	var body bytes.Buffer
	if err := receiptTmpl.Execute(&body, receipt); err != nil {
		return false, fmt.Errorf("render receipt: %w", err)
	}

	if m.Host == "" {
		log.Printf("email (dev mode): receipt for order #%d to %s", receipt.OrderNumber, to)
		return true, nil
	}

	subject := fmt.Sprintf("Your receipt from %s - Order #%d", receipt.RestaurantName, receipt.OrderNumber)
	raw := buildRaw(m.From, to, subject, body.String())

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.From, []string{to}, raw)
	}()
	select {
	case err := <-done:
		if err != nil {
			return false, fmt.Errorf("send mail: %w", err)
		}
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func buildRaw(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
