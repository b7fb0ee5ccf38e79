package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Client handles email sending operations.
type Client struct {
	host        string
	port        string
	username    string
	password    string
	from        string
	secure      bool
	frontendURL string
	send        SendFunc
}

// NewClient creates a new email client.
func NewClient(host, port, username, password, from string, secure bool, frontendURL string) *Client {
	c := &Client{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		secure:      secure,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
	c.send = smtp.SendMail
	if secure {
		c.send = c.sendTLS
	}
	return c
}

// WithSendFunc replaces the transport. Used by tests.
func (c *Client) WithSendFunc(fn SendFunc) *Client {
	c.send = fn
	return c
}

// EmailOptions represents the options for sending an email.
type EmailOptions struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// SendEmail sends an email with HTML content.
func (c *Client) SendEmail(opts EmailOptions) error {
	wrappedHTML := wrapHTMLTemplate(opts.HTML)
	message := c.buildMessage(opts.To, opts.Subject, wrappedHTML, opts.Text)

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}
	addr := net.JoinHostPort(c.host, c.port)

	if err := c.send(addr, auth, c.fromAddress(), []string{opts.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// sendTLS delivers over an implicitly encrypted connection (port 465).
func (c *Client) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, &tls.Config{ServerName: c.host})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background: #f9f9f9;">
    <div style="padding: 32px;">
        <div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px #eee; padding: 32px;">
            <div style="text-align: center; margin-bottom: 24px;">
                <h2 style="color: #2a7ae2; margin: 0;">Portal</h2>
            </div>
            <div style="font-size: 16px; color: #333;">
                {{.Content}}
            </div>
            <div style="margin-top: 32px; text-align: center; color: #aaa; font-size: 12px;">
                &copy; {{.Year}} Portal. All rights reserved.
            </div>
        </div>
    </div>
</body>
</html>
`))

var welcomeBody = template.Must(template.New("welcome").Parse(`
<p>Hello,</p>
<p>Your company <strong>{{.Name}}</strong> (NIP {{.TaxID}}) has been registered.</p>
<p>Your trial period starts today. Sign in to finish setting up your account:</p>
<p style="text-align: center; margin: 24px 0;">
    <a href="{{.URL}}" style="background: #2a7ae2; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">
        Open the portal
    </a>
</p>
<p>If you did not register this company, please contact our support team.</p>
`))

func wrapHTMLTemplate(content string) string {
	var buf bytes.Buffer
	data := map[string]interface{}{
		"Content": template.HTML(content),
		"Year":    time.Now().Year(),
	}
	if err := layout.Execute(&buf, data); err != nil {
		return content
	}
	return buf.String()
}

func (c *Client) fromAddress() string {
	if c.from == "" {
		return "noreply@example.com"
	}
	return c.from
}

// buildMessage constructs the email message with headers.
func (c *Client) buildMessage(to, subject, html, text string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", c.fromAddress())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"boundary42\"\r\n\r\n")

	if text != "" {
		b.WriteString("--boundary42\r\n")
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(text + "\r\n")
	}

	b.WriteString("--boundary42\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html + "\r\n")
	b.WriteString("--boundary42--\r\n")

	return b.String()
}

// SendCompanyWelcome sends the onboarding email for a self-registered company.
// taxID is expected in display form.
func (c *Client) SendCompanyWelcome(to, companyName, taxID string) error {
	var body bytes.Buffer
	err := welcomeBody.Execute(&body, map[string]string{
		"Name":  companyName,
		"TaxID": taxID,
		"URL":   c.frontendURL + "/login",
	})
	if err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}

	return c.SendEmail(EmailOptions{
		To:      to,
		Subject: "Welcome to Portal",
		HTML:    body.String(),
		Text:    fmt.Sprintf("Your company %s (NIP %s) has been registered. Sign in at %s/login", companyName, taxID, c.frontendURL),
	})
}
