package notify

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port. 587 uses STARTTLS via the standard
	// SendMail path; set ImplicitTLS for port 465 servers.
	Port int

	// Username authenticates against the server.
	Username string

	// Password authenticates against the server.
	Password string

	// From is the sender address. Defaults to Username.
	From string

	// ImplicitTLS dials a TLS connection directly instead of upgrading
	// with STARTTLS.
	ImplicitTLS bool
}

// SMTPSender implements Sender over an authenticated SMTP connection.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host cannot be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{config: cfg}, nil
}

// Send delivers a plaintext message to a single recipient.
func (s *SMTPSender) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	msg := s.buildMessage(to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	if s.config.ImplicitTLS {
		return s.sendImplicitTLS(addr, auth, to, msg)
	}

	// smtp.SendMail upgrades to TLS via STARTTLS when the server offers it.
	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// sendImplicitTLS delivers over a directly established TLS connection
// (port 465 style servers).
func (s *SMTPSender) sendImplicitTLS(addr string, auth smtp.Auth, to, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	return w.Close()
}

// buildMessage assembles the RFC 5322 message text.
func (s *SMTPSender) buildMessage(to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
