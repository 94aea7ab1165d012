package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dgtwins/ms-auth/internal/server/config"
	"github.com/dgtwins/ms-auth/internal/server/models"
)

// SMTPNotifier sends recovery secrets as plain-text email over SMTP.
// Port 587 negotiates STARTTLS, port 465 uses implicit TLS.
type SMTPNotifier struct {
	host      string
	port      int
	user      string
	password  string
	fromName  string
	fromEmail string
	timeout   time.Duration
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		user:      cfg.SMTPUser,
		password:  strings.TrimSpace(cfg.SMTPPassword),
		fromName:  cfg.SMTPFromName,
		fromEmail: cfg.SMTPFromEmail,
		timeout:   cfg.NotifyTimeout,
	}
}

func (n *SMTPNotifier) SendRecoverySecret(ctx context.Context, toEmail, userName string, secret models.RecoverySecret) error {
	if n.user == "" || n.password == "" {
		return fmt.Errorf("smtp credentials not configured")
	}

	msg := n.buildMessage(toEmail, userName, secret)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	addr := net.JoinHostPort(n.host, strconv.Itoa(n.port))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	// Deadline bounds the whole SMTP conversation, not just the dial.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if n.port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: n.host})
	}

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if n.port == 587 {
		if err := client.StartTLS(&tls.Config{ServerName: n.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", n.user, n.password, n.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(n.fromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(toEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return client.Quit()
}

func (n *SMTPNotifier) buildMessage(toEmail, userName string, secret models.RecoverySecret) string {
	if userName == "" {
		userName = "Usuario"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", n.fromName, n.fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", toEmail)
	fmt.Fprintf(&b, "Subject: Restablecimiento de contrasena\r\n")
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Hola %s,\r\n\r\n", userName)
	fmt.Fprintf(&b, "Has solicitado restablecer tu contrasena.\r\n\r\n")
	switch secret.Kind {
	case models.SecretCode:
		fmt.Fprintf(&b, "Tu codigo de verificacion es: %s\r\n\r\n", secret.Value)
		fmt.Fprintf(&b, "Este codigo es valido por 10 minutos.\r\n")
	case models.SecretToken:
		fmt.Fprintf(&b, "Tu token de restablecimiento es:\r\n%s\r\n\r\n", secret.Value)
		fmt.Fprintf(&b, "Este token es valido por 1 hora.\r\n")
	}
	fmt.Fprintf(&b, "\r\nSi no solicitaste este restablecimiento, ignora este mensaje.\r\n")

	return b.String()
}
