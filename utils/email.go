package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/resendlabs/resend-go"
	"github.com/rs/zerolog/log"

	"nimblevision/config"
)

// EmailMessage is a single outbound mail
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// ErrMailDisabled is returned when no mail provider is configured
var ErrMailDisabled = errors.New("mail delivery disabled")

// Mailer delivers mail; implementations must honor ctx cancellation
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Mail is the process-wide mailer, replaced by InitMailer or by tests
var Mail Mailer = NoopMailer{}

// InitMailer selects the mail backend from configuration
func InitMailer(cfg config.Config) error {
	switch cfg.MailProvider {
	case "smtp":
		if cfg.SMTPHost == "" {
			log.Warn().Msg("SMTP_HOST not set, outbound mail disabled")
			Mail = NoopMailer{}
			return nil
		}
		Mail = &SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPUser,
			FromName: cfg.SMTPFromName,
		}
	case "resend":
		if cfg.ResendAPIKey == "" {
			return errors.New("RESEND_API_KEY environment variable not set")
		}
		from := cfg.FromEmail
		if from == "" {
			from = "noreply@nimblevision.in"
		}
		Mail = NewResendMailer(cfg.ResendAPIKey, fmt.Sprintf("%s <%s>", cfg.SMTPFromName, from))
	case "none", "":
		Mail = NoopMailer{}
	default:
		return fmt.Errorf("unsupported mail provider: %s", cfg.MailProvider)
	}
	log.Info().Str("provider", cfg.MailProvider).Msg("Mailer configured")
	return nil
}

// NoopMailer is used when no mail provider is configured
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, EmailMessage) error { return ErrMailDisabled }

// ResendMailer sends through the Resend HTTP API
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg EmailMessage) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.client.Emails.Send(params)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SMTPMailer sends through an SMTP relay, using implicit TLS on port 465
// and STARTTLS elsewhere when the server offers it
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	addr := net.JoinHostPort(m.Host, fmt.Sprint(m.Port))
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	tlsConfig := &tls.Config{ServerName: m.Host}
	if m.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.Username, m.Password, m.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.From); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.build(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *SMTPMailer) build(msg EmailMessage) []byte {
	boundary := fmt.Sprintf("nv-%d", time.Now().UnixNano())
	var b strings.Builder
	fmt.Fprintf(&b, "From: %q <%s>\r\n", m.FromName, m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// WelcomeEmail builds the credentials mail sent to a newly created account
func WelcomeEmail(to, name, password, deviceID string) EmailMessage {
	n, e, p, d := html.EscapeString(name), html.EscapeString(to), html.EscapeString(password), html.EscapeString(deviceID)
	return EmailMessage{
		To:      to,
		Subject: "Welcome to NimbleVision - Your Account Credentials",
		HTML: fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Welcome to NimbleVision, %s!</h2>
				<p>Your account has been created. Use these credentials to sign in:</p>
				<div style="background-color: #f4f4f4; padding: 20px; margin: 20px 0;">
					<p><strong>Email:</strong> %s</p>
					<p><strong>Password:</strong> <code>%s</code></p>
					<p><strong>Device ID:</strong> %s</p>
				</div>
				<p style="color: #666;">Please change your password after your first login.</p>
				<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
				<p style="color: #999; font-size: 12px;">NimbleVision IoT Portal</p>
			</div>
		`, n, e, p, d),
		Text: fmt.Sprintf("Welcome to NimbleVision, %s!\n\nEmail: %s\nPassword: %s\nDevice ID: %s\n\nPlease change your password after your first login.\n",
			name, to, password, deviceID),
	}
}

// PasswordResetEmail builds the OTP mail for the forgot-password flow
func PasswordResetEmail(to, name, otp string, validFor time.Duration) EmailMessage {
	minutes := int(validFor.Minutes())
	return EmailMessage{
		To:      to,
		Subject: "NimbleVision Password Reset Code",
		HTML: fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Password reset</h2>
				<p>Hi %s, your password reset code is:</p>
				<div style="background-color: #f4f4f4; padding: 20px; text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 8px; margin: 20px 0;">
					%s
				</div>
				<p style="color: #666;">This code will expire in %d minutes.</p>
				<p style="color: #666;">If you didn't request this code, please ignore this email.</p>
			</div>
		`, html.EscapeString(name), otp, minutes),
		Text: fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in %d minutes.\n", name, otp, minutes),
	}
}

// SendMail delivers msg through Mail, bounded by MAIL_TIMEOUT
func SendMail(ctx context.Context, msg EmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, config.GetMailTimeout())
	defer cancel()

	if err := Mail.Send(ctx, msg); err != nil {
		if errors.Is(err, ErrMailDisabled) {
			log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Mail delivery disabled, message dropped")
			return err
		}
		log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Failed to send email")
		return err
	}
	return nil
}
