package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/config"
)

const resendEndpoint = "https://api.resend.com/emails"

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset your Bill Optimizer password. The link below is valid for a limited time and can be used once.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not ask for this, you can ignore this email.</p>`))

// Service sends transactional email through the configured provider.
type Service struct {
	cfg    config.EmailConfig
	log    *zap.Logger
	client *http.Client

	// overridable in tests
	resendURL string
}

func NewService(cfg config.EmailConfig, log *zap.Logger) *Service {
	return &Service{
		cfg:       cfg,
		log:       log.Named("notification"),
		client:    &http.Client{Timeout: 15 * time.Second},
		resendURL: resendEndpoint,
	}
}

// SendPasswordReset mails a reset link to the account owner.
func (s *Service) SendPasswordReset(ctx context.Context, to, name, link string) error {
	if name == "" {
		name = "there"
	}
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, Link string }{name, link}); err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	return s.SendEmail(ctx, to, "Reset your Bill Optimizer password", body.String())
}

// SendEmail delivers an HTML message.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	switch s.cfg.Provider {
	case "", "log":
		s.log.Info("notification: email not sent, log provider",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", body))
		return nil
	case "smtp", "gmail":
		return s.sendSMTP(to, subject, body)
	case "sendgrid":
		return s.sendSendgrid(ctx, to, subject, body)
	case "resend":
		return s.sendResend(ctx, to, subject, body)
	default:
		return fmt.Errorf("unknown provider: %s", s.cfg.Provider)
	}
}

func (s *Service) from() string {
	if s.cfg.FromName == "" {
		return s.cfg.FromAddress
	}
	return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (s *Service) sendSMTP(to, subject, body string) error {
	cfg := s.cfg
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	msg := buildMessage(s.from(), to, subject, body)

	if cfg.Encryption == "none" {
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{to}, msg)
	}

	var (
		c   *smtp.Client
		err error
	)
	if cfg.Encryption == "ssl" {
		// Implicit TLS
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
	} else {
		// STARTTLS
		c, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				c.Close()
				return err
			}
		}
	}
	defer c.Quit()

	if cfg.Username != "" && cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func (s *Service) sendSendgrid(ctx context.Context, to, subject, body string) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromAddress)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, body)
	client := sendgrid.NewSendClient(s.cfg.APIKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *Service) sendResend(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    s.from(),
		"to":      to,
		"subject": subject,
		"html":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(b))
	}
	return nil
}
