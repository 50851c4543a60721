// Package mail delivers OTP codes by email.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/pkg/logging"
)

// Sender delivers a code to an address. Implementations must not log the code.
type Sender interface {
	SendOTP(ctx context.Context, to, code string, purpose domain.Purpose) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ValidFor time.Duration
	Retries  uint64
	Timeout  time.Duration
}

type deliverFunc func(ctx context.Context, msgs ...*gomail.Msg) error

// SMTPSender sends multipart OTP emails, retrying transient failures. Port
// 465 uses implicit TLS; any other port upgrades with STARTTLS when offered.
type SMTPSender struct {
	cfg     SMTPConfig
	deliver deliverFunc
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(timeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{cfg: cfg, deliver: client.DialAndSendWithContext}, nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, to, code string, purpose domain.Purpose) error {
	l := logging.FromContext(ctx).With("svc", "mail.smtp", "to", to, "purpose", string(purpose))

	msg, err := RenderOTP(s.cfg.From, to, code, purpose, s.cfg.ValidFor)
	if err != nil {
		return err
	}

	b := retry.WithMaxRetries(s.cfg.Retries, retry.NewExponential(250*time.Millisecond))
	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := s.deliver(ctx, msg); err != nil {
			l.Warn("smtp_send_failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	l.Info("otp_email_sent", "attempts", attempt)
	return nil
}

// LogSender records that a code would have been mailed. The code itself is
// never written anywhere.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) SendOTP(ctx context.Context, to, _ string, purpose domain.Purpose) error {
	l := s.Log
	if l == nil {
		l = logging.FromContext(ctx)
	}
	l.Info("otp_email_suppressed", "to", to, "purpose", string(purpose), "subject", Subject(purpose))
	return nil
}
