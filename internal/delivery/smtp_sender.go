package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers codes over SMTP, upgrading with STARTTLS when the
// server offers it and authenticating with PLAIN when a user is configured.
type SMTPSender struct {
	host    string
	from    string
	options []mail.Option
	logger  *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	// Fail at startup on options the client would reject on every send.
	if _, err := mail.NewClient(cfg.Host, options...); err != nil {
		return nil, fmt.Errorf("invalid smtp configuration: %w", err)
	}

	return &SMTPSender{
		host:    cfg.Host,
		from:    cfg.From,
		options: options,
		logger:  logger.With(zap.String("component", "smtp_sender")),
	}, nil
}

// SendCode reports delivered=true only after the server accepted the message
func (s *SMTPSender) SendCode(ctx context.Context, email, code string, purpose domain.OTPPurpose) (bool, error) {
	if err := s.send(ctx, email, code, purpose); err != nil {
		s.logger.Error("failed to deliver code",
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Info("code delivered", zap.String("email", email), zap.String("purpose", string(purpose)))
	return true, nil
}

func (s *SMTPSender) send(ctx context.Context, to, code string, purpose domain.OTPPurpose) error {
	msg, err := buildMessage(s.from, to, code, purpose)
	if err != nil {
		return err
	}

	// One client per message: a client holds a single SMTP session.
	client, err := mail.NewClient(s.host, s.options...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func buildMessage(from, to, code string, purpose domain.OTPPurpose) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject(purpose))
	msg.SetBodyString(mail.TypeTextPlain, "Your code is "+code+".\r\nIt expires shortly and can be used once.\r\n")
	return msg, nil
}
