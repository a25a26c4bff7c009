package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spigell/cv-ranker/internal/logger"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the mail transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"-"`
	// From defaults to Username.
	From string `mapstructure:"from"`
}

const defaultSMTPPort = 587

// SMTPSender delivers messages over SMTP, opening one connection per message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}

	port := cfg.Port
	if port <= 0 {
		port = defaultSMTPPort
	}

	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errors.New("smtp from address or username is required")
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, cfg.Username, cfg.Password),
		from:   from,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	return s.dialer.DialAndSend(m)
}

// DryRunSender logs messages instead of sending them.
type DryRunSender struct {
	logger *zap.Logger
}

func NewDryRunSender(log *zap.Logger) *DryRunSender {
	return &DryRunSender{logger: logger.WithFields(log)}
}

func (s *DryRunSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("dry run: email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body_preview", logger.Preview(msg.Body, 120)),
	)
	return nil
}
