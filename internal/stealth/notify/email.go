package notify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/smtp"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"github.com/jordan-wright/email"
)

// EmailConfig addresses the messages of one engine.
type EmailConfig struct {
	From    string
	To      []string
	Network model.Network
	Owner   string
}

// Email sends donation summaries by mail.
type Email struct {
	mailer  Mailer
	cfg     EmailConfig
	metrics Metrics
}

func NewEmail(mailer Mailer, cfg EmailConfig, metrics Metrics) (*Email, error) {
	if cfg.From == "" {
		return nil, errors.New("email sender is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("email recipients are required")
	}
	return &Email{mailer: mailer, cfg: cfg, metrics: metrics}, nil
}

func (n *Email) Notify(ctx context.Context, count int, total *big.Int) (err error) {
	defer func() {
		n.metrics.ObserveDelivery(err)
	}()
	if err = ctx.Err(); err != nil {
		return err
	}

	msg := email.NewEmail()
	msg.From = n.cfg.From
	msg.To = n.cfg.To
	msg.Subject = fmt.Sprintf("%s (%s, %s)", Title, n.cfg.Owner, n.cfg.Network)
	msg.Text = []byte(Message(count, total) + "\n")

	if err = n.mailer.Send(msg); err != nil {
		return fmt.Errorf("send donation email: %w", err)
	}
	return nil
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
}

// NewSMTPMailer builds a mailer for addr (host:port). Empty username disables auth.
func NewSMTPMailer(addr, username, password string) (*SMTPMailer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", addr, err)
	}
	m := &SMTPMailer{addr: addr}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m, nil
}

func (m *SMTPMailer) Send(msg *email.Email) error {
	return msg.Send(m.addr, m.auth)
}
