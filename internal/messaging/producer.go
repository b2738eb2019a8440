// Package messaging publishes signups to NATS.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scholarship-portal/internal/signup"

	"github.com/nats-io/nats.go"
)

const (
	HeaderRegistrationID = "Registration-Id"
	HeaderContentType    = "Content-Type"
	HeaderFileName       = "File-Name"

	attachmentSuffix = ".attachment"
)

var ErrNotConnected = errors.New("nats connection is not established")

type publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// Producer is a signup.Registrar backed by NATS core publish.
type Producer struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("scholarship-portal"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	p := newProducer(nc, subject, logger)
	p.conn = nc
	return p, nil
}

func newProducer(pub publisher, subject string, logger *slog.Logger) *Producer {
	return &Producer{
		pub:     pub,
		subject: subject,
		logger:  logger,
	}
}

// Register publishes the payload and, when present, the attachment, then
// flushes so a broken connection surfaces as an error.
func (p *Producer) Register(ctx context.Context, reg *signup.Registration, att *signup.Attachment) error {
	msgs, err := buildMessages(p.subject, reg, att)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal registration", "error", err)
		return err
	}

	for _, msg := range msgs {
		if err := p.pub.PublishMsg(msg); err != nil {
			p.logger.ErrorContext(ctx, "failed to send message to NATS", "subject", msg.Subject, "error", err)
			return fmt.Errorf("publish %s: %w", msg.Subject, err)
		}
	}
	if err := p.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}

	p.logger.InfoContext(ctx, "registration sent to NATS", "subject", p.subject, "registration_id", reg.ID, "messages", len(msgs))
	return nil
}

// Ready reports whether the connection is usable, for readiness checks.
func (p *Producer) Ready() error {
	if p.conn == nil || !p.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (p *Producer) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

func buildMessages(subject string, reg *signup.Registration, att *signup.Attachment) ([]*nats.Msg, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, err
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderRegistrationID, reg.ID)
	msg.Header.Set(HeaderContentType, "application/json")
	msg.Data = payload
	msgs := []*nats.Msg{msg}

	if att != nil {
		attMsg := nats.NewMsg(subject + attachmentSuffix)
		attMsg.Header.Set(HeaderRegistrationID, att.RegistrationID)
		attMsg.Header.Set(HeaderContentType, att.ContentType)
		attMsg.Header.Set(HeaderFileName, att.Name)
		attMsg.Data = att.Data
		msgs = append(msgs, attMsg)
	}
	return msgs, nil
}
