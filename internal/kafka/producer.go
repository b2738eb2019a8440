// Package kafka sends signups to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"scholarship-portal/internal/signup"

	"github.com/IBM/sarama"
)

const attachmentSuffix = ".attachment"

var (
	ErrClientClosed = errors.New("kafka client closed")
	ErrNoBrokers    = errors.New("no kafka brokers available")
)

// Cluster is the part of sarama.Client consulted by readiness checks.
type Cluster interface {
	Brokers() []*sarama.Broker
	Closed() bool
}

// Producer is a signup.Registrar backed by a sarama sync producer.
type Producer struct {
	producer sarama.SyncProducer
	cluster  Cluster
	topic    string
	logger   *slog.Logger
}

type Option func(*Producer)

// WithCluster lets Ready inspect the broker connections behind the producer.
func WithCluster(cluster Cluster) Option {
	return func(p *Producer) { p.cluster = cluster }
}

func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "scholarship-portal"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	// Attachments can be up to the picture limit plus headers.
	config.Producer.MaxMessageBytes = 8 << 20
	return config
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	client, err := sarama.NewClient(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewProducerWith(producer, topic, logger, WithCluster(client)), nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger, opts ...Option) *Producer {
	p := &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register sends the payload keyed by registration id and, when present, the
// attachment under the same key so both land on the same partition index.
func (p *Producer) Register(ctx context.Context, reg *signup.Registration, att *signup.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs, err := p.buildMessages(reg, att)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal registration", "error", err)
		return err
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to kafka", "error", err)
		return fmt.Errorf("send to kafka: %w", err)
	}

	for _, msg := range msgs {
		p.logger.InfoContext(ctx, "message sent to kafka", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", reg.ID)
	}
	return nil
}

// Ready reports whether the cluster still has brokers to send to. Without a
// cluster it is always ready.
func (p *Producer) Ready() error {
	if p.cluster == nil {
		return nil
	}
	if p.cluster.Closed() {
		return ErrClientClosed
	}
	if len(p.cluster.Brokers()) == 0 {
		return ErrNoBrokers
	}
	return nil
}

// Close stops the producer and then the client it was built from, if any.
func (p *Producer) Close() error {
	err := p.producer.Close()
	if closer, ok := p.cluster.(io.Closer); ok && !p.cluster.Closed() {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func (p *Producer) buildMessages(reg *signup.Registration, att *signup.Attachment) ([]*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, err
	}

	msgs := []*sarama.ProducerMessage{{
		Topic: p.topic,
		Key:   sarama.StringEncoder(reg.ID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("Content-Type"), Value: []byte("application/json")},
		},
	}}

	if att != nil {
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic + attachmentSuffix,
			Key:   sarama.StringEncoder(att.RegistrationID),
			Value: sarama.ByteEncoder(att.Data),
			Headers: []sarama.RecordHeader{
				{Key: []byte("Content-Type"), Value: []byte(att.ContentType)},
				{Key: []byte("File-Name"), Value: []byte(att.Name)},
			},
		})
	}
	return msgs, nil
}
