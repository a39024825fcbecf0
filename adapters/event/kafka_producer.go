package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/config"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/logger"
)

const (
	TopicProfileEvents = "profile.events"
	TopicAccountEvents = "account.events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	ProfileEventsWriter messageWriter
	AccountEventsWriter messageWriter
	logger              logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'profile.events'
	profileWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicProfileEvents,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	// writer 'account.events'
	accountWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicAccountEvents,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{
		ProfileEventsWriter: profileWriter,
		AccountEventsWriter: accountWriter,
		logger:              log,
	}, nil
}

// PublishProfileEvent routes account.orphaned to the account topic and
// everything else to the profile topic. Messages are keyed by owner so one
// owner's events stay ordered within a partition.
func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, evt profile.Event) error {
	msg, err := newMessage(evt)
	if err != nil {
		return err
	}

	writer := c.ProfileEventsWriter
	if evt.Type == profile.EventAccountOrphaned {
		writer = c.AccountEventsWriter
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	return nil
}

func newMessage(evt profile.Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}
	return kafka.Message{
		Key:   []byte(evt.OwnerID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}, nil
}

// DecodeEvent parses a message written by PublishProfileEvent.
func DecodeEvent(msg kafka.Message) (profile.Event, error) {
	var evt profile.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return profile.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return evt, nil
}

func (c *KafkaProducerClient) Close() {
	if c.ProfileEventsWriter != nil {
		if err := c.ProfileEventsWriter.Close(); err != nil {
			c.logger.Warn("Failed to close profile events writer", zap.Error(err))
		}
	}
	if c.AccountEventsWriter != nil {
		if err := c.AccountEventsWriter.Close(); err != nil {
			c.logger.Warn("Failed to close account events writer", zap.Error(err))
		}
	}
	c.logger.Info("Closed Kafka Producers")
}

// NoopPublisher drops events. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishProfileEvent(context.Context, profile.Event) error { return nil }
