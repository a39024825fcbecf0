package event

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	accountUC "github.com/khoahotran/devconnect/internal/application/usecase/account"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/logger"
)

const (
	TopicAccountEventsDead = "account.events.dead"

	deliveryHeader = "delivery"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type orphanReconciler interface {
	Execute(ctx context.Context, input accountUC.ReconcileOrphanInput) error
}

// OrphanConsumer drives the reconcile use case from account.events.
//
// Offsets are committed per partition, so a message is only committed once
// its outcome is durable somewhere: the account is gone, or the event has
// been written back to account.events (or to the dead-letter topic once it
// has been redelivered MaxRedeliveries times). If even that write fails,
// Run stops without committing and the group redelivers from there.
type OrphanConsumer struct {
	Reader          messageReader
	RetryWriter     messageWriter
	DeadWriter      messageWriter
	Reconciler      orphanReconciler
	MaxRedeliveries int
	Logger          logger.Logger
}

func NewOrphanConsumer(brokers []string, reconciler orphanReconciler, maxRedeliveries int, log logger.Logger) *OrphanConsumer {
	return &OrphanConsumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    TopicAccountEvents,
			GroupID:  "account-reconciler-group",
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		RetryWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicAccountEvents,
			Balancer: &kafka.Hash{},
		},
		DeadWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicAccountEventsDead,
			Balancer: &kafka.Hash{},
		},
		Reconciler:      reconciler,
		MaxRedeliveries: maxRedeliveries,
		Logger:          log,
	}
}

// Run consumes until ctx is cancelled. A non-nil error means a failed event
// could not be handed off and was left uncommitted.
func (c *OrphanConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.Error("Failed to read message from Kafka", err)
			continue
		}
		if err := c.Handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Handle processes one message and commits it unless the outcome could not
// be recorded.
func (c *OrphanConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	evt, err := DecodeEvent(msg)
	if err != nil {
		c.Logger.Warn("Skipping undecodable event", zap.String("key", string(msg.Key)), zap.Error(err))
		return c.commit(ctx, msg)
	}
	if evt.Type != profile.EventAccountOrphaned {
		return c.commit(ctx, msg)
	}

	err = c.Reconciler.Execute(ctx, accountUC.ReconcileOrphanInput{OwnerID: evt.OwnerID})
	if err == nil {
		return c.commit(ctx, msg)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	delivery := deliveryOf(msg) + 1
	writer, topic := c.RetryWriter, TopicAccountEvents
	if delivery > c.MaxRedeliveries {
		writer, topic = c.DeadWriter, TopicAccountEventsDead
	}
	if werr := writer.WriteMessages(ctx, redelivery(msg, delivery)); werr != nil {
		return fmt.Errorf("hand off orphan event for %s to %s: %w", evt.OwnerID, topic, werr)
	}
	c.Logger.Warn("Orphaned account not reconciled, event handed off",
		zap.String("owner_id", evt.OwnerID.String()),
		zap.String("topic", topic),
		zap.Int("delivery", delivery),
		zap.Error(err))
	return c.commit(ctx, msg)
}

func (c *OrphanConsumer) Close() {
	if r, ok := c.Reader.(interface{ Close() error }); ok {
		if err := r.Close(); err != nil {
			c.Logger.Warn("Failed to close account events reader", zap.Error(err))
		}
	}
	for _, w := range []messageWriter{c.RetryWriter, c.DeadWriter} {
		if err := w.Close(); err != nil {
			c.Logger.Warn("Failed to close account events writer", zap.Error(err))
		}
	}
}

func (c *OrphanConsumer) commit(ctx context.Context, msg kafka.Message) error {
	if err := c.Reader.CommitMessages(ctx, msg); err != nil {
		// A later commit on the partition covers this offset.
		c.Logger.Error("Failed to commit message", err)
	}
	return nil
}

func deliveryOf(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key == deliveryHeader {
			n, err := strconv.Atoi(string(h.Value))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// redelivery copies msg for a writer that owns its topic, replacing the
// delivery header.
func redelivery(msg kafka.Message, delivery int) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	for _, h := range msg.Headers {
		if h.Key != deliveryHeader {
			headers = append(headers, h)
		}
	}
	headers = append(headers, kafka.Header{Key: deliveryHeader, Value: []byte(strconv.Itoa(delivery))})
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}
