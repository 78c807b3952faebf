// Package consumer feeds Kafka ingress topics into the indexation pipeline.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/freelancehub/app-indexer/internal/observers"
	"github.com/freelancehub/app-indexer/internal/queue"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrInvalidMessage marks messages that will never succeed. They are
// logged and committed.
var ErrInvalidMessage = errors.New("consumer: invalid message")

// MessageReader is the subset of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// HandlerFunc processes one message value
type HandlerFunc func(ctx context.Context, value []byte) error

// NewReader builds a group reader with manual commits
func NewReader(brokers []string, topic, groupID string) (*kafkago.Reader, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers must not be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("groupID must not be empty")
	}

	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0, // manual commits only
	}), nil
}

// Consumer reads a topic and hands each message to a handler. A message is
// committed once handled, once found invalid, or once its retries run out.
type Consumer struct {
	reader      MessageReader
	topic       string
	handle      HandlerFunc
	retryDelays []time.Duration
	logger      *logging.SafeLogger
}

func New(reader MessageReader, topic string, handle HandlerFunc) *Consumer {
	return &Consumer{
		reader:      reader,
		topic:       topic,
		handle:      handle,
		retryDelays: []time.Duration{time.Second, 2 * time.Second, 5 * time.Second},
		logger:      logging.Logger.Named("consumer").With(zap.String("topic", topic)),
	}
}

// SetRetryDelays replaces the pause before each handler retry
func (c *Consumer) SetRetryDelays(delays ...time.Duration) {
	c.retryDelays = delays
}

// Run consumes until ctx is cancelled or the reader is closed
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		status := c.process(ctx, msg)
		if status == "" {
			// cancelled mid-retry; leave uncommitted for redelivery
			return nil
		}
		observability.MessagesConsumed.WithLabelValues(c.topic, status).Inc()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit %s offset %d: %w", c.topic, msg.Offset, err)
		}
	}
}

// process returns the metric status, or "" when ctx was cancelled
func (c *Consumer) process(ctx context.Context, msg kafkago.Message) string {
	fields := []zap.Field{zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset)}

	for attempt := 0; ; attempt++ {
		err := c.handle(ctx, msg.Value)
		switch {
		case err == nil:
			return "ok"
		case errors.Is(err, ErrInvalidMessage):
			c.logger.Warn("dropping invalid message", append(fields, zap.Error(err))...)
			return "invalid"
		case ctx.Err() != nil:
			return ""
		case attempt >= len(c.retryDelays):
			c.logger.Error("giving up on message", append(fields, zap.Int("attempts", attempt+1), zap.Error(err))...)
			return "failed"
		}

		c.logger.Warn("message handling failed, retrying", append(fields, zap.Int("attempt", attempt+1), zap.Error(err))...)
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(c.retryDelays[attempt]):
		}
	}
}

// Close releases the reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// ChangeEvents routes ChangeEvent messages through the observer
func ChangeEvents(obs *observers.Observer) HandlerFunc {
	return func(ctx context.Context, value []byte) error {
		var ev models.ChangeEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		if err := obs.Handle(ctx, ev); err != nil {
			if errors.Is(err, observers.ErrInvalidEvent) {
				return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
			}
			return err
		}
		return nil
	}
}

// Dispatcher enqueues jobs
type Dispatcher interface {
	Dispatch(ctx context.Context, target queue.Target, job queue.Job) (*queue.Task, bool, error)
}

// OfferMatches turns MatchPair messages into MatchNotification jobs on target
func OfferMatches(dispatcher Dispatcher, target queue.Target) HandlerFunc {
	return func(ctx context.Context, value []byte) error {
		var pair models.MatchPair
		if err := json.Unmarshal(value, &pair); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		pair.OfferID = strings.TrimSpace(pair.OfferID)
		pair.ProfileID = strings.TrimSpace(pair.ProfileID)
		if pair.OfferID == "" || pair.ProfileID == "" {
			return fmt.Errorf("%w: offer_id and profile_id are required", ErrInvalidMessage)
		}

		_, _, err := dispatcher.Dispatch(ctx, target, jobs.MatchNotification{OfferID: pair.OfferID, ProfileID: pair.ProfileID})
		return err
	}
}
