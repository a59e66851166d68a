package sinks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/progress"
)

// Publisher delivers a payload to a named topic and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublishSink publishes every report as its own message so remote consumers
// see the same ordered stream.
type PublishSink struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublishSink constructs a PublishSink for topic.
func NewPublishSink(publisher Publisher, topic string, logger *zap.Logger) (*PublishSink, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: publisher, topic: topic, logger: logger}, nil
}

// Consume publishes the batch in order and stops at the first failure.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Report) error {
	for i, r := range batch {
		id, err := s.publisher.Publish(ctx, s.topic, r)
		if err != nil {
			return fmt.Errorf("publish report %d of %d: %w", i+1, len(batch), err)
		}
		s.logger.Debug("progress report published", zap.String("topic", s.topic), zap.String("message_id", id))
	}
	return nil
}

// Close implements the Sink interface; publishers are owned by the caller.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
