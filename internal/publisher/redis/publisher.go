// Package redis publishes progress payloads on Redis pub/sub channels.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Publisher sends JSON payloads with PUBLISH. Redis does not assign message
// IDs, so the returned ID is the number of clients that received the message.
type Publisher struct {
	rdb redis.UniversalClient
}

// Options selects the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New creates a Publisher with its own client.
func New(opts Options) (*Publisher, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(rdb), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb redis.UniversalClient) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish marshals payload to JSON and publishes it on channel topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.rdb == nil {
		return "", errors.New("redis publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	receivers, err := p.rdb.Publish(ctx, topic, data).Result()
	if err != nil {
		return "", fmt.Errorf("redis publish: %w", err)
	}
	return strconv.FormatInt(receivers, 10), nil
}

// Ping checks connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client connections.
func (p *Publisher) Close() error {
	if p.rdb == nil {
		return nil
	}
	if err := p.rdb.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
