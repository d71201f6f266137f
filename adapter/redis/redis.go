// Package redis implements a Redis pub/sub alert adapter.
//
// Publishes alert events as JSON or msgpack to a configurable Redis channel.
// Retries with exponential backoff on connection errors.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/radar/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "radar:alerts"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Encoding selects the payload wire format.
type Encoding string

const (
	// EncodingJSON publishes UTF-8 JSON (default).
	EncodingJSON Encoding = "json"
	// EncodingMsgpack publishes msgpack, for consumers sharing the binary codec.
	EncodingMsgpack Encoding = "msgpack"
)

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: radar:alerts).
	Channel string
	// Encoding is the payload format (default: json).
	Encoding Encoding
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes alert events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	switch cfg.Encoding {
	case "":
		cfg.Encoding = EncodingJSON
	case EncodingJSON, EncodingMsgpack:
	default:
		return nil, fmt.Errorf("redis adapter: unknown encoding %q", cfg.Encoding)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Encode serializes the event in the configured encoding.
func (a *Adapter) Encode(event *adapter.AlertEvent) ([]byte, error) {
	if a.config.Encoding == EncodingMsgpack {
		return msgpack.Marshal(event)
	}
	return json.Marshal(event)
}

// Publish sends the event to the configured channel.
// Retries with exponential backoff on failures.
func (a *Adapter) Publish(ctx context.Context, event *adapter.AlertEvent) error {
	body, err := a.Encode(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	attempts := 1 + a.config.Retries
	err = adapter.Retry(ctx, a.config.Retries, func() error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.client.Publish(publishCtx, a.config.Channel, body).Err()
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}
		return fmt.Errorf("redis: failed after %d attempts: %w", attempts, err)
	}
	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
