// Package redis keeps the console feed and shared patches in Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/pkg/domain"
	"github.com/aretw0/patchbay/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "patchbay:"

// Feed implements ports.LogFeed on a capped Redis list, so several viewers
// (or a restarted process) see the same console.
type Feed struct {
	client   *backend.Client
	prefix   string
	capacity int
	ttl      time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Feed)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(f *Feed) {
		f.prefix = prefix
	}
}

// WithCapacity sets how many entries are retained.
func WithCapacity(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.capacity = n
		}
	}
}

// WithTTL expires the whole feed after ttl without writes.
func WithTTL(ttl time.Duration) Option {
	return func(f *Feed) {
		f.ttl = ttl
	}
}

// WithLogger reports write failures; Log itself cannot return them.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = l
	}
}

// NewFeed connects to a Redis server.
func NewFeed(address, password string, db int, opts ...Option) *Feed {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFeedFromClient(rdb, opts...)
}

// NewFeedFromClient creates a feed on an existing client.
func NewFeedFromClient(client *backend.Client, opts ...Option) *Feed {
	f := &Feed{
		client:   client,
		prefix:   defaultPrefix,
		capacity: ports.DefaultFeedCapacity,
		timeout:  time.Second,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) key() string {
	return f.prefix + "console"
}

// Log appends an entry and trims the list to capacity.
func (f *Feed) Log(e domain.LogEntry) {
	data, err := json.Marshal(e)
	if err != nil {
		f.logger.Warn("console entry dropped", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	pipe := f.client.Pipeline()
	pipe.RPush(ctx, f.key(), data)
	pipe.LTrim(ctx, f.key(), int64(-f.capacity), -1)
	if f.ttl > 0 {
		pipe.Expire(ctx, f.key(), f.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		f.logger.Warn("console entry dropped", "err", err)
	}
}

// Recent returns up to n entries, oldest first.
func (f *Feed) Recent(ctx context.Context, n int) ([]domain.LogEntry, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := f.client.LRange(ctx, f.key(), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read console: %w", err)
	}

	entries := make([]domain.LogEntry, 0, len(raw))
	for _, r := range raw {
		var e domain.LogEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal console entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear drops every entry.
func (f *Feed) Clear(ctx context.Context) error {
	return f.client.Del(ctx, f.key()).Err()
}

// Close closes the redis client.
func (f *Feed) Close() error {
	return f.client.Close()
}
