// Package jobs holds the background loops that run beside the API: shipping
// committed ledger entries downstream, scanning for overdue violations and
// periodically re-verifying the chain.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ledgerguard/internal/ledger"
	"ledgerguard/internal/ledger/metrics"
	"ledgerguard/internal/platform/kafka"
)

const defaultShipBatch = 200

// EntryReader is the read side of the ledger.
type EntryReader interface {
	Query(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error)
}

// Publisher sends messages downstream.
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Cursor remembers the next sequence to ship across restarts.
type Cursor interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, next int64) error
}

// LedgerShipper relays committed entries to a topic in sequence order. The
// ledger table is the outbox: an entry is shipped at least once, and the
// cursor only advances after the broker acknowledged the batch.
type LedgerShipper struct {
	reader    EntryReader
	publisher Publisher
	cursor    Cursor
	interval  time.Duration
	batch     int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewLedgerShipper(reader EntryReader, publisher Publisher, cursor Cursor, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *LedgerShipper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LedgerShipper{
		reader:    reader,
		publisher: publisher,
		cursor:    cursor,
		interval:  interval,
		batch:     defaultShipBatch,
		logger:    logger,
		metrics:   m,
	}
}

// Start ships immediately, then on every tick until ctx is cancelled.
func (s *LedgerShipper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "ledger shipper started", "interval", s.interval)
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.metrics.IncrementShipFailure()
			s.logger.ErrorContext(ctx, "ledger shipping failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "ledger shipper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce ships every entry committed since the cursor and returns how many
// were published.
func (s *LedgerShipper) RunOnce(ctx context.Context) (int, error) {
	next, err := s.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ship cursor: %w", err)
	}

	shipped := 0
	for {
		entries, err := s.reader.Query(ctx, ledger.Filter{FromSequence: next, Limit: s.batch})
		if err != nil {
			return shipped, fmt.Errorf("read entries from %d: %w", next, err)
		}
		if len(entries) == 0 {
			return shipped, nil
		}

		msgs := make([]kafka.Message, 0, len(entries))
		for _, e := range entries {
			value, err := json.Marshal(e)
			if err != nil {
				return shipped, fmt.Errorf("encode entry %d: %w", e.Sequence, err)
			}
			msgs = append(msgs, kafka.Message{
				Key:   []byte(e.ResourceType + ":" + e.ResourceID),
				Value: value,
				Headers: map[string]string{
					"ledger-sequence": strconv.FormatInt(e.Sequence, 10),
					"ledger-digest":   string(e.Digest),
					"ledger-action":   e.Action,
				},
			})
		}
		if err := s.publisher.Publish(ctx, msgs...); err != nil {
			return shipped, err
		}

		next = entries[len(entries)-1].Sequence + 1
		if err := s.cursor.Save(ctx, next); err != nil {
			return shipped, fmt.Errorf("save ship cursor: %w", err)
		}
		shipped += len(entries)
		s.metrics.AddShipped(len(entries))

		if len(entries) < s.batch {
			return shipped, nil
		}
	}
}

// MemoryCursor keeps the position in process memory.
type MemoryCursor struct {
	mu   sync.Mutex
	next int64
}

func (c *MemoryCursor) Load(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next, nil
}

func (c *MemoryCursor) Save(_ context.Context, next int64) error {
	c.mu.Lock()
	c.next = next
	c.mu.Unlock()
	return nil
}

// RedisCursor keeps the position in a Redis key shared by all replicas.
type RedisCursor struct {
	client *redis.Client
	key    string
}

func NewRedisCursor(client *redis.Client, key string) *RedisCursor {
	return &RedisCursor{client: client, key: key}
}

func (c *RedisCursor) Load(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (c *RedisCursor) Save(ctx context.Context, next int64) error {
	return c.client.Set(ctx, c.key, next, 0).Err()
}
