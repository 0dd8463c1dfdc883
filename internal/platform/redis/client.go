package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ledgerguard/internal/platform/config"
)

const clientName = "ledgerguard"

// Client is the connection shared by the ledger append lock, the shipper
// cursor and the rate-limit buckets. It remembers the configured keys so
// callers cannot drift from each other.
type Client struct {
	*redis.Client
	lockKey   string
	cursorKey string
}

// Options turns the redis config section into go-redis options. Zero pool
// and timeout settings leave the go-redis defaults in place.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	switch {
	case cfg.LockKey == "" || cfg.CursorKey == "":
		return nil, errors.New("redis lock_key and cursor_key are required")
	case cfg.LockKey == cfg.CursorKey:
		return nil, fmt.Errorf("redis lock_key and cursor_key must differ, both are %q", cfg.LockKey)
	}

	opts.ClientName = clientName
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// New connects and pings. It returns nil without error when no URL is
// configured; the ledger then uses its in-process append lock and the
// shipper keeps its cursor in memory.
func New(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, client.Options().DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis connected",
		"addr", opts.Addr,
		"db", opts.DB,
		"pool_size", client.Options().PoolSize,
	)
	return &Client{Client: client, lockKey: cfg.LockKey, cursorKey: cfg.CursorKey}, nil
}

// LockKey guards ledger appends across replicas.
func (c *Client) LockKey() string { return c.lockKey }

// CursorKey holds the last sequence the shipper published.
func (c *Client) CursorKey() string { return c.cursorKey }

// Health pings Redis. A failed ping reports the connection pool counters.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		stats := c.PoolStats()
		return fmt.Errorf("redis ping: %w (pool total=%d idle=%d timeouts=%d)",
			err, stats.TotalConns, stats.IdleConns, stats.Timeouts)
	}
	return nil
}
