// Package redis stores session values in a Redis hash.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joonyo2/yugwan/internal/session"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "yugwan:session"
	defaultNamespace = "default"
)

// Config configures the Redis-backed session backend.
type Config struct {
	Addr         string
	Addrs        []string
	Username     string
	Password     string
	DB           int
	MasterName   string
	KeyPrefix    string
	Namespace    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TTL expires the whole session hash after the last write; zero keeps it forever
	TTL time.Duration
}

// Backend is a session.Backend over a single Redis hash per namespace.
type Backend struct {
	client goredis.UniversalClient
	key    string
	ttl    time.Duration
}

var _ session.Backend = (*Backend)(nil)

// NewBackend connects to Redis. The caller is responsible for ensuring the
// instance is reachable; Ping reports connectivity.
func NewBackend(cfg Config) (*Backend, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}

	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   strings.TrimSpace(cfg.MasterName),
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   2,
	})
	return NewBackendWithClient(client, cfg.KeyPrefix, cfg.Namespace, cfg.TTL), nil
}

// NewBackendWithClient wraps an existing client
func NewBackendWithClient(client goredis.UniversalClient, prefix, namespace string, ttl time.Duration) *Backend {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Backend{
		client: client,
		key:    prefix + ":" + namespace,
		ttl:    ttl,
	}
}

// Key returns the hash key holding this namespace's values
func (b *Backend) Key() string {
	return b.key
}

// Ping checks connectivity
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (b *Backend) Close() error {
	return b.client.Close()
}

// Get returns the value stored under key
func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := b.client.HGet(ctx, b.key, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key
func (b *Backend) Set(ctx context.Context, key, value string) error {
	if b.ttl <= 0 {
		return b.client.HSet(ctx, b.key, key, value).Err()
	}

	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, b.key, key, value)
		pipe.Expire(ctx, b.key, b.ttl)
		return nil
	})
	return err
}

// Delete removes keys
func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.HDel(ctx, b.key, keys...).Err()
}
