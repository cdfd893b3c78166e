// Package redis is a Redis-backed descstore.Store for multi-node server
// deployments that want to share resolved function signatures.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/nwbridge/rfc-server-go/descstore"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// Config for the Redis-backed store. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: RFC_DESC_KEY_PREFIX
	KeyPrefix string `env:"RFC_DESC_KEY_PREFIX,default=rfc:desc:"`
	// DefaultTTL applied when Set receives a non-positive ttl.
	// ENV: RFC_DESC_TTL
	DefaultTTL time.Duration `env:"RFC_DESC_TTL,default=15m"`

	// Client overrides RedisAddr when provided (tests, custom pooling).
	Client *redis.Client
}

// Store is a descstore.Store over Redis string keys with TTLs.
type Store struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

var _ descstore.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	cl := cfg.Client
	if cl == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl = redis.NewClient(&redis.Options{Addr: addr})
	}
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "rfc:desc:"
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{client: cl, keyPrefix: prefix, defaultTTL: ttl}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

func (s *Store) key(destination, name string) string {
	return s.keyPrefix + destination + ":" + name
}

func (s *Store) Get(ctx context.Context, destination, name string) (rfc.FunctionDescription, bool, error) {
	raw, err := s.client.Get(ctx, s.key(destination, name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return rfc.FunctionDescription{}, false, nil
		}
		return rfc.FunctionDescription{}, false, err
	}
	var desc rfc.FunctionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		// A corrupt entry is treated as a miss after eviction.
		_ = s.client.Del(ctx, s.key(destination, name)).Err()
		return rfc.FunctionDescription{}, false, nil
	}
	return desc, true, nil
}

func (s *Store) Set(ctx context.Context, destination, name string, desc rfc.FunctionDescription, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	raw, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(destination, name), raw, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, destination, name string) error {
	return s.client.Del(ctx, s.key(destination, name)).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }
