// Package resultcache keeps recently acquired results so that repeated requests for the
// same case do not open another browser session.
package resultcache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key identifies the result of a case acquired since a cutoff.
func Key(caseID, cutoff string) string {
	return fmt.Sprintf("ecourts:result:%s|%s", caseID, cutoff)
}

type Config struct {
	// Backend is one of "memory", "redis" or "none".
	Backend    string `json:"backend"`
	TTLMinutes int    `json:"ttl_minutes"`
	// Size bounds the number of entries of the memory backend.
	Size int `json:"size"`

	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (c Config) ttl() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

func New(ctx context.Context, config Config) (Cache, error) {
	switch config.Backend {
	case "", "memory":
		size := config.Size
		if size <= 0 {
			size = 1024
		}
		return NewMemory(size, config.ttl()), nil
	case "redis":
		return NewRedis(ctx, config)
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend '%s'", config.Backend)
	}
}

type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) Memory {
	return Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, hit := m.lru.Get(key)
	return value, hit, nil
}

func (m Memory) Set(ctx context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, config Config) (Redis, error) {
	if config.Addr == "" {
		return Redis{}, fmt.Errorf("redis cache: address is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	err := client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return Redis{}, fmt.Errorf("redis cache: ping %s: %w", config.Addr, err)
	}
	return Redis{client: client, ttl: config.ttl()}, nil
}

func (r Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r Redis) Close() error {
	return r.client.Close()
}

// Nop never holds anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Nop) Set(ctx context.Context, key string, value []byte) error {
	return nil
}
