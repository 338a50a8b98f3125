package modelstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
)

// DefaultKeyPrefix prefixes every model key.
const DefaultKeyPrefix = "lwm2m:models"

// RedisProvider serves object models stored per endpoint under
// "<prefix>:<endpoint>:<objectID>" as JSON.
type RedisProvider struct {
	client   *redis.Client
	prefix   string
	fallback Provider
	logger   *slog.Logger
}

// NewRedisProvider creates a provider backed by client. Lookups that miss or
// fail are answered by fallback.
func NewRedisProvider(client *redis.Client, prefix string, fallback Provider) *RedisProvider {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisProvider{
		client:   client,
		prefix:   prefix,
		fallback: fallback,
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger for store errors.
func (p *RedisProvider) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

// Key returns the key holding the model of objectID for endpoint.
func (p *RedisProvider) Key(endpoint string, objectID int) string {
	return fmt.Sprintf("%s:%s:%d", p.prefix, endpoint, objectID)
}

// ObjectModel returns the endpoint's stored model, or the fallback's.
func (p *RedisProvider) ObjectModel(ctx context.Context, reg *session.Registration, objectID int) (*model.ObjectModel, error) {
	key := p.Key(reg.Endpoint, objectID)
	data, err := p.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return p.fallback.ObjectModel(ctx, reg, objectID)
	}
	if err != nil {
		p.logger.Warn("model store unavailable, using fallback", "key", key, "error", err)
		return p.fallback.ObjectModel(ctx, reg, objectID)
	}

	var m model.ObjectModel
	if err := json.Unmarshal(data, &m); err != nil {
		p.logger.Warn("corrupt stored model, using fallback", "key", key, "error", err)
		return p.fallback.ObjectModel(ctx, reg, objectID)
	}
	return &m, nil
}

// Put stores m for endpoint.
func (p *RedisProvider) Put(ctx context.Context, endpoint string, m *model.ObjectModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.Key(endpoint, m.ID), data, 0).Err()
}

// Delete removes the stored model of objectID for endpoint.
func (p *RedisProvider) Delete(ctx context.Context, endpoint string, objectID int) error {
	return p.client.Del(ctx, p.Key(endpoint, objectID)).Err()
}

// OpenRedis connects to the server at url ("redis://host:port/db") and
// pings it.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
