// Package cache provides the TTL-scoped read memoization namespaces sitting
// between the HTTP read paths and the row store. Misses are never cached and
// a set after a miss is last-writer-wins; every mutating ledger operation
// invalidates the relevant namespace explicitly, so staleness is bounded by
// the namespace TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/metrics"
	"github.com/payboard/payboard-backend/pkg/redis"
)

const keyNamespace = "pb:cache"

// Namespace identifies one of the independent TTL scopes.
type Namespace string

const (
	SellerInfo  Namespace = "seller-info"
	UserRole    Namespace = "user-role"
	PaymentList Namespace = "payment-list"
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// Cache is the namespaced TTL wrapper over redis.
type Cache struct {
	store   store
	ttls    map[Namespace]time.Duration
	metrics *metrics.CacheMetrics
}

// WithMetrics attaches hit/miss counters; a nil receiver field stays a no-op.
func (c *Cache) WithMetrics(m *metrics.CacheMetrics) *Cache {
	c.metrics = m
	return c
}

// New builds the cache with per-namespace TTLs from config.
func New(client *redis.Client, cfg config.CacheConfig) (*Cache, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &Cache{
		store: client,
		ttls: map[Namespace]time.Duration{
			SellerInfo:  cfg.SellerInfoTTL,
			UserRole:    cfg.UserRoleTTL,
			PaymentList: cfg.PaymentListTTL,
		},
	}, nil
}

// NewWithStore wires an arbitrary backing store; used by tests.
func NewWithStore(s store, ttls map[Namespace]time.Duration) *Cache {
	return &Cache{store: s, ttls: ttls}
}

// Get returns the cached value and whether it was present. A missing key is
// a normal miss, not an error.
func (c *Cache) Get(ctx context.Context, ns Namespace, key string) (string, bool, error) {
	gen, err := c.generation(ctx, ns)
	if err != nil {
		return "", false, err
	}
	value, err := c.store.Get(ctx, c.valueKey(ns, gen, key))
	if errors.Is(err, redis.Nil) {
		c.metrics.Miss(string(ns))
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	c.metrics.Hit(string(ns))
	return value, true, nil
}

// Set stores the value under the namespace's current generation with its TTL.
func (c *Cache) Set(ctx context.Context, ns Namespace, key, value string) error {
	gen, err := c.generation(ctx, ns)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.valueKey(ns, gen, key), value, c.ttls[ns])
}

// Invalidate removes a single key from the namespace.
func (c *Cache) Invalidate(ctx context.Context, ns Namespace, key string) error {
	gen, err := c.generation(ctx, ns)
	if err != nil {
		return err
	}
	return c.store.Del(ctx, c.valueKey(ns, gen, key))
}

// InvalidateAll drops every entry in the namespace by bumping its generation
// counter; orphaned entries expire with their TTL.
func (c *Cache) InvalidateAll(ctx context.Context, ns Namespace) error {
	_, err := c.store.Incr(ctx, c.generationKey(ns))
	return err
}

func (c *Cache) generation(ctx context.Context, ns Namespace) (string, error) {
	gen, err := c.store.Get(ctx, c.generationKey(ns))
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return gen, nil
}

func (c *Cache) generationKey(ns Namespace) string {
	return fmt.Sprintf("%s:%s:gen", keyNamespace, ns)
}

func (c *Cache) valueKey(ns Namespace, gen, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyNamespace, ns, gen, key)
}
