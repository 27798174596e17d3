// Package cache wraps the store with a Redis read-through cache for
// product reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

// CachedStore serves GetProduct from Redis and keeps it fresh on writes.
// Every other method goes straight to the wrapped store. Redis failures are
// logged and never fail the request.
type CachedStore struct {
	store.Store
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedStore(s store.Store, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedStore {
	return &CachedStore{Store: s, redis: rdb, ttl: ttl, log: log}
}

// cachedProduct keeps the shop alongside the product: the shop owner is
// needed for permission checks and is not part of the product's JSON.
type cachedProduct struct {
	Product models.Product `json:"product"`
	Shop    *models.Shop   `json:"shop"`
}

func productKey(id int64) string { return fmt.Sprintf("product:%d", id) }

func (c *CachedStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, store.ErrNotFound
		}
		var cp cachedProduct
		if err := json.Unmarshal(data, &cp); err != nil {
			c.log.WarnContext(ctx, "bad cached product, continuing with db", "product_id", id, "error", err)
			break
		}
		p := cp.Product
		p.Shop = cp.Shop
		return &p, nil

	case errors.Is(err, redis.Nil):

	default:
		c.log.WarnContext(ctx, "redis get failed, continuing with db", "product_id", id, "error", err)
	}

	p, err := c.Store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
				c.log.WarnContext(ctx, "failed to cache notfound", "product_id", id, "error", setErr)
			}
		}
		return nil, err
	}

	data, err = json.Marshal(cachedProduct{Product: *p, Shop: p.Shop})
	if err != nil {
		c.log.WarnContext(ctx, "failed to marshal product", "product_id", id, "error", err)
		return p, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "failed to cache product", "product_id", id, "error", err)
	}
	return p, nil
}

// CreateProduct drops a cached notfound marker for the new ID, if any.
func (c *CachedStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := c.Store.CreateProduct(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *CachedStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	err := c.Store.UpdateProduct(ctx, p)
	c.invalidate(ctx, p.ID)
	return err
}

func (c *CachedStore) DeactivateProduct(ctx context.Context, id int64) error {
	err := c.Store.DeactivateProduct(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedStore) invalidate(ctx context.Context, id int64) {
	if err := c.redis.Del(ctx, productKey(id)).Err(); err != nil {
		c.log.WarnContext(ctx, "failed to delete product cache", "product_id", id, "error", err)
	}
}
