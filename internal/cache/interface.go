package cache

import (
	"context"
	"time"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
)

type ProductCacheResult struct {
	Product domain.Product `json:"product"`
}

// ProductCache caches catalog reads. Escrow and edit paths invalidate
// by key after commit; a stale entry only ever survives until its TTL.
type ProductCache interface {
	Get(ctx context.Context, key string) (*ProductCacheResult, error)
	Set(ctx context.Context, key string, result *ProductCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(productID uint64) string
	Close() error
}
