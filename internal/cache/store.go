// Package cache defines the short-TTL key/value Cache contract used to
// hold synthesized manifests, per spec.md §2 and §4.6.
package cache

import (
	"context"
	"time"
)

// Store is the Cache collaborator. Get returns (nil, false, nil) on a
// miss; it never treats a miss as an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
