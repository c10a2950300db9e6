// Package cachestore is a small namespaced TTL cache. The daemon uses it
// to remember recently rejected posts so polling cycles skip them until
// the entry expires.
package cachestore

import (
	"context"
)

type CacheStore interface {
	// Get returns the cached value, or "" on a miss.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
