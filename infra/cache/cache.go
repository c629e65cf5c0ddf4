// Package cache provides the settings caches and the caching store decorator.
package cache

import "context"

// Cache is a string key value cache. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
