package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/awgen/pkg/repository/settings"
	"golang.org/x/sync/singleflight"
)

// SettingsStore is a read-through, write-through cache in front of a
// settings.Store. Concurrent misses for one key share a single load.
//
// Every write bumps a per-key generation under mu. A load only fills the
// cache when the generation it started with is still current, so a read
// that raced a write never puts the older value back.
type SettingsStore struct {
	next     settings.Store
	cache    Cache
	inflight singleflight.Group
	logger   *slog.Logger

	mu  sync.Mutex
	gen map[string]uint64
}

var _ settings.Store = (*SettingsStore)(nil)

// NewSettingsStore wraps next with cache.
func NewSettingsStore(next settings.Store, cache Cache, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		next:   next,
		cache:  cache,
		logger: logger.With("component", "settings_cache"),
		gen:    make(map[string]uint64),
	}
}

func (s *SettingsStore) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[key]
}

// fill caches value unless key was written since generation g.
func (s *SettingsStore) fill(ctx context.Context, key, value string, g uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[key] != g {
		s.logger.Debug("Skipping stale settings fill", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("Settings cache fill failed", "key", key, "error", err)
	}
}

func (s *SettingsStore) GetSetting(ctx context.Context, key string) (*string, error) {
	if v, ok, err := s.cache.Get(ctx, key); err != nil {
		// Fall through to the store.
		s.logger.Warn("Settings cache read failed", "key", key, "error", err)
	} else if ok {
		return &v, nil
	}

	res, err, shared := s.inflight.Do(key, func() (any, error) {
		// The load is shared, so it must not die with whichever caller
		// happened to start it.
		loadCtx := context.WithoutCancel(ctx)
		g := s.generation(key)
		v, err := s.next.GetSetting(loadCtx, key)
		if err != nil || v == nil {
			return v, err
		}
		s.fill(loadCtx, key, *v, g)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Settings load shared", "key", key)
	}
	v, _ := res.(*string)
	if v == nil {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (s *SettingsStore) SetSetting(ctx context.Context, key string, value *string) error {
	if err := s.next.SetSetting(ctx, key, value); err != nil {
		return err
	}
	// Readers arriving from now on start a fresh load.
	s.inflight.Forget(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[key]++
	var err error
	if value == nil {
		err = s.cache.Delete(ctx, key)
	} else {
		err = s.cache.Set(ctx, key, *value)
	}
	if err != nil {
		// Drop the entry so the next read goes to the store.
		s.logger.Warn("Settings cache write failed", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
	}
	return nil
}

// All always reads the store and refreshes the cache with what it finds.
// Keys written while the read was in flight keep their newer cache entry.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	before := make(map[string]uint64, len(s.gen))
	for k, g := range s.gen {
		before[k] = g
	}
	s.mu.Unlock()

	all, err := s.next.All(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range all {
		s.fill(ctx, k, v, before[k])
	}
	return all, nil
}
