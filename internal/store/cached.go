package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/passguard/internal/cache"
)

// cachedStore memoizes RoleOverrides lookups. Both hits and misses are
// cached so an unknown role does not hammer the backend on every
// credential change.
type cachedStore struct {
	inner Store
	cache cache.Client
	ttl   time.Duration
}

// cachedEntry is the serialized cache value. Found distinguishes a cached
// miss from a cached hit with zero overrides.
type cachedEntry struct {
	Found     bool      `json:"found"`
	Overrides Overrides `json:"overrides"`
}

// WithCache wraps inner so lookups are served from c for ttl.
func WithCache(inner Store, c cache.Client, ttl time.Duration) Store {
	return &cachedStore{inner: inner, cache: c, ttl: ttl}
}

func (s *cachedStore) RoleOverrides(ctx context.Context, role string) (Overrides, bool, error) {
	key := "role:" + role

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var e cachedEntry
		if json.Unmarshal([]byte(raw), &e) == nil {
			return e.Overrides, e.Found, nil
		}
		// Corrupt entry: drop it and fall through to the backend.
		_ = s.cache.Delete(ctx, key)
	}

	o, found, err := s.inner.RoleOverrides(ctx, role)
	if err != nil {
		return Overrides{}, false, err
	}

	if raw, err := json.Marshal(cachedEntry{Found: found, Overrides: o}); err == nil {
		_ = s.cache.Set(ctx, key, string(raw), s.ttl)
	}
	return o, found, nil
}

func (s *cachedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *cachedStore) Close() error {
	_ = s.cache.Close()
	return s.inner.Close()
}
