package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-poto/core"
)

const principalCacheKeyPrefix = "go-poto::principal::v1"

// principalCacheEntry distinguishes a cached "not found" result (Found ==
// false) from a cached principal, since GetOrFetch caches its fetch
// function's return value directly and core.PrincipalStore.FindPrincipal's
// nil-without-error result has no zero-value *core.Principal to cache
// safely.
type principalCacheEntry struct {
	Found     bool
	Principal core.Principal
}

// CachedPrincipalStore wraps a base core.PrincipalStore with a read-through
// cache, mirroring the teacher's CachedRateLimitStateStore: GetOrFetch for
// reads, explicit invalidation after writes.
type CachedPrincipalStore struct {
	base  core.PrincipalStore
	cache repositorycache.CacheService
}

func NewCachedPrincipalStore(base core.PrincipalStore, cacheService repositorycache.CacheService) (*CachedPrincipalStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base principal store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: principal cache service is required")
	}
	return &CachedPrincipalStore{base: base, cache: cacheService}, nil
}

// PrincipalCacheKey returns the deterministic cache key contract for a
// principal lookup: go-poto::principal::v1::<user_id>.
func PrincipalCacheKey(userID string) string {
	return strings.Join([]string{principalCacheKeyPrefix, url.PathEscape(normalizedID(userID))}, "::")
}

func (s *CachedPrincipalStore) FindPrincipal(ctx context.Context, userID string) (*core.Principal, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached principal store is not configured")
	}
	cacheKey := PrincipalCacheKey(userID)
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (principalCacheEntry, error) {
		fetched, fetchErr := s.base.FindPrincipal(ctx, userID)
		if fetchErr != nil {
			return principalCacheEntry{}, fetchErr
		}
		if fetched == nil {
			return principalCacheEntry{Found: false}, nil
		}
		return principalCacheEntry{Found: true, Principal: *fetched}, nil
	})
	if err != nil {
		return nil, err
	}
	if !entry.Found {
		return nil, nil
	}
	principal := entry.Principal
	return &principal, nil
}

// AddPrincipal writes through to base and invalidates the cache key so a
// subsequent FindPrincipal observes the new principal instead of a cached
// not-found result.
func (s *CachedPrincipalStore) AddPrincipal(ctx context.Context, principal core.Principal) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("sqlstore: cached principal store is not configured")
	}
	inserted, err := s.base.AddPrincipal(ctx, principal)
	if err != nil {
		return false, err
	}
	if inserted {
		if err := s.cache.Delete(ctx, PrincipalCacheKey(principal.ID())); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

var _ core.PrincipalStore = (*CachedPrincipalStore)(nil)
