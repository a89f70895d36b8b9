package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"

	"firewatch/internal/core/fire"
	"firewatch/internal/services/notify/domain"
)

// CachedLocations memoizes location lookups for ttl. Keys round coordinates
// to 5 decimals (about a meter), so detections on the same pixel share an entry
type CachedLocations struct {
	inner domain.LocationStore
	c     *cache.Cache
}

// NewCachedLocations wraps inner; ttl <= 0 returns inner unchanged
func NewCachedLocations(inner domain.LocationStore, ttl time.Duration) domain.LocationStore {
	if inner == nil {
		panic("notify: CachedLocations requires a non nil LocationStore")
	}
	if ttl <= 0 {
		return inner
	}
	return &CachedLocations{inner: inner, c: cache.New(ttl, 2*ttl)}
}

func pointKey(p orb.Point) string {
	return fmt.Sprintf("p:%.5f:%.5f", p.Lat(), p.Lon())
}

func boundKey(b orb.Bound) string {
	return fmt.Sprintf("b:%.5f:%.5f:%.5f:%.5f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

// FindNear implements domain.LocationStore
func (c *CachedLocations) FindNear(ctx context.Context, p orb.Point) ([]fire.Location, error) {
	return c.lookup(pointKey(p), func() ([]fire.Location, error) { return c.inner.FindNear(ctx, p) })
}

// FindNearIncident implements domain.LocationStore
func (c *CachedLocations) FindNearIncident(ctx context.Context, b orb.Bound) ([]fire.Location, error) {
	return c.lookup(boundKey(b), func() ([]fire.Location, error) { return c.inner.FindNearIncident(ctx, b) })
}

// Flush drops every cached entry
func (c *CachedLocations) Flush() { c.c.Flush() }

func (c *CachedLocations) lookup(key string, load func() ([]fire.Location, error)) ([]fire.Location, error) {
	if v, ok := c.c.Get(key); ok {
		return v.([]fire.Location), nil
	}
	locs, err := load()
	if err != nil {
		return nil, err
	}
	c.c.SetDefault(key, locs)
	return locs, nil
}
