package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-media/vod-backend/internal/models"
)

type fakeSource struct {
	attrs map[string]string
	err   error
	calls int
}

func (f *fakeSource) UserAttribute(_ context.Context, username, name string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	if name != TierAttribute {
		return "", false, nil
	}
	v, ok := f.attrs[username]
	return v, ok, nil
}

type mapCache struct {
	m   map[string]string
	err error
}

func (c *mapCache) Get(_ context.Context, username string) (string, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	v, ok := c.m[username]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, username, tier string) error {
	if c.err != nil {
		return c.err
	}
	c.m[username] = tier
	return nil
}

func TestResolveMapping(t *testing.T) {
	src := &fakeSource{attrs: map[string]string{
		"f": "free", "s": "standard", "p": "premium",
		"trial": "trial", "guest": "guest", "saving": "saving",
		"odd": "xyz", "blank": "", "upper": "PREMIUM",
	}}
	r := NewResolver(src, nil, nil)
	ctx := context.Background()

	cases := map[string]models.Tier{
		"f":       models.TierFree,
		"s":       models.TierStandard,
		"p":       models.TierPremium,
		"trial":   models.TierFree,
		"guest":   models.TierFree,
		"saving":  models.TierStandard,
		"odd":     models.TierFree,
		"blank":   models.TierFree,
		"upper":   models.TierFree,
		"missing": models.TierFree,
		"":        models.TierFree,
	}
	for user, want := range cases {
		assert.Equal(t, want, r.Resolve(ctx, user), user)
	}
}

func TestResolveLookupErrorDefaultsToFree(t *testing.T) {
	r := NewResolver(&fakeSource{err: errors.New("throttled")}, nil, nil)
	assert.Equal(t, models.TierFree, r.Resolve(context.Background(), "p"))
}

func TestResolveUsesCache(t *testing.T) {
	src := &fakeSource{attrs: map[string]string{"p": "premium"}}
	cache := &mapCache{m: map[string]string{}}
	r := NewResolver(src, cache, nil)
	ctx := context.Background()

	assert.Equal(t, models.TierPremium, r.Resolve(ctx, "p"))
	assert.Equal(t, models.TierPremium, r.Resolve(ctx, "p"))
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "premium", cache.m["p"])
}

func TestResolveDoesNotCacheDefaults(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	cache := &mapCache{m: map[string]string{}}
	r := NewResolver(src, cache, nil)

	assert.Equal(t, models.TierFree, r.Resolve(context.Background(), "p"))
	assert.Empty(t, cache.m)
}

func TestResolveCacheFailureFallsThrough(t *testing.T) {
	src := &fakeSource{attrs: map[string]string{"s": "saving"}}
	r := NewResolver(src, &mapCache{err: errors.New("redis down")}, nil)
	assert.Equal(t, models.TierStandard, r.Resolve(context.Background(), "s"))
}

func TestResolveWithoutUserPool(t *testing.T) {
	r := NewResolver(NoopSource{}, nil, nil)
	assert.Equal(t, models.TierFree, r.Resolve(context.Background(), "alice"))
}
