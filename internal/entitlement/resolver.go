// Package entitlement resolves a subscriber's subscription tier from the identity store.
package entitlement

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/metrics"
	"github.com/aura-media/vod-backend/internal/models"
)

// TierAttribute is the identity store attribute holding the subscription type.
const TierAttribute = "custom:subscription_type"

// AttributeSource reads a single user attribute from the identity store.
type AttributeSource interface {
	UserAttribute(ctx context.Context, username, name string) (value string, found bool, err error)
}

// Cache is an optional short-lived store of resolved tiers.
type Cache interface {
	Get(ctx context.Context, username string) (string, bool, error)
	Set(ctx context.Context, username, tier string) error
}

// legacyTiers maps retired plan names onto current tiers.
var legacyTiers = map[string]models.Tier{
	"trial":  models.TierFree,
	"guest":  models.TierFree,
	"saving": models.TierStandard,
}

// Normalize maps a stored attribute value onto a tier. Unknown values are free.
func Normalize(value string) models.Tier {
	v := models.Tier(strings.TrimSpace(value))
	switch v {
	case models.TierFree, models.TierStandard, models.TierPremium:
		return v
	}
	if t, ok := legacyTiers[string(v)]; ok {
		return t
	}
	return models.TierFree
}

// Resolver maps usernames to tiers. Any uncertainty resolves to the free tier.
type Resolver struct {
	source AttributeSource
	cache  Cache
	logger *zap.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(source AttributeSource, cache Cache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, cache: cache, logger: logger}
}

// Resolve returns the tier of username. It never fails: lookup errors and
// missing or unrecognised attributes all resolve to free.
func (r *Resolver) Resolve(ctx context.Context, username string) models.Tier {
	if username == "" {
		metrics.EntitlementLookups.WithLabelValues("default").Inc()
		return models.TierFree
	}
	if r.cache != nil {
		if v, ok, err := r.cache.Get(ctx, username); err == nil && ok {
			metrics.EntitlementLookups.WithLabelValues("cached").Inc()
			return Normalize(v)
		} else if err != nil {
			r.logger.Warn("tier cache read failed", zap.String("username", username), zap.Error(err))
		}
	}

	value, found, err := r.source.UserAttribute(ctx, username, TierAttribute)
	if err != nil {
		metrics.EntitlementLookups.WithLabelValues("error").Inc()
		r.logger.Warn("identity store lookup failed, defaulting to free tier", zap.String("username", username), zap.Error(err))
		return models.TierFree
	}
	if !found {
		metrics.EntitlementLookups.WithLabelValues("default").Inc()
		r.logger.Debug("no subscription attribute, defaulting to free tier", zap.String("username", username))
		return models.TierFree
	}

	tier := Normalize(value)
	metrics.EntitlementLookups.WithLabelValues("hit").Inc()
	if r.cache != nil {
		if err := r.cache.Set(ctx, username, string(tier)); err != nil {
			r.logger.Warn("tier cache write failed", zap.String("username", username), zap.Error(err))
		}
	}
	r.logger.Debug("subscription tier resolved", zap.String("username", username), zap.String("stored", value), zap.String("tier", string(tier)))
	return tier
}
