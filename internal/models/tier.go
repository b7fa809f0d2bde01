package models

// Tier is a subscriber's subscription level.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)
