// Package playback decides which rendition a subscriber may stream and for how long.
package playback

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aura-media/vod-backend/internal/models"
)

var (
	// ErrNotFound means the record is not playable: it is still processing or failed.
	ErrNotFound = errors.New("video not available for playback")
	// ErrRenditionUnavailable means a completed record lacks the rendition the tier requires.
	ErrRenditionUnavailable = errors.New("rendition unavailable for subscription tier")
)

// FreePreviewSeconds caps free-tier playback.
const FreePreviewSeconds = 10

// Link lifetimes per tier.
const (
	FreeLinkTTL = 15 * time.Minute
	PaidLinkTTL = 2 * time.Hour
)

// Features lists the player capabilities unlocked by a tier.
type Features struct {
	MaxDuration      int  `json:"maxDuration,omitempty"`
	FullAccess       bool `json:"fullAccess,omitempty"`
	QualitySelection bool `json:"qualitySelection,omitempty"`
}

// Descriptor is the playback grant returned to the player.
type Descriptor struct {
	VideoID            string      `json:"videoId"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	Thumbnail          string      `json:"thumbnail"`
	Duration           float64     `json:"duration"`
	SubscriptionType   models.Tier `json:"subscriptionType"`
	VideoURL           string      `json:"videoUrl"`
	Quality            string      `json:"quality"`
	MaxDuration        *int        `json:"maxDuration"`
	AvailableQualities []string    `json:"availableQualities"`
	Features           Features    `json:"features"`
	User               string      `json:"user,omitempty"`
	ExpiresAt          int64       `json:"expiresAt"`
}

// selection is one row of the rendition table.
type selection struct {
	tag     models.RenditionTag
	quality string
}

// Select returns the rendition tag and reported quality for tier and the
// requested quality. Only premium honours a request; anything other than
// 480p or 1080p selects 720p.
func Select(tier models.Tier, requested string) (models.RenditionTag, string) {
	s := selectRendition(tier, requested)
	return s.tag, s.quality
}

func selectRendition(tier models.Tier, requested string) selection {
	switch tier {
	case models.TierPremium:
		switch requested {
		case models.Quality1080p:
			return selection{models.RenditionPremium1080p, models.Quality1080p}
		case models.Quality480p:
			return selection{models.RenditionStandard, models.Quality480p}
		default:
			return selection{models.RenditionPremium720p, models.Quality720p}
		}
	case models.TierStandard:
		return selection{models.RenditionStandard, models.Quality480p}
	default:
		return selection{models.RenditionFree, models.Quality480p}
	}
}

// LinkTTL returns how long a playback link for tier stays valid.
func LinkTTL(tier models.Tier) time.Duration {
	if tier == models.TierStandard || tier == models.TierPremium {
		return PaidLinkTTL
	}
	return FreeLinkTTL
}

// AvailableQualities is the quality ceiling a tier is entitled to.
func AvailableQualities(tier models.Tier) []string {
	if tier == models.TierPremium {
		return slices.Clone(models.AllQualities)
	}
	return []string{models.Quality480p}
}

func features(tier models.Tier) Features {
	switch tier {
	case models.TierPremium:
		return Features{FullAccess: true, QualitySelection: true}
	case models.TierStandard:
		return Features{FullAccess: true}
	default:
		return Features{MaxDuration: FreePreviewSeconds}
	}
}

// Authorize builds the playback descriptor for tier on v at time now. It has
// no side effects. Tiers outside the known set are treated as free.
func Authorize(tier models.Tier, v *models.Video, requested string, now time.Time) (*Descriptor, error) {
	if v == nil || v.Status != models.VideoStatusCompleted {
		return nil, ErrNotFound
	}
	switch tier {
	case models.TierFree, models.TierStandard, models.TierPremium:
	default:
		tier = models.TierFree
	}

	sel := selectRendition(tier, requested)
	base := v.RenditionURLs[sel.tag]
	if base == "" {
		return nil, fmt.Errorf("%w: %s requires %s on video %s", ErrRenditionUnavailable, tier, sel.tag, v.VideoID)
	}
	expires := now.Add(LinkTTL(tier)).Unix()

	d := &Descriptor{
		VideoID:            v.VideoID,
		Title:              v.Title,
		Description:        v.Description,
		Thumbnail:          v.ThumbnailURL,
		SubscriptionType:   tier,
		VideoURL:           withExpiry(base, expires),
		Quality:            sel.quality,
		AvailableQualities: AvailableQualities(tier),
		Features:           features(tier),
		ExpiresAt:          expires,
	}
	if d.Title == "" {
		d.Title = "Untitled Video"
	}
	if v.DurationSeconds != nil {
		d.Duration = *v.DurationSeconds
	}
	if tier == models.TierFree {
		capped := FreePreviewSeconds
		d.MaxDuration = &capped
	}
	return d, nil
}

func withExpiry(u string, expires int64) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sexpires=%d", u, sep, expires)
}
