package reconcile

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aura-media/vod-backend/internal/models"
)

// JobCategory says which rendition slots a completed job may populate.
type JobCategory string

const (
	CategoryFree    JobCategory = "free"
	CategoryFull    JobCategory = "full"
	CategoryUnknown JobCategory = "unknown"
)

// rendition describes one output the transcoding jobs produce.
type rendition struct {
	tag    models.RenditionTag
	dir    string
	suffix string
}

var renditions = []rendition{
	{models.RenditionFree, "free", "_free_480p.mp4"},
	{models.RenditionStandard, "standard", "_standard_480p.mp4"},
	{models.RenditionPremium720p, "premium", "_premium_720p.mp4"},
	{models.RenditionPremium1080p, "premium", "_premium_1080p.mp4"},
}

// ownedTags lists the tags each job category writes.
var ownedTags = map[JobCategory][]models.RenditionTag{
	CategoryFree: {models.RenditionFree},
	CategoryFull: {models.RenditionStandard, models.RenditionPremium720p, models.RenditionPremium1080p},
}

var thumbnailPattern = regexp.MustCompile(`^(.+)_thumbnail\.\d+\.[A-Za-z0-9]+$`)

// ExtractFilename recovers the source filename from the first output path that
// carries a known rendition or thumbnail suffix.
func ExtractFilename(ev *Event) (string, bool) {
	for _, p := range ev.OutputPaths() {
		if name, ok := filenameFromPath(p); ok {
			return name, true
		}
	}
	return "", false
}

func filenameFromPath(p string) (string, bool) {
	base := path.Base(p)
	for _, r := range renditions {
		if strings.HasSuffix(base, r.suffix) {
			name := strings.TrimSuffix(base, r.suffix)
			return name, name != ""
		}
	}
	if m := thumbnailPattern.FindStringSubmatch(base); m != nil {
		return m[1], true
	}
	return "", false
}

// ClassifyJob derives the job category from the output directories.
func ClassifyJob(ev *Event) JobCategory {
	for _, p := range ev.OutputPaths() {
		switch {
		case strings.Contains(p, "/free/"):
			return CategoryFree
		case strings.Contains(p, "/standard/"), strings.Contains(p, "/premium/"):
			return CategoryFull
		}
	}
	return CategoryUnknown
}

// ExtractDuration returns the media duration in seconds, preferring the
// output-level field over the job-level one. Zero durations are ignored.
func ExtractDuration(ev *Event) (float64, bool) {
	for _, g := range ev.OutputGroupDetails {
		for _, o := range g.OutputDetails {
			if o.DurationInMs != nil && *o.DurationInMs > 0 {
				return *o.DurationInMs / 1000.0, true
			}
		}
	}
	if ev.JobDetails != nil && ev.JobDetails.DurationInMs != nil && *ev.JobDetails.DurationInMs > 0 {
		return *ev.JobDetails.DurationInMs / 1000.0, true
	}
	return 0, false
}

// RenditionURLs returns the CDN URLs of the renditions a job category produced.
func RenditionURLs(cdnDomain, filename string, cat JobCategory) map[models.RenditionTag]string {
	out := make(map[models.RenditionTag]string)
	for _, tag := range ownedTags[cat] {
		for _, r := range renditions {
			if r.tag == tag {
				out[tag] = fmt.Sprintf("https://%s/%s/%s%s", cdnDomain, r.dir, filename, r.suffix)
			}
		}
	}
	return out
}

// ThumbnailURL returns the CDN URL of the thumbnail the job wrote, or the
// conventional first-frame location when the event lists none.
func ThumbnailURL(ev *Event, cdnDomain, filename string) string {
	for _, p := range ev.OutputPaths() {
		if strings.Contains(p, "/thumbnails/") && strings.Contains(p, "_thumbnail.") {
			return fmt.Sprintf("https://%s/thumbnails/%s", cdnDomain, path.Base(p))
		}
	}
	return fmt.Sprintf("https://%s/thumbnails/%s_thumbnail.0000000.jpg", cdnDomain, filename)
}

// Title turns a filename into a display title: separators become spaces and
// each run of letters is capitalised.
func Title(filename string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(filename)
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// ExtractFileSize reads the source size the submitter tagged onto the job.
func ExtractFileSize(ev *Event) (int64, bool) {
	n, err := strconv.ParseInt(ev.UserMetadata["fileSize"], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
