package models

import (
	"slices"
	"time"
)

// VideoStatus represents the catalog lifecycle of a source video.
type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Valid reports whether s is a known status.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusProcessing, VideoStatusCompleted, VideoStatusFailed:
		return true
	}
	return false
}

// RenditionTag names one transcoded output of a source video.
type RenditionTag string

const (
	RenditionFree         RenditionTag = "free"
	RenditionStandard     RenditionTag = "standard"
	RenditionPremium720p  RenditionTag = "premium_720p"
	RenditionPremium1080p RenditionTag = "premium_1080p"
)

// Quality labels reported to players.
const (
	Quality480p  = "480p"
	Quality720p  = "720p"
	Quality1080p = "1080p"
)

// AllQualities is the quality set advertised on catalog records.
var AllQualities = []string{Quality480p, Quality720p, Quality1080p}

// Video is the catalog record for one uploaded source video.
type Video struct {
	VideoID            string                  `json:"videoId"`
	OriginalFilename   string                  `json:"originalFilename"`
	OriginalKey        string                  `json:"originalKey"`
	InputBucket        string                  `json:"inputBucket"`
	Status             VideoStatus             `json:"status"`
	RenditionURLs      map[RenditionTag]string `json:"videoUrls,omitempty"`
	ThumbnailURL       string                  `json:"thumbnailUrl,omitempty"`
	DurationSeconds    *float64                `json:"duration,omitempty"`
	FileSize           int64                   `json:"fileSize"`
	JobIDs             []string                `json:"jobIds"`
	AvailableQualities []string                `json:"availableQualities,omitempty"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	ErrorCode          string                  `json:"errorCode,omitempty"`
	ErrorMessage       string                  `json:"errorMessage,omitempty"`
	CreatedAt          time.Time               `json:"uploadDate"`
	CompletedAt        *time.Time              `json:"completedDate,omitempty"`
	FailedAt           *time.Time              `json:"errorDate,omitempty"`
	// Version is bumped on every successful write and guards conditional updates.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of v.
func (v *Video) Clone() *Video {
	if v == nil {
		return nil
	}
	out := *v
	if v.RenditionURLs != nil {
		out.RenditionURLs = make(map[RenditionTag]string, len(v.RenditionURLs))
		for k, u := range v.RenditionURLs {
			out.RenditionURLs[k] = u
		}
	}
	out.JobIDs = slices.Clone(v.JobIDs)
	out.AvailableQualities = slices.Clone(v.AvailableQualities)
	if v.DurationSeconds != nil {
		d := *v.DurationSeconds
		out.DurationSeconds = &d
	}
	if v.CompletedAt != nil {
		t := *v.CompletedAt
		out.CompletedAt = &t
	}
	if v.FailedAt != nil {
		t := *v.FailedAt
		out.FailedAt = &t
	}
	return &out
}
