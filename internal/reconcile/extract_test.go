package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-media/vod-backend/internal/models"
)

func ms(v float64) *float64 { return &v }

func eventWithPaths(jobID, status string, paths ...string) Event {
	ev := Event{JobID: jobID, Status: status}
	if len(paths) > 0 {
		ev.OutputGroupDetails = []OutputGroupDetail{{OutputDetails: []OutputDetail{{OutputFilePaths: paths}}}}
	}
	return ev
}

func TestExtractFilename(t *testing.T) {
	cases := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{"free", "s3://out/free/myclip_free_480p.mp4", "myclip", true},
		{"standard", "s3://out/standard/my_clip_standard_480p.mp4", "my_clip", true},
		{"premium 720", "s3://out/premium/a.b_premium_720p.mp4", "a.b", true},
		{"premium 1080", "s3://out/premium/x_premium_1080p.mp4", "x", true},
		{"thumbnail", "s3://out/thumbnails/myclip_thumbnail.0000000.jpg", "myclip", true},
		{"unknown suffix", "s3://out/other/myclip.mp4", "", false},
		{"bare suffix", "s3://out/free/_free_480p.mp4", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := eventWithPaths("j", StatusComplete, tc.path)
			got, ok := ExtractFilename(&ev)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractFilenameSkipsUnrecognisedPaths(t *testing.T) {
	ev := eventWithPaths("j", StatusComplete, "s3://out/misc/readme.txt", "s3://out/standard/clip_standard_480p.mp4")
	got, ok := ExtractFilename(&ev)
	require.True(t, ok)
	assert.Equal(t, "clip", got)
}

func TestClassifyJob(t *testing.T) {
	free := eventWithPaths("j", StatusComplete, "s3://out/free/c_free_480p.mp4")
	full := eventWithPaths("j", StatusComplete, "s3://out/thumbnails/c_thumbnail.0000000.jpg", "s3://out/premium/c_premium_720p.mp4")
	none := eventWithPaths("j", StatusComplete, "s3://out/elsewhere/c.mp4")

	assert.Equal(t, CategoryFree, ClassifyJob(&free))
	assert.Equal(t, CategoryFull, ClassifyJob(&full))
	assert.Equal(t, CategoryUnknown, ClassifyJob(&none))
}

func TestExtractDuration(t *testing.T) {
	ev := Event{
		OutputGroupDetails: []OutputGroupDetail{{OutputDetails: []OutputDetail{
			{DurationInMs: ms(0)},
			{DurationInMs: ms(125500)},
		}}},
		JobDetails: &JobDetails{DurationInMs: ms(99000)},
	}
	d, ok := ExtractDuration(&ev)
	require.True(t, ok)
	assert.InDelta(t, 125.5, d, 1e-9)

	ev.OutputGroupDetails = nil
	d, ok = ExtractDuration(&ev)
	require.True(t, ok)
	assert.InDelta(t, 99.0, d, 1e-9)

	ev.JobDetails = &JobDetails{DurationInMs: ms(0)}
	_, ok = ExtractDuration(&ev)
	assert.False(t, ok)
}

func TestRenditionURLs(t *testing.T) {
	free := RenditionURLs("cdn.example.com", "myclip", CategoryFree)
	assert.Equal(t, map[models.RenditionTag]string{
		models.RenditionFree: "https://cdn.example.com/free/myclip_free_480p.mp4",
	}, free)

	full := RenditionURLs("cdn.example.com", "myclip", CategoryFull)
	assert.Equal(t, map[models.RenditionTag]string{
		models.RenditionStandard:     "https://cdn.example.com/standard/myclip_standard_480p.mp4",
		models.RenditionPremium720p:  "https://cdn.example.com/premium/myclip_premium_720p.mp4",
		models.RenditionPremium1080p: "https://cdn.example.com/premium/myclip_premium_1080p.mp4",
	}, full)

	assert.Empty(t, RenditionURLs("cdn.example.com", "myclip", CategoryUnknown))
}

func TestThumbnailURL(t *testing.T) {
	ev := eventWithPaths("j", StatusComplete, "s3://out/thumbnails/myclip_thumbnail.0000003.jpg")
	assert.Equal(t, "https://cdn/thumbnails/myclip_thumbnail.0000003.jpg", ThumbnailURL(&ev, "cdn", "myclip"))

	ev = eventWithPaths("j", StatusComplete, "s3://out/free/myclip_free_480p.mp4")
	assert.Equal(t, "https://cdn/thumbnails/myclip_thumbnail.0000000.jpg", ThumbnailURL(&ev, "cdn", "myclip"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "My Holiday Clip", Title("my_holiday-clip"))
	assert.Equal(t, "Episode 2X Final", Title("EPISODE_2x_final"))
	assert.Equal(t, "Don'T Stop", Title("don't_stop"))
}

func TestEventDecoding(t *testing.T) {
	raw := `{"source":"aws.mediaconvert","detail-type":"MediaConvert Job State Change","detail":{
		"jobId":"1700000000000-abc","status":"ERROR","errorCode":1030,"errorMessage":"bad input",
		"outputGroupDetails":[{"outputDetails":[{"outputFilePaths":["s3://out/free/c_free_480p.mp4"],"durationInMs":10000}]}]}}`
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "1700000000000-abc", env.Detail.JobID)
	assert.Equal(t, FlexString("1030"), env.Detail.ErrorCode)
	assert.Equal(t, []string{"s3://out/free/c_free_480p.mp4"}, env.Detail.OutputPaths())

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"jobId":"j","status":"ERROR","errorCode":"AccessDenied"}`), &ev))
	assert.Equal(t, FlexString("AccessDenied"), ev.ErrorCode)
}
