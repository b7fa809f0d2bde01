package ingest

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTemplate = JobTemplate{Role: "arn:aws:iam::123:role/mc", Queue: "arn:queue", OutputBucket: "vod-out"}
	testSource   = Source{Bucket: "vod-in", Key: "uploads/my clip.mp4", Filename: "my clip", FileSize: 2048}
)

func destinations(groups []types.OutputGroup) map[string]string {
	out := map[string]string{}
	for _, g := range groups {
		out[aws.ToString(g.Outputs[0].NameModifier)] = aws.ToString(g.OutputGroupSettings.FileGroupSettings.Destination)
	}
	return out
}

func TestFreeJob(t *testing.T) {
	job := testTemplate.FreeJob(testSource)

	assert.Equal(t, "arn:aws:iam::123:role/mc", aws.ToString(job.Role))
	assert.Equal(t, "arn:queue", aws.ToString(job.Queue))
	assert.Equal(t, map[string]string{
		"originalFilename": "my clip",
		"originalKey":      "uploads/my clip.mp4",
		"inputBucket":      "vod-in",
		"jobType":          "free",
		"fileSize":         "2048",
	}, job.UserMetadata)

	require.Len(t, job.Settings.Inputs, 1)
	in := job.Settings.Inputs[0]
	assert.Equal(t, "s3://vod-in/uploads/my clip.mp4", aws.ToString(in.FileInput))
	require.Len(t, in.InputClippings, 1)
	assert.Equal(t, PreviewClipEnd, aws.ToString(in.InputClippings[0].EndTimecode))

	assert.Equal(t, map[string]string{"_free_480p": "s3://vod-out/free/"}, destinations(job.Settings.OutputGroups))
	v := job.Settings.OutputGroups[0].Outputs[0].VideoDescription
	assert.EqualValues(t, 480, aws.ToInt32(v.Height))
}

func TestFullJob(t *testing.T) {
	job := testTemplate.FullJob(testSource)

	assert.Equal(t, "full", job.UserMetadata["jobType"])
	assert.Empty(t, job.Settings.Inputs[0].InputClippings)
	assert.Equal(t, map[string]string{
		"_standard_480p": "s3://vod-out/standard/",
		"_premium_720p":  "s3://vod-out/premium/",
		"_premium_1080p": "s3://vod-out/premium/",
		"_thumbnail":     "s3://vod-out/thumbnails/",
	}, destinations(job.Settings.OutputGroups))

	thumb := job.Settings.OutputGroups[len(job.Settings.OutputGroups)-1].Outputs[0]
	assert.Equal(t, types.VideoCodecFrameCapture, thumb.VideoDescription.CodecSettings.Codec)
	assert.Equal(t, types.ContainerTypeRaw, thumb.ContainerSettings.Container)
}

func TestJobWithoutQueueOrSize(t *testing.T) {
	tpl := testTemplate
	tpl.Queue = ""
	src := testSource
	src.FileSize = 0

	job := tpl.FreeJob(src)
	assert.Nil(t, job.Queue)
	assert.NotContains(t, job.UserMetadata, "fileSize")
}
