package ingest

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// Job types tagged on every submitted job.
const (
	JobTypeFree = "free"
	JobTypeFull = "full"
)

// PreviewClipEnd bounds the free preview clip.
const PreviewClipEnd = "00:00:10;00"

// Source is one uploaded source file to transcode.
type Source struct {
	Bucket   string
	Key      string
	Filename string
	FileSize int64
}

// URI returns the s3:// location of the source.
func (s Source) URI() string { return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key) }

// rendition is one MP4 output of a job.
type rendition struct {
	group        string
	dir          string
	modifier     string
	width        int32
	height       int32
	videoBitrate int32
	audioBitrate int32
}

var (
	freeRendition  = rendition{"Free_Output", "free", "_free_480p", 854, 480, 1_000_000, 64_000}
	fullRenditions = []rendition{
		{"Standard_Output", "standard", "_standard_480p", 854, 480, 2_000_000, 96_000},
		{"Premium_720p_Output", "premium", "_premium_720p", 1280, 720, 4_000_000, 128_000},
		{"Premium_1080p_Output", "premium", "_premium_1080p", 1920, 1080, 6_000_000, 192_000},
	}
)

// JobTemplate holds the account-level settings shared by both jobs.
type JobTemplate struct {
	Role         string
	Queue        string
	OutputBucket string
}

// FreeJob builds the preview job: the first ten seconds at 480p.
func (t JobTemplate) FreeJob(src Source) *mediaconvert.CreateJobInput {
	in := sourceInput(src, types.InputTimecodeSourceZerobased)
	in.InputClippings = []types.InputClipping{{
		StartTimecode: aws.String("00:00:00;00"),
		EndTimecode:   aws.String(PreviewClipEnd),
	}}
	return t.job(src, JobTypeFree, in, []types.OutputGroup{t.mp4Group(freeRendition)})
}

// FullJob builds the full-length job: standard 480p, premium 720p and 1080p,
// and one thumbnail frame.
func (t JobTemplate) FullJob(src Source) *mediaconvert.CreateJobInput {
	groups := make([]types.OutputGroup, 0, len(fullRenditions)+1)
	for _, r := range fullRenditions {
		groups = append(groups, t.mp4Group(r))
	}
	groups = append(groups, t.thumbnailGroup())
	return t.job(src, JobTypeFull, sourceInput(src, types.InputTimecodeSourceEmbedded), groups)
}

func (t JobTemplate) job(src Source, jobType string, in types.Input, groups []types.OutputGroup) *mediaconvert.CreateJobInput {
	meta := map[string]string{
		"originalFilename": src.Filename,
		"originalKey":      src.Key,
		"inputBucket":      src.Bucket,
		"jobType":          jobType,
	}
	if src.FileSize > 0 {
		meta["fileSize"] = fmt.Sprintf("%d", src.FileSize)
	}
	job := &mediaconvert.CreateJobInput{
		Role:         aws.String(t.Role),
		UserMetadata: meta,
		Settings: &types.JobSettings{
			Inputs:       []types.Input{in},
			OutputGroups: groups,
		},
	}
	if t.Queue != "" {
		job.Queue = aws.String(t.Queue)
	}
	return job
}

func sourceInput(src Source, tc types.InputTimecodeSource) types.Input {
	return types.Input{
		FileInput:      aws.String(src.URI()),
		TimecodeSource: tc,
		AudioSelectors: map[string]types.AudioSelector{
			"Audio Selector 1": {
				DefaultSelection: types.AudioDefaultSelectionDefault,
				Offset:           aws.Int32(0),
				ProgramSelection: aws.Int32(1),
			},
		},
		VideoSelector: &types.VideoSelector{ColorSpace: types.ColorSpaceFollow},
	}
}

func (t JobTemplate) destination(dir string) *types.OutputGroupSettings {
	return &types.OutputGroupSettings{
		Type: types.OutputGroupTypeFileGroupSettings,
		FileGroupSettings: &types.FileGroupSettings{
			Destination: aws.String(fmt.Sprintf("s3://%s/%s/", t.OutputBucket, dir)),
		},
	}
}

func (t JobTemplate) mp4Group(r rendition) types.OutputGroup {
	return types.OutputGroup{
		Name:                aws.String(r.group),
		OutputGroupSettings: t.destination(r.dir),
		Outputs: []types.Output{{
			NameModifier: aws.String(r.modifier),
			VideoDescription: &types.VideoDescription{
				Width:  aws.Int32(r.width),
				Height: aws.Int32(r.height),
				CodecSettings: &types.VideoCodecSettings{
					Codec: types.VideoCodecH264,
					H264Settings: &types.H264Settings{
						Bitrate:          aws.Int32(r.videoBitrate),
						RateControlMode:  types.H264RateControlModeCbr,
						CodecProfile:     types.H264CodecProfileMain,
						FramerateControl: types.H264FramerateControlInitializeFromSource,
						GopSize:          aws.Float64(90),
					},
				},
			},
			AudioDescriptions: []types.AudioDescription{{
				CodecSettings: &types.AudioCodecSettings{
					Codec: types.AudioCodecAac,
					AacSettings: &types.AacSettings{
						Bitrate:         aws.Int32(r.audioBitrate),
						CodingMode:      types.AacCodingModeCodingMode20,
						SampleRate:      aws.Int32(48000),
						RateControlMode: types.AacRateControlModeCbr,
						CodecProfile:    types.AacCodecProfileLc,
					},
				},
			}},
			ContainerSettings: &types.ContainerSettings{
				Container: types.ContainerTypeMp4,
				Mp4Settings: &types.Mp4Settings{
					MoovPlacement: types.Mp4MoovPlacementProgressiveDownload,
				},
			},
		}},
	}
}

func (t JobTemplate) thumbnailGroup() types.OutputGroup {
	return types.OutputGroup{
		Name:                aws.String("Thumbnail_Output"),
		OutputGroupSettings: t.destination("thumbnails"),
		Outputs: []types.Output{{
			NameModifier: aws.String("_thumbnail"),
			VideoDescription: &types.VideoDescription{
				Width:  aws.Int32(1280),
				Height: aws.Int32(720),
				CodecSettings: &types.VideoCodecSettings{
					Codec: types.VideoCodecFrameCapture,
					FrameCaptureSettings: &types.FrameCaptureSettings{
						FramerateNumerator:   aws.Int32(1),
						FramerateDenominator: aws.Int32(10),
						MaxCaptures:          aws.Int32(1),
						Quality:              aws.Int32(80),
					},
				},
			},
			ContainerSettings: &types.ContainerSettings{Container: types.ContainerTypeRaw},
		}},
	}
}
