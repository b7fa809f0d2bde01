package reconcile

import (
	"bytes"
	"encoding/json"
)

// Transcoding job states carried by completion events.
const (
	StatusComplete = "COMPLETE"
	StatusError    = "ERROR"
)

// Envelope is the event-bus wrapper around a job state change.
type Envelope struct {
	Source     string `json:"source,omitempty"`
	DetailType string `json:"detail-type,omitempty"`
	Detail     Event  `json:"detail"`
}

// Event is the detail of a transcoding job state change.
type Event struct {
	JobID              string              `json:"jobId"`
	Status             string              `json:"status"`
	OutputGroupDetails []OutputGroupDetail `json:"outputGroupDetails,omitempty"`
	JobDetails         *JobDetails         `json:"jobDetails,omitempty"`
	ErrorCode          FlexString          `json:"errorCode,omitempty"`
	ErrorMessage       string              `json:"errorMessage,omitempty"`
	UserMetadata       map[string]string   `json:"userMetadata,omitempty"`
}

// OutputGroupDetail lists the outputs written by one output group.
type OutputGroupDetail struct {
	OutputDetails []OutputDetail `json:"outputDetails"`
}

// OutputDetail describes one written output.
type OutputDetail struct {
	OutputFilePaths []string `json:"outputFilePaths"`
	DurationInMs    *float64 `json:"durationInMs,omitempty"`
}

// JobDetails carries job-level facts.
type JobDetails struct {
	DurationInMs *float64 `json:"durationInMs,omitempty"`
}

// OutputPaths returns every declared output path in event order.
func (e *Event) OutputPaths() []string {
	var paths []string
	for _, g := range e.OutputGroupDetails {
		for _, o := range g.OutputDetails {
			for _, p := range o.OutputFilePaths {
				if p != "" {
					paths = append(paths, p)
				}
			}
		}
	}
	return paths
}

// FlexString accepts a JSON string or number. The transcoding service reports
// error codes as numbers while other producers send strings.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
