package models

import "time"

// Video is an uploaded video record. This service only reads it.
type Video struct {
	ID       string `json:"id"`
	VideoURL string `json:"videoUrl"` // location reference into object storage
}

// TranscriptStatus marks whether a transcript record is terminal.
type TranscriptStatus string

const (
	TranscriptCompleted TranscriptStatus = "completed"
	TranscriptFailed    TranscriptStatus = "failed"
)

// Segment is one timed span of a transcript. Start and End keep the
// subtitle timestamp text as produced by the speech service.
type Segment struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

type Transcript struct {
	VideoID       string           `json:"videoId"`
	Content       string           `json:"content"`
	Segments      []Segment        `json:"segments"`
	Status        TranscriptStatus `json:"status"`
	Error         string           `json:"error,omitempty"`
	Language      string           `json:"language,omitempty"`
	AudioSize     int64            `json:"audioSize"`
	ContentLength int              `json:"contentLength"`
	SegmentCount  int              `json:"segmentCount"`
	CreatedAt     time.Time        `json:"createdAt"` // assigned by the store on write
}

// Completed reports whether t is a terminal, successful transcript.
func (t *Transcript) Completed() bool {
	return t != nil && t.Status == TranscriptCompleted
}
