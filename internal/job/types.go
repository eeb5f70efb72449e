package job

import (
	"context"
	"time"
)

// Type is the kind of media job carried on the queue.
type Type string

const (
	TypeExtractAudio     Type = "extract_audio"
	TypeCreateTranscript Type = "create_transcript"
)

// Valid reports whether t names a known job type.
func (t Type) Valid() bool {
	return t == TypeExtractAudio || t == TypeCreateTranscript
}

// Message is the JSON body of a queued job.
type Message struct {
	JobID     string    `json:"job_id"`
	Type      Type      `json:"type"`
	VideoID   string    `json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler processes one job for a video.
type Handler func(ctx context.Context, videoID string) error

// Handlers routes messages by type.
type Handlers map[Type]Handler
