package whisper

import "context"

// TranscribeRequest is the input for a transcription
type TranscribeRequest struct {
	FilePath string // local audio file
	Language string // ISO 639-1 hint, "" or "auto" to let the engine detect
}

// TranscribeResult is the output of a transcription
type TranscribeResult struct {
	VTT      string // WebVTT content
	Language string // language hint echoed back, if any
}

// Transcriber is the common interface for all speech-to-text engines
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error)
	Name() string
}
