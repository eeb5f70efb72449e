package handlers

import (
	"context"
	"net/http"

	"github.com/reelai/backend/internal/db/models"
	"github.com/reelai/backend/internal/transcript"
)

// TranscriptCreator produces or reuses a video's transcript.
type TranscriptCreator interface {
	Create(ctx context.Context, videoID string) (*transcript.Result, error)
}

type TranscriptHandler struct {
	transcripts TranscriptCreator
}

func NewTranscriptHandler(transcripts TranscriptCreator) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

type transcriptResponse struct {
	Success    bool               `json:"success"`
	Skipped    bool               `json:"skipped"`
	Transcript *models.Transcript `json:"transcript"`
}

// CreateTranscript handles POST /create_transcript.
func (h *TranscriptHandler) CreateTranscript(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.transcripts.Create(r.Context(), req.VideoID)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, transcriptResponse{Success: true, Skipped: res.Skipped, Transcript: res.Transcript}, http.StatusOK)
}
