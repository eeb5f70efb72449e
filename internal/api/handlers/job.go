package handlers

import (
	"context"
	"net/http"

	"github.com/reelai/backend/internal/job"
)

// Enqueuer hands media jobs to the background worker.
type Enqueuer interface {
	Publish(ctx context.Context, typ job.Type, videoID string) (*job.Message, error)
}

type JobHandler struct {
	queue Enqueuer
}

func NewJobHandler(queue Enqueuer) *JobHandler {
	return &JobHandler{queue: queue}
}

type enqueueRequest struct {
	Type    job.Type `json:"type"`
	VideoID string   `json:"video_id"`
}

// Enqueue handles POST /jobs and answers 202 with the queued message.
func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Type.Valid() {
		jsonError(w, "type must be extract_audio or create_transcript", http.StatusBadRequest)
		return
	}
	if req.VideoID == "" {
		jsonError(w, "video_id is required", http.StatusBadRequest)
		return
	}

	msg, err := h.queue.Publish(r.Context(), req.Type, req.VideoID)
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, map[string]interface{}{"success": true, "job": msg}, http.StatusAccepted)
}
