package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/reelai/backend/internal/audio"
)

// AudioService extracts audio artifacts and signs download URLs for them.
type AudioService interface {
	Extract(ctx context.Context, videoID string) (*audio.Result, error)
	SignedURL(ctx context.Context, videoID string, ttl time.Duration) (*audio.Link, error)
}

type AudioHandler struct {
	audio      AudioService
	defaultTTL time.Duration
	maxTTL     time.Duration
}

func NewAudioHandler(svc AudioService, defaultTTL time.Duration) *AudioHandler {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &AudioHandler{audio: svc, defaultTTL: defaultTTL, maxTTL: 7 * 24 * time.Hour}
}

type videoRequest struct {
	VideoID string `json:"video_id"`
}

type extractResponse struct {
	Success bool `json:"success"`
	*audio.Result
}

// ExtractAudio handles POST /extract_audio.
func (h *AudioHandler) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.audio.Extract(r.Context(), req.VideoID)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, extractResponse{Success: true, Result: res}, http.StatusOK)
}

type audioURLRequest struct {
	VideoID        string `json:"video_id"`
	ExpiresMinutes int    `json:"expires_minutes"`
}

type audioURLResponse struct {
	Success bool `json:"success"`
	*audio.Link
}

// AudioURL handles POST /audio_url.
func (h *AudioHandler) AudioURL(w http.ResponseWriter, r *http.Request) {
	var req audioURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExpiresMinutes < 0 {
		jsonError(w, "expires_minutes must be positive", http.StatusBadRequest)
		return
	}

	ttl := h.defaultTTL
	if req.ExpiresMinutes > 0 {
		minutes := req.ExpiresMinutes
		if limit := int(h.maxTTL / time.Minute); minutes > limit {
			minutes = limit
		}
		ttl = time.Duration(minutes) * time.Minute
	}
	if ttl > h.maxTTL {
		ttl = h.maxTTL
	}

	link, err := h.audio.SignedURL(r.Context(), req.VideoID, ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, audioURLResponse{Success: true, Link: link}, http.StatusOK)
}
