package audio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/storage"
)

const urlOpName = "audio_url"

// Link is a time-limited download URL for an extracted audio artifact.
type Link struct {
	VideoID   string    `json:"videoId"`
	Key       string    `json:"path"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignedURL returns a download URL for a video's extracted audio, valid
// for ttl.
func (e *Extractor) SignedURL(ctx context.Context, videoID string, ttl time.Duration) (*Link, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, apperr.Validation(urlOpName, "video_id is required")
	}
	if ttl <= 0 {
		return nil, apperr.Validation(urlOpName, "expiry must be positive")
	}

	key := Key(videoID)
	attrs, err := e.bucket.Attrs(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, apperr.NotFound(urlOpName, "extracted audio not found")
	}
	if err != nil {
		return nil, apperr.Dependency(urlOpName, "failed to read the audio metadata", err)
	}

	signed, err := e.bucket.SignedURL(ctx, key, ttl)
	if err != nil {
		return nil, apperr.Dependency(urlOpName, "failed to sign the audio URL", err)
	}
	return &Link{
		VideoID:   videoID,
		Key:       key,
		URL:       signed,
		Size:      attrs.Size,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}
