package db

import (
	"context"
	"errors"

	"github.com/reelai/backend/internal/db/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the document database holding video and transcript records.
type Store interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
	// SaveTranscript writes t under its video ID and sets CreatedAt to the
	// store's write time.
	SaveTranscript(ctx context.Context, t *models.Transcript) error
	Close() error
}
