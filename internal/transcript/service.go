// Package transcript turns a video's extracted audio into a stored,
// segmented transcript.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/audio"
	"github.com/reelai/backend/internal/db"
	"github.com/reelai/backend/internal/db/models"
	"github.com/reelai/backend/internal/language"
	"github.com/reelai/backend/internal/metrics"
	"github.com/reelai/backend/internal/notify"
	"github.com/reelai/backend/internal/storage"
	"github.com/reelai/backend/internal/subtitle"
	"github.com/reelai/backend/internal/subtitle/whisper"
)

const opName = "create_transcript"

// Store is the part of the document database the service uses.
type Store interface {
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
	SaveTranscript(ctx context.Context, t *models.Transcript) error
}

type Result struct {
	Transcript *models.Transcript `json:"transcript"`
	Skipped    bool               `json:"skipped"`
}

type Service struct {
	bucket   storage.Bucket
	store    Store
	stt      whisper.Transcriber
	detector language.Detector
	notifier notify.Notifier
	metrics  *metrics.Metrics
	tempDir  string

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
}

func NewService(bucket storage.Bucket, store Store, stt whisper.Transcriber, detector language.Detector, notifier notify.Notifier, m *metrics.Metrics, tempDir string) *Service {
	if detector == nil {
		detector = language.Fixed("")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		bucket:    bucket,
		store:     store,
		stt:       stt,
		detector:  detector,
		notifier:  notifier,
		metrics:   m,
		tempDir:   tempDir,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
	}
}

// Create transcribes audio/<videoID>.mp3 and stores the result, unless a
// completed transcript already exists.
func (s *Service) Create(ctx context.Context, videoID string) (res *Result, err error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, apperr.Validation(opName, "video_id is required")
	}
	logger := log.With().Str("op", opName).Str("videoId", videoID).Logger()

	defer func() {
		switch {
		case err != nil:
			s.metrics.Operation(opName, apperr.KindOf(err).String())
			s.publish(ctx, videoID, notify.StageFailed, err)
			logger.Error().Err(err).Msg("transcription failed")
		case res.Skipped:
			s.metrics.Operation(opName, "skipped")
		default:
			s.metrics.Operation(opName, "success")
		}
	}()

	existing, err := s.store.GetTranscript(ctx, videoID)
	switch {
	case err == nil && existing.Completed():
		logger.Info().Msg("transcript already exists")
		s.publish(ctx, videoID, notify.StageSkipped, nil)
		return &Result{Transcript: existing, Skipped: true}, nil
	case err != nil && !errors.Is(err, db.ErrNotFound):
		return nil, apperr.Dependency(opName, "failed to check for an existing transcript", err)
	}

	key := audio.Key(videoID)
	attrs, err := s.bucket.Attrs(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, apperr.NotFound(opName, "extracted audio not found")
	}
	if err != nil {
		return nil, apperr.Dependency(opName, "failed to read the audio metadata", err)
	}

	workDir, err := s.mkdirTemp(s.tempDir, "transcription_")
	if err != nil {
		return nil, apperr.Internal(opName, fmt.Errorf("create working directory: %w", err))
	}
	defer func() {
		if rmErr := s.removeAll(workDir); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", workDir).Msg("failed to clean up the working directory")
		}
	}()

	s.publish(ctx, videoID, notify.StageDownloading, nil)
	localPath := filepath.Join(workDir, videoID+".mp3")
	start := time.Now()
	if err := s.download(ctx, key, localPath, attrs.Size); err != nil {
		return nil, err
	}
	s.metrics.Stage(opName, "download", start)

	s.publish(ctx, videoID, notify.StageTranscribing, nil)
	start = time.Now()
	out, err := s.stt.Transcribe(ctx, whisper.TranscribeRequest{FilePath: localPath})
	s.metrics.ExternalCall("speech", start, err)
	if err != nil {
		s.saveFailure(ctx, videoID, attrs.Size, err)
		return nil, apperr.Dependency(opName, "speech recognition failed", err)
	}

	segments, content := subtitle.Parse(out.VTT)
	lang := out.Language
	if lang == "" || lang == "auto" {
		lang = s.detector.Detect(content)
	}

	t := &models.Transcript{
		VideoID:       videoID,
		Content:       content,
		Segments:      segments,
		Status:        models.TranscriptCompleted,
		Language:      lang,
		AudioSize:     attrs.Size,
		ContentLength: utf8.RuneCountInString(content),
		SegmentCount:  len(segments),
	}
	if err := s.store.SaveTranscript(ctx, t); err != nil {
		return nil, apperr.Dependency(opName, "failed to save the transcript", err)
	}
	s.publish(ctx, videoID, notify.StageFinished, nil)

	logger.Info().
		Int("segments", len(segments)).
		Int("contentLength", t.ContentLength).
		Str("language", lang).
		Msg("transcript created")
	return &Result{Transcript: t}, nil
}

// download copies the object to dst and checks the byte count against the
// declared size.
func (s *Service) download(ctx context.Context, key, dst string, size int64) error {
	f, err := os.Create(dst)
	if err != nil {
		return apperr.Internal(opName, err)
	}
	n, err := s.bucket.Download(ctx, key, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, storage.ErrNotExist) {
		return apperr.NotFound(opName, "extracted audio not found")
	}
	if err != nil {
		return apperr.Dependency(opName, "failed to download the audio", err)
	}
	if n != size {
		return apperr.Integrity(opName, fmt.Sprintf("downloaded %d bytes, expected %d", n, size))
	}
	return nil
}

// saveFailure records a failed attempt. Errors here are only logged.
func (s *Service) saveFailure(ctx context.Context, videoID string, size int64, cause error) {
	t := &models.Transcript{
		VideoID:   videoID,
		Segments:  []models.Segment{},
		Status:    models.TranscriptFailed,
		Error:     cause.Error(),
		AudioSize: size,
	}
	if err := s.store.SaveTranscript(ctx, t); err != nil {
		log.Warn().Err(err).Str("videoId", videoID).Msg("failed to record the failed transcript")
	}
}

func (s *Service) publish(ctx context.Context, videoID string, stage notify.Stage, err error) {
	ev := notify.Event{JobID: notify.JobID(ctx), VideoID: videoID, Task: opName, Stage: stage}
	if err != nil {
		ev.Error = apperr.Message(err)
	}
	s.notifier.Publish(ctx, ev)
}
