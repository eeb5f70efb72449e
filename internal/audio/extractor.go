// Package audio extracts a video's audio track into a single compressed
// artifact in object storage, encoding fixed-length windows one at a time
// to keep peak memory bounded.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/db"
	"github.com/reelai/backend/internal/db/models"
	"github.com/reelai/backend/internal/ffmpeg"
	"github.com/reelai/backend/internal/metrics"
	"github.com/reelai/backend/internal/notify"
	"github.com/reelai/backend/internal/storage"
)

const (
	ContentType = "audio/mpeg"
	opName      = "extract_audio"

	DefaultSegmentLength = 15 * time.Second
)

// Key is the object key of a video's extracted audio.
func Key(videoID string) string {
	return "audio/" + videoID + ".mp3"
}

// Encoder is the transcoder surface the pipeline needs.
type Encoder interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	EncodeWindow(ctx context.Context, input string, w ffmpeg.Window, output string, opts ffmpeg.AudioOptions) error
	Concat(ctx context.Context, parts []string, output string) error
}

// VideoSource resolves video records.
type VideoSource interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
}

type Options struct {
	SegmentLength time.Duration
	Audio         ffmpeg.AudioOptions
	TempDir       string // parent of per-invocation working directories
}

type Result struct {
	VideoID  string `json:"videoId"`
	Key      string `json:"path"`
	Size     int64  `json:"size"`
	Skipped  bool   `json:"skipped"`
	Segments int    `json:"segments,omitempty"`
}

type Extractor struct {
	bucket   storage.Bucket
	videos   VideoSource
	encoder  Encoder
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
}

func NewExtractor(bucket storage.Bucket, videos VideoSource, encoder Encoder, notifier notify.Notifier, m *metrics.Metrics, opts Options) *Extractor {
	if opts.SegmentLength <= 0 {
		opts.SegmentLength = DefaultSegmentLength
	}
	if opts.Audio.SampleRate <= 0 || opts.Audio.Bitrate == "" {
		opts.Audio = ffmpeg.DefaultAudioOptions()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Extractor{
		bucket:    bucket,
		videos:    videos,
		encoder:   encoder,
		notifier:  notifier,
		metrics:   m,
		opts:      opts,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
	}
}

// Extract produces audio/<videoID>.mp3 unless it already exists.
func (e *Extractor) Extract(ctx context.Context, videoID string) (res *Result, err error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, apperr.Validation(opName, "video_id is required")
	}
	logger := log.With().Str("op", opName).Str("videoId", videoID).Logger()

	defer func() {
		switch {
		case err != nil:
			e.metrics.Operation(opName, apperr.KindOf(err).String())
			e.publish(ctx, videoID, notify.StageFailed, err)
			logger.Error().Err(err).Msg("audio extraction failed")
		case res.Skipped:
			e.metrics.Operation(opName, "skipped")
		default:
			e.metrics.Operation(opName, "success")
		}
	}()

	key := Key(videoID)
	existing, err := e.bucket.Attrs(ctx, key)
	if err == nil {
		logger.Info().Int64("size", existing.Size).Msg("audio already extracted")
		e.publish(ctx, videoID, notify.StageSkipped, nil)
		return &Result{VideoID: videoID, Key: key, Size: existing.Size, Skipped: true}, nil
	}
	if !errors.Is(err, storage.ErrNotExist) {
		return nil, apperr.Dependency(opName, "failed to check for existing audio", err)
	}

	srcKey, err := e.resolveSource(ctx, videoID)
	if err != nil {
		return nil, err
	}

	workDir, err := e.mkdirTemp(e.opts.TempDir, "extract_")
	if err != nil {
		return nil, apperr.Internal(opName, fmt.Errorf("create working directory: %w", err))
	}
	defer func() {
		if rmErr := e.removeAll(workDir); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", workDir).Msg("failed to clean up the working directory")
		}
	}()

	srcPath := filepath.Join(workDir, "source"+path.Ext(srcKey))
	e.publish(ctx, videoID, notify.StageDownloading, nil)
	start := time.Now()
	if err := e.acquire(ctx, srcKey, srcPath); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, apperr.NotFound(opName, "source video object not found")
		}
		return nil, apperr.Dependency(opName, "failed to download the source video", err)
	}
	e.metrics.Stage(opName, "download", start)
	logMemory(logger, "downloaded")

	e.publish(ctx, videoID, notify.StageProbing, nil)
	duration, err := e.encoder.Duration(ctx, srcPath)
	if err != nil {
		return nil, apperr.Dependency(opName, "failed to determine the source duration", err)
	}
	windows := ffmpeg.Windows(duration, e.opts.SegmentLength)
	logger.Info().Dur("duration", duration).Int("segments", len(windows)).Msg("encoding audio segments")

	e.publish(ctx, videoID, notify.StageEncoding, nil)
	start = time.Now()
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		out := filepath.Join(workDir, ffmpeg.SegmentName(w.Index))
		if err := e.encoder.EncodeWindow(ctx, srcPath, w, out, e.opts.Audio); err != nil {
			return nil, apperr.Dependency(opName, fmt.Sprintf("failed to encode segment %d", w.Index), err)
		}
		e.metrics.SegmentEncoded()
		parts = append(parts, out)
	}
	e.metrics.Stage(opName, "encode", start)
	logMemory(logger, "encoded")

	e.publish(ctx, videoID, notify.StageConcatenating, nil)
	output := filepath.Join(workDir, "audio.mp3")
	if err := e.encoder.Concat(ctx, parts, output); err != nil {
		return nil, apperr.Dependency(opName, "failed to concatenate audio segments", err)
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return nil, apperr.Integrity(opName, "extracted audio is missing or empty")
	}

	e.publish(ctx, videoID, notify.StageUploading, nil)
	start = time.Now()
	if err := e.publishArtifact(ctx, key, output, info.Size()); err != nil {
		return nil, err
	}
	e.metrics.Stage(opName, "upload", start)
	e.metrics.AudioPublished(info.Size())
	e.publish(ctx, videoID, notify.StageFinished, nil)

	logger.Info().Int64("size", info.Size()).Str("key", key).Msg("audio extracted")
	return &Result{VideoID: videoID, Key: key, Size: info.Size(), Segments: len(windows)}, nil
}

func (e *Extractor) resolveSource(ctx context.Context, videoID string) (string, error) {
	video, err := e.videos.GetVideo(ctx, videoID)
	if errors.Is(err, db.ErrNotFound) {
		return "", apperr.NotFound(opName, "video not found")
	}
	if err != nil {
		return "", apperr.Dependency(opName, "failed to load the video record", err)
	}
	if strings.TrimSpace(video.VideoURL) == "" {
		return "", apperr.NotFound(opName, "video has no location reference")
	}
	key, err := storage.KeyFromURL(video.VideoURL)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.KindNotFound, Op: opName, Message: "video location reference is invalid", Err: err}
	}
	return key, nil
}

// acquire streams the source object to dst.
func (e *Extractor) acquire(ctx context.Context, key, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := e.bucket.Download(ctx, key, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// publishArtifact uploads the local file and confirms the stored size. A
// mismatched object is removed so it cannot pass as a finished extraction.
func (e *Extractor) publishArtifact(ctx context.Context, key, localPath string, size int64) error {
	f, err := os.Open(localPath)
	if err != nil {
		return apperr.Internal(opName, err)
	}
	defer f.Close()

	if err := e.bucket.Upload(ctx, key, f, ContentType); err != nil {
		return apperr.Dependency(opName, "failed to upload the audio", err)
	}

	stored, err := e.bucket.Attrs(ctx, key)
	if err != nil {
		return apperr.Dependency(opName, "failed to verify the uploaded audio", err)
	}
	if stored.Size != size {
		if delErr := e.bucket.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to remove the mismatched audio")
		}
		return apperr.Integrity(opName, fmt.Sprintf("uploaded audio has %d bytes, expected %d", stored.Size, size))
	}
	return nil
}

func (e *Extractor) publish(ctx context.Context, videoID string, stage notify.Stage, err error) {
	ev := notify.Event{JobID: notify.JobID(ctx), VideoID: videoID, Task: opName, Stage: stage}
	if err != nil {
		ev.Error = apperr.Message(err)
	}
	e.notifier.Publish(ctx, ev)
}

func logMemory(logger zerolog.Logger, stage string) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	logger.Debug().
		Str("stage", stage).
		Uint64("heapAllocMB", ms.HeapAlloc>>20).
		Uint64("sysMB", ms.Sys>>20).
		Msg("memory usage")
}
