package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Stage is a step of a media job reported to subscribers.
type Stage string

const (
	StageQueued        Stage = "queued"
	StageDownloading   Stage = "downloading"
	StageProbing       Stage = "probing"
	StageEncoding      Stage = "encoding"
	StageConcatenating Stage = "concatenating"
	StageUploading     Stage = "uploading"
	StageTranscribing  Stage = "transcribing"
	StageFinished      Stage = "finished"
	StageSkipped       Stage = "skipped"
	StageFailed        Stage = "failed"
)

type Event struct {
	JobID   string    `json:"jobId,omitempty"`
	VideoID string    `json:"videoId"`
	Task    string    `json:"task"` // extract_audio, create_transcript
	Stage   Stage     `json:"stage"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier publishes job progress. Publishing is best effort: failures are
// logged and never fail the job.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Redis publishes events as JSON on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(dsn, channel string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: dsn}), channel: channel}
}

func (r *Redis) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("videoId", ev.VideoID).Msg("failed to encode the notification")
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		log.Error().Err(err).Str("videoId", ev.VideoID).Str("stage", string(ev.Stage)).Msg("failed to publish the notification")
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type jobIDKey struct{}

// WithJobID attaches a queue job ID to ctx so published events carry it.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

// JobID returns the job ID attached to ctx, if any.
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}
