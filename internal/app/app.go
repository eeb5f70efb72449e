// Package app builds the long-lived clients and services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/reelai/backend/internal/api"
	"github.com/reelai/backend/internal/api/handlers"
	"github.com/reelai/backend/internal/audio"
	"github.com/reelai/backend/internal/auth"
	"github.com/reelai/backend/internal/config"
	"github.com/reelai/backend/internal/db"
	"github.com/reelai/backend/internal/ffmpeg"
	"github.com/reelai/backend/internal/identity"
	"github.com/reelai/backend/internal/infocard"
	"github.com/reelai/backend/internal/job"
	"github.com/reelai/backend/internal/language"
	"github.com/reelai/backend/internal/metrics"
	"github.com/reelai/backend/internal/notify"
	"github.com/reelai/backend/internal/storage"
	"github.com/reelai/backend/internal/subtitle/whisper"
	"github.com/reelai/backend/internal/transcript"
)

// App holds every client constructed at process start.
type App struct {
	Config   *config.Config
	Bucket   storage.Bucket
	Store    db.Store
	Tools    *ffmpeg.Toolchain
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	JWT      *auth.JWTService

	Extractor   *audio.Extractor
	Transcripts *transcript.Service
	Cards       *infocard.Generator
	SignIn      *identity.Service

	closers []func() error
}

// New wires the services described by cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	bucket, err := newBucket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Bucket = bucket
	if c, ok := bucket.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	a.Notifier = notify.Nop{}
	if cfg.RedisDSN != "" {
		r := notify.NewRedis(cfg.RedisDSN, cfg.RedisChannel)
		a.Notifier = r
		a.closers = append(a.closers, r.Close)
	}

	if cfg.JWTSecret != "" {
		a.JWT = auth.NewJWTService(cfg.JWTSecret)
	}

	a.Tools = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	a.Extractor = audio.NewExtractor(a.Bucket, a.Store, a.Tools, a.Notifier, a.Metrics, audio.Options{
		SegmentLength: cfg.SegmentLength,
		Audio:         ffmpeg.AudioOptions{SampleRate: cfg.AudioSampleRate, Bitrate: cfg.AudioBitrate},
		TempDir:       cfg.TempDir,
	})

	oai := newOpenAI(cfg)
	stt, err := whisper.NewEngine(cfg.STTEngine, whisper.EngineOptions{
		OpenAI:     oai,
		Model:      cfg.TranscriptionModel,
		WhisperURL: cfg.WhisperURL,
		Splitter:   a.Tools,
		TempDir:    cfg.TempDir,
	})
	if err != nil {
		log.Warn().Err(err).Msg("speech engine unavailable, transcription requests will fail")
		stt = unavailableSTT{err: err}
	}

	detector := language.NewLingua()
	a.Transcripts = transcript.NewService(a.Bucket, a.Store, stt, detector, a.Notifier, a.Metrics, cfg.TempDir)
	a.Cards = infocard.NewGenerator(infocard.NewOpenAICompleter(oai, cfg.ChatModel), detector, a.Metrics)
	a.SignIn = identity.NewService(newIdentityProvider(ctx, cfg), identity.ActionSettings{
		ContinueURL:           cfg.SignInContinueURL,
		IOSBundleID:           cfg.SignInIOSBundleID,
		AndroidPackageName:    cfg.SignInAndroidPackage,
		AndroidMinimumVersion: cfg.SignInAndroidMinVersion,
		ReturnLink:            cfg.SignInReturnLink,
	}, a.Metrics)

	return a, nil
}

// Router returns the HTTP surface over the app's services. jobs may be nil.
func (a *App) Router(ctx context.Context, jobs handlers.Enqueuer) http.Handler {
	health := map[string]handlers.Pinger{}
	if p, ok := a.Notifier.(handlers.Pinger); ok {
		health["redis"] = p
	}
	deps := api.Deps{
		Audio:           a.Extractor,
		Transcripts:     a.Transcripts,
		Cards:           a.Cards,
		SignIn:          a.SignIn,
		Health:          health,
		Metrics:         a.Metrics.Handler(),
		JWT:             a.JWT,
		CORSOrigins:     a.Config.CORSOrigins,
		MaxBodyBytes:    a.Config.MaxBodyBytes,
		SignInRateLimit: a.Config.SignInRateLimit,
		SignedURLTTL:    a.Config.SignedURLTTL,
		Jobs:            jobs,
	}
	return api.NewRouter(ctx, deps)
}

// JobHandlers routes queued jobs to the media services.
func (a *App) JobHandlers() job.Handlers {
	return job.Handlers{
		job.TypeExtractAudio: func(ctx context.Context, videoID string) error {
			_, err := a.Extractor.Extract(ctx, videoID)
			return err
		},
		job.TypeCreateTranscript: func(ctx context.Context, videoID string) error {
			_, err := a.Transcripts.Create(ctx, videoID)
			return err
		},
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "gcs", "firebase":
		return storage.NewGCSBucket(ctx, cfg.Bucket)
	case "s3":
		return storage.NewS3Bucket(ctx, storage.S3Options{
			Bucket:    cfg.Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "local":
		return storage.NewDirBucket(cfg.LocalStoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (available: gcs, s3, local)", cfg.StorageBackend)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch strings.ToLower(cfg.DocstoreBackend) {
	case "", "sqlite":
		return db.NewSQLite(cfg.DBPath)
	case "dynamodb", "dynamo":
		return db.NewDynamo(ctx, cfg.DynamoRegion, cfg.DynamoVideosTable, cfg.DynamoTranscriptsTable)
	default:
		return nil, fmt.Errorf("unknown document store: %s (available: sqlite, dynamodb)", cfg.DocstoreBackend)
	}
}

func newOpenAI(cfg *config.Config) *openai.Client {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	return openai.NewClientWithConfig(oc)
}

// newIdentityProvider authenticates with application default credentials
// against the real service and sends no credentials to an emulator.
func newIdentityProvider(ctx context.Context, cfg *config.Config) identity.Provider {
	if cfg.FirebaseProjectID == "" {
		return unavailableIdentity{err: errors.New("FIREBASE_PROJECT_ID is not set")}
	}
	if cfg.IdentityBaseURL != "" && cfg.IdentityBaseURL != identity.DefaultBaseURL {
		return identity.NewFirebaseClient(nil, cfg.FirebaseProjectID, cfg.IdentityBaseURL)
	}
	httpClient, err := identity.NewDefaultHTTPClient(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("identity provider unavailable, sign-in requests will fail")
		return unavailableIdentity{err: err}
	}
	return identity.NewFirebaseClient(httpClient, cfg.FirebaseProjectID, cfg.IdentityBaseURL)
}

// EnsureDirs creates the local directories the configured backends write to.
func EnsureDirs(cfg *config.Config) error {
	var dirs []string
	if strings.EqualFold(cfg.DocstoreBackend, "sqlite") || cfg.DocstoreBackend == "" {
		dirs = append(dirs, filepath.Dir(cfg.DBPath))
	}
	if strings.EqualFold(cfg.StorageBackend, "local") {
		dirs = append(dirs, cfg.LocalStoragePath)
	}
	if cfg.TempDir != "" {
		dirs = append(dirs, cfg.TempDir)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
