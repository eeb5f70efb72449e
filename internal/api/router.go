package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reelai/backend/internal/api/handlers"
	"github.com/reelai/backend/internal/api/middleware"
	"github.com/reelai/backend/internal/auth"
)

// Deps are the services the HTTP surface exposes. A nil Jobs leaves
// POST /jobs unregistered, and a nil JWT leaves the media routes open.
type Deps struct {
	Audio       handlers.AudioService
	Transcripts handlers.TranscriptCreator
	Cards       handlers.CardGenerator
	SignIn      handlers.LinkSender
	Jobs        handlers.Enqueuer
	Health      map[string]handlers.Pinger
	Metrics     http.Handler
	JWT         *auth.JWTService

	CORSOrigins     []string
	MaxBodyBytes    int64
	SignInRateLimit int
	SignedURLTTL    time.Duration
}

func NewRouter(ctx context.Context, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(deps.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(deps.SignIn)
	audioHandler := handlers.NewAudioHandler(deps.Audio, deps.SignedURLTTL)
	transcriptHandler := handlers.NewTranscriptHandler(deps.Transcripts)
	infoCardHandler := handlers.NewInfoCardHandler(deps.Cards)
	healthHandler := handlers.NewHealthHandler(deps.Health)

	r.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

		// Sign-in is public and rate limited per client IP.
		limiter := middleware.NewRateLimiter(ctx, deps.SignInRateLimit, time.Minute)
		r.With(limiter.Handler).Post("/send_magic_link_email", authHandler.SendMagicLink)

		// Media routes
		r.Group(func(r chi.Router) {
			if deps.JWT != nil {
				r.Use(middleware.AuthMiddleware(deps.JWT))
			}
			r.Post("/extract_audio", audioHandler.ExtractAudio)
			r.Post("/audio_url", audioHandler.AudioURL)
			r.Post("/create_transcript", transcriptHandler.CreateTranscript)
			r.Post("/generate_info_card", infoCardHandler.GenerateInfoCard)
			if deps.Jobs != nil {
				r.Post("/jobs", handlers.NewJobHandler(deps.Jobs).Enqueue)
			}
		})
	})

	return r
}
