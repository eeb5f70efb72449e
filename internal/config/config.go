package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host      string
	Port      int
	LogLevel  string
	LogFormat string

	// Object storage
	StorageBackend   string // gcs, s3, local
	Bucket           string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	LocalStoragePath string
	SignedURLTTL     time.Duration

	// Document store
	DocstoreBackend        string // sqlite, dynamodb
	DBPath                 string
	DynamoRegion           string
	DynamoVideosTable      string
	DynamoTranscriptsTable string

	// Speech and chat
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	STTEngine          string // openai, whisper.cpp
	WhisperURL         string
	TranscriptionModel string
	ChatModel          string

	// Transcoder
	FFmpegPath      string
	FFprobePath     string
	SegmentLength   time.Duration
	AudioSampleRate int
	AudioBitrate    string
	TempDir         string

	// HTTP
	JWTSecret       string
	CORSOrigins     []string
	MaxBodyBytes    int64
	SignInRateLimit int

	// Notifications and async jobs
	RedisDSN     string
	RedisChannel string
	RabbitMQURL  string
	QueueName    string

	// Identity provider
	FirebaseProjectID       string
	IdentityBaseURL         string
	SignInContinueURL       string
	SignInIOSBundleID       string
	SignInAndroidPackage    string
	SignInAndroidMinVersion string
	SignInReturnLink        bool
}

// Load reads the process environment, after merging an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		corsOrigins = splitList(v)
	}

	return &Config{
		Host:      getEnv("HOST", "0.0.0.0"),
		Port:      getEnvInt("PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StorageBackend:   getEnv("STORAGE_BACKEND", "gcs"),
		Bucket:           os.Getenv("STORAGE_BUCKET"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./data/objects"),
		SignedURLTTL:     time.Duration(getEnvInt("SIGNED_URL_MINUTES", 60)) * time.Minute,

		DocstoreBackend:        getEnv("DOCSTORE_BACKEND", "sqlite"),
		DBPath:                 getEnv("DB_PATH", "./data/reelai.db"),
		DynamoRegion:           getEnv("DYNAMO_REGION", "us-east-1"),
		DynamoVideosTable:      getEnv("DYNAMO_VIDEOS_TABLE", "videos"),
		DynamoTranscriptsTable: getEnv("DYNAMO_TRANSCRIPTS_TABLE", "transcripts"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		STTEngine:          getEnv("STT_ENGINE", "openai"),
		WhisperURL:         getEnv("WHISPER_URL", "http://localhost:8178"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		ChatModel:          getEnv("CHAT_MODEL", "gpt-4o-mini"),

		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		SegmentLength:   time.Duration(getEnvInt("AUDIO_SEGMENT_SECONDS", 15)) * time.Second,
		AudioSampleRate: getEnvInt("AUDIO_SAMPLE_RATE", 16000),
		AudioBitrate:    getEnv("AUDIO_BITRATE", "32k"),
		TempDir:         os.Getenv("TEMP_DIR"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		CORSOrigins:     corsOrigins,
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		SignInRateLimit: getEnvInt("SIGNIN_RATE_LIMIT", 10),

		RedisDSN:     os.Getenv("REDIS_DSN"),
		RedisChannel: getEnv("REDIS_CHANNEL", "reelai.jobs"),
		RabbitMQURL:  os.Getenv("RABBITMQ_URL"),
		QueueName:    getEnv("QUEUE_NAME", "media"),

		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		IdentityBaseURL:         getEnv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com"),
		SignInContinueURL:       getEnv("SIGNIN_CONTINUE_URL", "https://relai.page.link/finishSignUp"),
		SignInIOSBundleID:       getEnv("SIGNIN_IOS_BUNDLE_ID", "com.reelai.app"),
		SignInAndroidPackage:    getEnv("SIGNIN_ANDROID_PACKAGE", "com.reelai.app"),
		SignInAndroidMinVersion: getEnv("SIGNIN_ANDROID_MIN_VERSION", "12"),
		SignInReturnLink:        getEnvBool("SIGNIN_RETURN_LINK", true),
	}
}

// Addr is the listen address for the standalone HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean, using default")
		return fallback
	}
	return b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
