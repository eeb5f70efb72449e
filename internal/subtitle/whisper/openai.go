package whisper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	maxOpenAIFileSize = 25 * 1024 * 1024 // 25MB upload limit
	chunkLength       = 10 * time.Minute
)

// Splitter cuts oversized audio into chunks the API accepts.
type Splitter interface {
	Split(ctx context.Context, input, dir string, chunk time.Duration) ([]string, error)
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// OpenAIClient uses the OpenAI audio transcription API
type OpenAIClient struct {
	client   *openai.Client
	model    string
	splitter Splitter
	tempDir  string // chunk scratch parent; "" means os.TempDir
}

func NewOpenAIClient(client *openai.Client, model string, splitter Splitter) *OpenAIClient {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIClient{client: client, model: model, splitter: splitter}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, err
	}

	if info.Size() > maxOpenAIFileSize && c.splitter != nil {
		return c.transcribeChunked(ctx, req)
	}
	vtt, err := c.transcribeSingle(ctx, req.FilePath, req.Language)
	if err != nil {
		return nil, err
	}
	return &TranscribeResult{VTT: vtt, Language: req.Language}, nil
}

func (c *OpenAIClient) transcribeSingle(ctx context.Context, audioPath, language string) (string, error) {
	audioReq := openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVTT,
	}
	if language != "" && language != "auto" {
		audioReq.Language = language
	}

	log.Debug().Str("file", audioPath).Str("model", c.model).Msg("sending audio to OpenAI")
	resp, err := c.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI transcription: %w", err)
	}

	vtt := resp.Text
	if !strings.HasPrefix(strings.TrimSpace(vtt), "WEBVTT") {
		vtt = "WEBVTT\n\n" + vtt
	}
	return vtt, nil
}

// transcribeChunked splits a large audio file and transcribes each chunk,
// shifting chunk timestamps by the running duration of earlier chunks.
func (c *OpenAIClient) transcribeChunked(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	chunkDir, err := os.MkdirTemp(c.tempDir, "whisper-chunks-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(chunkDir)

	chunks, err := c.splitter.Split(ctx, req.FilePath, chunkDir, chunkLength)
	if err != nil {
		return nil, fmt.Errorf("split audio: %w", err)
	}
	log.Info().Int("chunks", len(chunks)).Str("file", req.FilePath).Msg("transcribing audio in chunks")

	var all strings.Builder
	all.WriteString("WEBVTT\n\n")
	var offset time.Duration

	for i, chunk := range chunks {
		vtt, err := c.transcribeSingle(ctx, chunk, req.Language)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(vtt), "WEBVTT"))
		if offset > 0 && body != "" {
			body = offsetVTTTimestamps(body, offset)
		}
		all.WriteString(body)
		all.WriteString("\n\n")

		d, err := c.splitter.Duration(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d duration: %w", i, err)
		}
		offset += d
	}

	return &TranscribeResult{VTT: all.String(), Language: req.Language}, nil
}
