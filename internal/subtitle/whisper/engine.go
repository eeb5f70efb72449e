package whisper

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type EngineOptions struct {
	OpenAI     *openai.Client
	Model      string
	WhisperURL string
	Splitter   Splitter
	TempDir    string
}

// NewEngine returns the transcriber named by engine ("openai" or "whisper.cpp").
func NewEngine(engine string, opts EngineOptions) (Transcriber, error) {
	switch engine {
	case "", "openai":
		if opts.OpenAI == nil {
			return nil, fmt.Errorf("openai engine requires an API client")
		}
		c := NewOpenAIClient(opts.OpenAI, opts.Model, opts.Splitter)
		c.tempDir = opts.TempDir
		return c, nil
	case "whisper.cpp":
		if opts.WhisperURL == "" {
			return nil, fmt.Errorf("whisper.cpp engine requires WHISPER_URL")
		}
		return NewWhisperCppClient(opts.WhisperURL), nil
	default:
		return nil, fmt.Errorf("unknown speech engine: %s (available: openai, whisper.cpp)", engine)
	}
}
