// Package infocard generates a short title and description for a video
// from its transcript.
package infocard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/language"
	"github.com/reelai/backend/internal/metrics"
)

const opName = "generate_info_card"

// Card is the generated descriptive text for a video.
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
}

// Completer sends one system+user exchange to a chat model and returns
// the raw reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Generator struct {
	completer Completer
	detector  language.Detector
	metrics   *metrics.Metrics
}

func NewGenerator(completer Completer, detector language.Detector, m *metrics.Metrics) *Generator {
	if detector == nil {
		detector = language.Fixed("")
	}
	return &Generator{completer: completer, detector: detector, metrics: m}
}

// Generate asks the model for a card and parses its reply. Unparsable
// replies come back as a generation error carrying the raw output.
func (g *Generator) Generate(ctx context.Context, transcript string) (card *Card, err error) {
	defer func() {
		if err != nil {
			g.metrics.Operation(opName, apperr.KindOf(err).String())
			return
		}
		g.metrics.Operation(opName, "success")
	}()

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, apperr.Validation(opName, "transcript is required")
	}

	lang := g.detector.Detect(transcript)

	start := time.Now()
	raw, err := g.completer.Complete(ctx, SystemPrompt(lang), transcript)
	g.metrics.ExternalCall("chat", start, err)
	if err != nil {
		return nil, apperr.Dependency(opName, "chat completion failed", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("could not parse the info card")
		return nil, apperr.Generation(opName, "could not parse a title and description from the model output", raw, err)
	}
	parsed.Language = lang
	return &parsed, nil
}

// Parse tries the strict JSON decode first and the line heuristic second.
func Parse(raw string) (Card, error) {
	card, strictErr := ParseStrict(raw)
	if strictErr == nil {
		return card, nil
	}
	card, heuristicErr := ParseHeuristic(raw)
	if heuristicErr == nil {
		return card, nil
	}
	return Card{}, errors.Join(strictErr, heuristicErr)
}

// ParseStrict decodes a JSON object with non-empty title and description,
// tolerating a surrounding Markdown code fence.
func ParseStrict(raw string) (Card, error) {
	var card Card
	if err := json.Unmarshal([]byte(stripFence(raw)), &card); err != nil {
		return Card{}, fmt.Errorf("strict parse: %w", err)
	}
	card.Title = strings.TrimSpace(card.Title)
	card.Description = strings.TrimSpace(card.Description)
	if card.Title == "" || card.Description == "" {
		return Card{}, fmt.Errorf("strict parse: title and description are required")
	}
	return card, nil
}

// ParseHeuristic scans lines of the form "<...title...>: value" and
// "<...description...>: value". The first match per field wins.
func ParseHeuristic(raw string) (Card, error) {
	var card Card
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		value = cleanValue(value)
		if value == "" {
			continue
		}

		switch {
		case card.Title == "" && strings.Contains(key, "title"):
			card.Title = value
		case card.Description == "" && strings.Contains(key, "description"):
			card.Description = value
		}
	}
	if card.Title == "" || card.Description == "" {
		return Card{}, fmt.Errorf("heuristic parse: title and description lines not found")
	}
	return card, nil
}

func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t\"'`*,")
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if _, rest, ok := strings.Cut(s, "\n"); ok {
		s = rest
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
