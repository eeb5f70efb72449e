package handlers

import (
	"context"
	"net/http"

	"github.com/reelai/backend/internal/infocard"
)

// CardGenerator writes a title and description for a transcript.
type CardGenerator interface {
	Generate(ctx context.Context, transcript string) (*infocard.Card, error)
}

type InfoCardHandler struct {
	cards CardGenerator
}

func NewInfoCardHandler(cards CardGenerator) *InfoCardHandler {
	return &InfoCardHandler{cards: cards}
}

// Older clients send the text as "transcription".
type infoCardRequest struct {
	Transcript    string `json:"transcript"`
	Transcription string `json:"transcription"`
}

type infoCardResponse struct {
	Success bool `json:"success"`
	*infocard.Card
}

// GenerateInfoCard handles POST /generate_info_card.
func (h *InfoCardHandler) GenerateInfoCard(w http.ResponseWriter, r *http.Request) {
	var req infoCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := req.Transcript
	if text == "" {
		text = req.Transcription
	}

	card, err := h.cards.Generate(r.Context(), text)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, infoCardResponse{Success: true, Card: card}, http.StatusOK)
}
