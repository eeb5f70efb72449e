package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/identity"
)

// LinkSender issues passwordless sign-in links.
type LinkSender interface {
	SendSignInLink(ctx context.Context, email string) (*identity.LinkResult, error)
}

type AuthHandler struct {
	links LinkSender
}

func NewAuthHandler(links LinkSender) *AuthHandler {
	return &AuthHandler{links: links}
}

type signInRequest struct {
	Email string `json:"email"`
}

type signInResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
	NewUser bool   `json:"newUser"`
}

// SendMagicLink handles POST /send_magic_link_email.
func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.links.SendSignInLink(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, signInResponse{
		Success: true,
		Message: "Magic link sent successfully",
		Link:    res.Link,
		NewUser: res.NewUser,
	}, http.StatusOK)
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, errorBody{Error: msg}, status)
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Raw     string `json:"raw,omitempty"`
}

// writeError maps a service error onto its HTTP status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: apperr.Message(err)}
	if raw, ok := apperr.RawOutput(err); ok {
		body.Raw = raw
	}
	jsonResponse(w, body, apperr.HTTPStatus(err))
}

// decodeJSON reads the request body into dst, answering 400 (or 413 for
// oversized bodies) when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
