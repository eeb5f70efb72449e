package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusTable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("extract", "video_id is required"), http.StatusBadRequest},
		{"not found", NotFound("extract", "video not found"), http.StatusNotFound},
		{"integrity", Integrity("transcribe", "size mismatch"), http.StatusInternalServerError},
		{"dependency", Dependency("extract", "encoder failed", errors.New("exit 1")), http.StatusBadGateway},
		{"generation", Generation("info card", "unparsable", "???", nil), http.StatusBadGateway},
		{"internal", Internal("db", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("unclassified"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("handler: %w", NotFound("x", "gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("speech", "speech service failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the cause")
	}
	if got := err.Error(); got != "speech: speech service failed: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if got := Message(err); got != "speech service failed" {
		t.Fatalf("Message() = %q", got)
	}
	if got := Message(Internal("db", errors.New("secret dsn"))); got != "internal error" {
		t.Fatalf("internal Message() = %q", got)
	}
}

func TestRawOutput(t *testing.T) {
	raw, ok := RawOutput(fmt.Errorf("wrap: %w", Generation("card", "bad output", "just prose", nil)))
	if !ok || raw != "just prose" {
		t.Fatalf("RawOutput() = %q, %v", raw, ok)
	}
	if _, ok := RawOutput(Validation("card", "empty")); ok {
		t.Fatal("validation error should carry no raw output")
	}
}
