package app

import (
	"context"

	"github.com/reelai/backend/internal/identity"
	"github.com/reelai/backend/internal/subtitle/whisper"
)

// unavailableSTT fails every call with the configuration error that kept
// the real engine from starting.
type unavailableSTT struct{ err error }

func (u unavailableSTT) Transcribe(context.Context, whisper.TranscribeRequest) (*whisper.TranscribeResult, error) {
	return nil, u.err
}

func (unavailableSTT) Name() string { return "unavailable" }

type unavailableIdentity struct{ err error }

func (u unavailableIdentity) LookupEmail(context.Context, string) (*identity.Account, error) {
	return nil, u.err
}

func (u unavailableIdentity) CreateAccount(context.Context, string) (*identity.Account, error) {
	return nil, u.err
}

func (u unavailableIdentity) SendOobCode(context.Context, identity.OobRequest) (string, error) {
	return "", u.err
}
