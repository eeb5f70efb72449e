package identity

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/metrics"
)

const opName = "send_magic_link_email"

const (
	requestEmailSignIn = "EMAIL_SIGNIN"
	requestVerifyEmail = "VERIFY_EMAIL"
)

// Provider is the identity backend the sign-in flow needs.
type Provider interface {
	LookupEmail(ctx context.Context, email string) (*Account, error)
	CreateAccount(ctx context.Context, email string) (*Account, error)
	SendOobCode(ctx context.Context, req OobRequest) (string, error)
}

// ActionSettings control where the emailed link lands and which apps may
// open it.
type ActionSettings struct {
	ContinueURL           string
	IOSBundleID           string
	AndroidPackageName    string
	AndroidMinimumVersion string
	// ReturnLink asks the provider to return the link instead of emailing it.
	ReturnLink bool
}

type LinkResult struct {
	Email   string `json:"email"`
	Link    string `json:"link,omitempty"`
	NewUser bool   `json:"newUser"`
}

type Service struct {
	provider Provider
	settings ActionSettings
	metrics  *metrics.Metrics
}

func NewService(provider Provider, settings ActionSettings, m *metrics.Metrics) *Service {
	return &Service{provider: provider, settings: settings, metrics: m}
}

// SendSignInLink issues a passwordless sign-in link for email. Unknown
// addresses get an account and a verification link instead.
func (s *Service) SendSignInLink(ctx context.Context, email string) (res *LinkResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.Operation(opName, apperr.KindOf(err).String())
			return
		}
		s.metrics.Operation(opName, "success")
	}()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation(opName, "email is required")
	}
	addr, perr := mail.ParseAddress(email)
	if perr != nil {
		return nil, apperr.Validation(opName, "email is invalid")
	}
	email = addr.Address

	start := time.Now()
	defer func() { s.metrics.ExternalCall("identity", start, err) }()

	acct, err := s.provider.LookupEmail(ctx, email)
	if err != nil {
		return nil, apperr.Dependency(opName, "failed to look up the account", err)
	}

	requestType := requestEmailSignIn
	newUser := acct == nil
	if newUser {
		if _, err := s.provider.CreateAccount(ctx, email); err != nil {
			return nil, apperr.Dependency(opName, "failed to create the account", err)
		}
		requestType = requestVerifyEmail
	}

	link, err := s.provider.SendOobCode(ctx, s.oobRequest(requestType, email))
	if err != nil {
		return nil, apperr.Dependency(opName, "failed to generate the sign-in link", err)
	}

	log.Info().Str("op", opName).Bool("newUser", newUser).Str("requestType", requestType).Msg("sign-in link issued")
	return &LinkResult{Email: email, Link: link, NewUser: newUser}, nil
}

func (s *Service) oobRequest(requestType, email string) OobRequest {
	return OobRequest{
		RequestType:           requestType,
		Email:                 email,
		ReturnOobLink:         s.settings.ReturnLink,
		ContinueURL:           continueURL(s.settings.ContinueURL, email),
		CanHandleCodeInApp:    true,
		IOSBundleID:           s.settings.IOSBundleID,
		AndroidPackageName:    s.settings.AndroidPackageName,
		AndroidInstallApp:     true,
		AndroidMinimumVersion: s.settings.AndroidMinimumVersion,
	}
}

// continueURL appends the email as a query parameter so the app can finish
// the sign-in without asking again.
func continueURL(base, email string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?email=" + url.QueryEscape(email)
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}
