// Package identity talks to the Firebase Identity Toolkit to manage email
// accounts and issue passwordless sign-in links.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const DefaultBaseURL = "https://identitytoolkit.googleapis.com"

var scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/identitytoolkit",
}

// NewDefaultHTTPClient returns an HTTP client authorised with the
// application default credentials.
func NewDefaultHTTPClient(ctx context.Context) (*http.Client, error) {
	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = 30 * time.Second
	return client, nil
}

// Account is the subset of a user record this service reads.
type Account struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

// OobRequest is an accounts:sendOobCode request body.
type OobRequest struct {
	RequestType           string `json:"requestType"`
	Email                 string `json:"email"`
	ReturnOobLink         bool   `json:"returnOobLink"`
	ContinueURL           string `json:"continueUrl,omitempty"`
	CanHandleCodeInApp    bool   `json:"canHandleCodeInApp"`
	IOSBundleID           string `json:"iOSBundleId,omitempty"`
	AndroidPackageName    string `json:"androidPackageName,omitempty"`
	AndroidInstallApp     bool   `json:"androidInstallApp"`
	AndroidMinimumVersion string `json:"androidMinimumVersion,omitempty"`
}

// APIError is an error body returned by the Identity Toolkit.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity toolkit error (status %d): %s", e.StatusCode, e.Message)
}

// FirebaseClient calls the project-scoped admin endpoints of the Identity
// Toolkit REST API.
type FirebaseClient struct {
	httpClient *http.Client
	projectID  string
	baseURL    string
}

func NewFirebaseClient(httpClient *http.Client, projectID, baseURL string) *FirebaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FirebaseClient{
		httpClient: httpClient,
		projectID:  projectID,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// LookupEmail returns the account registered for email, or nil.
func (c *FirebaseClient) LookupEmail(ctx context.Context, email string) (*Account, error) {
	var resp struct {
		Users []Account `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string][]string{"email": {email}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, nil
	}
	return &resp.Users[0], nil
}

func (c *FirebaseClient) CreateAccount(ctx context.Context, email string) (*Account, error) {
	var acct Account
	if err := c.post(ctx, "accounts", map[string]string{"email": email}, &acct); err != nil {
		return nil, err
	}
	if acct.Email == "" {
		acct.Email = email
	}
	return &acct, nil
}

// SendOobCode issues an out-of-band action link. The link is only returned
// when req.ReturnOobLink is set.
func (c *FirebaseClient) SendOobCode(ctx context.Context, req OobRequest) (string, error) {
	var resp struct {
		Email   string `json:"email"`
		OobLink string `json:"oobLink"`
	}
	if err := c.post(ctx, "accounts:sendOobCode", req, &resp); err != nil {
		return "", err
	}
	return resp.OobLink, nil
}

func (c *FirebaseClient) post(ctx context.Context, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, url.PathEscape(c.projectID), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity toolkit request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse identity toolkit response: %w", err)
	}
	return nil
}
