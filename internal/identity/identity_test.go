package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/reelai/backend/internal/apperr"
)

// fakeToolkit is an in-memory Identity Toolkit for one project.
type fakeToolkit struct {
	mu       sync.Mutex
	accounts map[string]bool
	oob      []OobRequest
	failOob  bool
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v1/projects/demo/"
	if !strings.HasPrefix(r.URL.Path, prefix) || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch strings.TrimPrefix(r.URL.Path, prefix) {
	case "accounts:lookup":
		var req struct{ Email []string }
		json.Unmarshal(body, &req)
		if len(req.Email) == 1 && f.accounts[req.Email[0]] {
			io.WriteString(w, `{"kind":"identitytoolkit#GetAccountInfoResponse","users":[{"localId":"u1","email":"`+req.Email[0]+`"}]}`)
			return
		}
		io.WriteString(w, `{"kind":"identitytoolkit#GetAccountInfoResponse"}`)
	case "accounts":
		var req struct{ Email string }
		json.Unmarshal(body, &req)
		f.accounts[req.Email] = true
		io.WriteString(w, `{"localId":"u2","email":"`+req.Email+`"}`)
	case "accounts:sendOobCode":
		if f.failOob {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"code":400,"message":"INVALID_CONTINUE_URI"}}`)
			return
		}
		var req OobRequest
		json.Unmarshal(body, &req)
		f.oob = append(f.oob, req)
		io.WriteString(w, `{"email":"`+req.Email+`","oobLink":"https://example.firebaseapp.com/__/auth/action?mode=`+req.RequestType+`"}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestService(t *testing.T, tk *fakeToolkit) *Service {
	t.Helper()
	srv := httptest.NewServer(tk)
	t.Cleanup(srv.Close)
	client := NewFirebaseClient(srv.Client(), "demo", srv.URL)
	return NewService(client, ActionSettings{
		ContinueURL:           "https://relai.page.link/finishSignUp",
		IOSBundleID:           "com.reelai.app",
		AndroidPackageName:    "com.reelai.app",
		AndroidMinimumVersion: "12",
		ReturnLink:            true,
	}, nil)
}

func TestSendSignInLinkExistingUser(t *testing.T) {
	tk := &fakeToolkit{accounts: map[string]bool{"a@example.com": true}}
	res, err := newTestService(t, tk).SendSignInLink(context.Background(), " a@example.com ")
	if err != nil {
		t.Fatalf("SendSignInLink() error = %v", err)
	}
	if res.NewUser || !strings.Contains(res.Link, "mode=EMAIL_SIGNIN") {
		t.Fatalf("result = %+v", res)
	}

	req := tk.oob[0]
	if !req.ReturnOobLink || !req.CanHandleCodeInApp || !req.AndroidInstallApp {
		t.Fatalf("oob flags = %+v", req)
	}
	if req.IOSBundleID != "com.reelai.app" || req.AndroidMinimumVersion != "12" {
		t.Fatalf("oob apps = %+v", req)
	}
	u, err := url.Parse(req.ContinueURL)
	if err != nil || u.Query().Get("email") != "a@example.com" || u.Host != "relai.page.link" {
		t.Fatalf("continue URL = %q", req.ContinueURL)
	}
}

func TestSendSignInLinkNewUser(t *testing.T) {
	tk := &fakeToolkit{accounts: map[string]bool{}}
	res, err := newTestService(t, tk).SendSignInLink(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("SendSignInLink() error = %v", err)
	}
	if !res.NewUser || tk.oob[0].RequestType != requestVerifyEmail {
		t.Fatalf("result = %+v, request = %+v", res, tk.oob[0])
	}
	if !tk.accounts["new@example.com"] {
		t.Fatal("account should have been created")
	}
}

func TestSendSignInLinkStripsDisplayName(t *testing.T) {
	tk := &fakeToolkit{accounts: map[string]bool{"a@example.com": true}}
	res, err := newTestService(t, tk).SendSignInLink(context.Background(), "Alex <a@example.com>")
	if err != nil {
		t.Fatalf("SendSignInLink() error = %v", err)
	}
	if res.Email != "a@example.com" || res.NewUser {
		t.Fatalf("result = %+v", res)
	}
	req := tk.oob[0]
	if req.Email != "a@example.com" {
		t.Fatalf("oob email = %q", req.Email)
	}
	u, err := url.Parse(req.ContinueURL)
	if err != nil || u.Query().Get("email") != "a@example.com" {
		t.Fatalf("continue URL = %q", req.ContinueURL)
	}
}

func TestSendSignInLinkValidation(t *testing.T) {
	tk := &fakeToolkit{accounts: map[string]bool{}}
	svc := newTestService(t, tk)
	for _, email := range []string{"", "   ", "not-an-email"} {
		if _, err := svc.SendSignInLink(context.Background(), email); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("SendSignInLink(%q) error = %v, want validation", email, err)
		}
	}
}

func TestSendSignInLinkProviderFailure(t *testing.T) {
	tk := &fakeToolkit{accounts: map[string]bool{"a@example.com": true}, failOob: true}
	_, err := newTestService(t, tk).SendSignInLink(context.Background(), "a@example.com")
	if apperr.KindOf(err) != apperr.KindDependency {
		t.Fatalf("SendSignInLink() error = %v, want dependency", err)
	}
	if !strings.Contains(err.Error(), "INVALID_CONTINUE_URI") {
		t.Fatalf("provider message should be kept: %v", err)
	}
}

func TestContinueURL(t *testing.T) {
	got := continueURL("https://relai.page.link/finishSignUp", "a+b@example.com")
	if got != "https://relai.page.link/finishSignUp?email=a%2Bb%40example.com" {
		t.Fatalf("continueURL() = %q", got)
	}
	if continueURL("", "a@example.com") != "" {
		t.Fatal("empty base should stay empty")
	}
}
