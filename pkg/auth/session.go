package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/whttp"
)

const (
	DefaultSignInURL  = "https://api.bemlo.ai/auth/signin"
	DefaultRefreshURL = "https://api.bemlo.ai/auth/session/refresh"

	appOrigin  = "https://app.bemlo.com"
	appReferer = "https://app.bemlo.com/"
)

// AuthError means the identity provider rejected us: a failed sign-in, or
// two consecutive authorization failures on one operation.
type AuthError struct {
	Op     string
	Status int
	Msg    string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth: %s failed with status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("auth: %s failed: %s", e.Op, e.Msg)
}

// Session performs the SuperTokens login and refresh exchanges and owns the
// current Credential. All Credential access is serialized by one mutex so a
// refresh in flight is never raced by a second refresh or by a read of a
// half-updated Credential.
type Session struct {
	Email      string
	Password   string
	SignInURL  string
	RefreshURL string

	client *retryablehttp.Client

	mu   sync.Mutex
	cred *Credential
	now  func() time.Time
}

// NewSession builds a session for the given credentials against the
// production endpoints.
func NewSession(email, password string) *Session {
	return &Session{
		Email:      email,
		Password:   password,
		SignInURL:  DefaultSignInURL,
		RefreshURL: DefaultRefreshURL,
		client:     whttp.NewClient(0),
		now:        time.Now,
	}
}

// Login signs in with email/password and replaces the held Credential.
func (s *Session) Login(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

// Refresh exchanges the refresh token for a new Credential, falling back to
// a full login when no refresh token is held or the exchange fails.
func (s *Session) Refresh(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

// ValidToken returns an access token that is good for at least ExpiryBuffer
// from now, logging in or refreshing as needed.
func (s *Session) ValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		if _, err := s.login(ctx); err != nil {
			return "", err
		}
	} else if s.cred.Expired(ExpiryBuffer, s.now()) {
		if _, err := s.refresh(ctx); err != nil {
			return "", err
		}
	}

	return s.cred.AccessToken, nil
}

// login must be called with s.mu held.
func (s *Session) login(ctx context.Context) (*Credential, error) {
	utils.Log.Debug("Signing in to Bemlo")

	payload, err := json.Marshal(map[string]interface{}{
		"formFields": []map[string]string{
			{"id": "email", "value": s.Email},
			{"id": "password", "value": s.Password},
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
		Method: "POST",
		URL:    s.SignInURL,
		Body:   string(payload),
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Origin", Value: appOrigin},
			{Name: "Referer", Value: appReferer},
			{Name: "rid", Value: "emailpassword"},
		},
	}, s.client)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}

	if res.StatusCode != 200 {
		return nil, &AuthError{Op: "sign-in", Status: res.StatusCode, Msg: snippet(res.BodyString)}
	}
	if status := gjson.Get(res.BodyString, "status").String(); status != "OK" {
		return nil, &AuthError{Op: "sign-in", Msg: "status " + status}
	}

	cred := CredentialFromHeaders(res.Headers, s.now())
	if cred.AccessToken == "" {
		return nil, &AuthError{Op: "sign-in", Msg: "no " + HeaderAccessToken + " header in response"}
	}

	s.cred = cred
	utils.Log.Debugf("Signed in, token expires at %s", time.Unix(cred.ExpiresAt, 0))
	return cred, nil
}

// refresh must be called with s.mu held. Any refresh failure falls back to
// a full login rather than surfacing: this conflates an invalid refresh
// token with a transient network error and can churn credentials more than
// strictly needed, but a failed refresh is never fatal on its own.
func (s *Session) refresh(ctx context.Context) (*Credential, error) {
	if s.cred == nil || s.cred.RefreshToken == "" {
		utils.Log.Debug("No refresh token held, doing a fresh sign-in")
		return s.login(ctx)
	}

	utils.Log.Debug("Refreshing session token")

	res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
		Method: "POST",
		URL:    s.RefreshURL,
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Origin", Value: appOrigin},
			{Name: "Referer", Value: appReferer},
			{Name: "rid", Value: "session"},
			{Name: "Authorization", Value: "Bearer " + s.cred.RefreshToken},
		},
	}, s.client)
	if err != nil {
		utils.Log.Warnf("Refresh request failed (%v), doing a fresh sign-in", err)
		return s.login(ctx)
	}

	if res.StatusCode != 200 {
		utils.Log.Warnf("Refresh rejected with status %d, doing a fresh sign-in", res.StatusCode)
		return s.login(ctx)
	}

	cred := CredentialFromHeaders(res.Headers, s.now())
	if cred.AccessToken == "" {
		utils.Log.Warn("No access token in refresh response, doing a fresh sign-in")
		return s.login(ctx)
	}

	// The refresh response may omit tokens that haven't rotated; an absent
	// header means "unchanged", not "revoked".
	if cred.RefreshToken == "" {
		cred.RefreshToken = s.cred.RefreshToken
	}
	if cred.FrontToken == "" {
		cred.FrontToken = s.cred.FrontToken
	}

	s.cred = cred
	utils.Log.Debugf("Session refreshed, token expires at %s", time.Unix(cred.ExpiresAt, 0))
	return cred, nil
}

func snippet(body string) string {
	if len(body) > 200 {
		return body[:200]
	}
	return body
}
