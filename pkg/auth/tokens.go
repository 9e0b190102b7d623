package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// SuperTokens returns session state out-of-band in these response headers,
// not in the response body.
const (
	HeaderAccessToken  = "st-access-token"
	HeaderRefreshToken = "st-refresh-token"
	HeaderFrontToken   = "front-token"
)

// ExpiryBuffer is how long before the actual expiry a token is already
// treated as expired, so a token is never used right at the edge of its
// lifetime during an in-flight request.
const ExpiryBuffer = 300 * time.Second

// fallbackTTL is assumed when the access token's expiry can't be decoded.
const fallbackTTL = time.Hour

// Credential holds one session's tokens. It lives in process memory only
// and is replaced wholesale on every login or refresh.
type Credential struct {
	AccessToken  string
	RefreshToken string
	FrontToken   string
	ExpiresAt    int64 // Unix timestamp
}

// Expired reports whether the access token is within buffer of its expiry.
func (c *Credential) Expired(buffer time.Duration, now time.Time) bool {
	return now.Unix() >= c.ExpiresAt-int64(buffer.Seconds())
}

// CredentialFromHeaders extracts a Credential from response headers and
// decodes the access token's expiry claim.
func CredentialFromHeaders(h http.Header, now time.Time) *Credential {
	access := h.Get(HeaderAccessToken)
	return &Credential{
		AccessToken:  access,
		RefreshToken: h.Get(HeaderRefreshToken),
		FrontToken:   h.Get(HeaderFrontToken),
		ExpiresAt:    decodeExpiry(access, now),
	}
}

// decodeExpiry reads the exp claim from the unverified payload segment of a
// JWT. The token is self-issued by the identity provider and only used
// locally to estimate expiry, so no signature check happens here. A token
// that can't be decoded gets a best-effort one hour estimate.
func decodeExpiry(accessToken string, now time.Time) int64 {
	fallback := now.Add(fallbackTTL).Unix()

	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return fallback
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fallback
	}
	exp := gjson.GetBytes(payload, "exp")
	if !exp.Exists() || exp.Int() <= 0 {
		return fallback
	}
	return exp.Int()
}
