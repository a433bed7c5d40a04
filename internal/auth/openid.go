// Package auth handles Steam OpenID 2.0 sign-in and signed session tokens.
// The cache core never sees any of this; handlers resolve a request to a
// plain steam id before touching the store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const openidEndpoint = "https://steamcommunity.com/openid/login"

var (
	// ErrVerificationFailed is returned when Steam does not confirm the
	// assertion or the claimed id is not a Steam profile.
	ErrVerificationFailed = errors.New("openid verification failed")

	claimedIDPattern = regexp.MustCompile(`^https?://steamcommunity\.com/openid/id/(\d+)$`)
)

// OpenID implements the Steam relying-party side of OpenID 2.0.
type OpenID struct {
	endpoint   string
	httpClient *http.Client
}

// NewOpenID creates an OpenID verifier against the Steam community endpoint.
func NewOpenID() *OpenID {
	return &OpenID{
		endpoint: openidEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// LoginURL builds the redirect URL that sends the user to Steam's sign-in
// page. returnTo is where Steam redirects back with the assertion.
func (o *OpenID) LoginURL(returnTo, realm string) string {
	query := url.Values{
		"openid.ns":         {"http://specs.openid.net/auth/2.0"},
		"openid.mode":       {"checkid_setup"},
		"openid.return_to":  {returnTo},
		"openid.realm":      {realm},
		"openid.identity":   {"http://specs.openid.net/auth/2.0/identifier_select"},
		"openid.claimed_id": {"http://specs.openid.net/auth/2.0/identifier_select"},
	}
	return o.endpoint + "?" + query.Encode()
}

// Verify replays the assertion back to Steam with mode
// check_authentication and extracts the steam id from the claimed id.
func (o *OpenID) Verify(ctx context.Context, params url.Values) (string, error) {
	verify := url.Values{}
	for key, values := range params {
		if strings.HasPrefix(key, "openid.") {
			verify[key] = values
		}
	}
	verify.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint,
		strings.NewReader(verify.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openid check_authentication: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if !strings.Contains(string(body), "is_valid:true") {
		return "", ErrVerificationFailed
	}

	match := claimedIDPattern.FindStringSubmatch(params.Get("openid.claimed_id"))
	if match == nil {
		return "", ErrVerificationFailed
	}
	return match[1], nil
}
