// Package iptv talks to Xtream-compatible IPTV endpoints. Its only job in
// this service is credential verification: before a profile is persisted the
// upstream account is checked so unreachable or mistyped endpoints are never
// stored.
package iptv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidCredentials is returned when the endpoint answered but rejected
// the username/password pair.
var ErrInvalidCredentials = errors.New("iptv: invalid credentials")

// ErrUnreachable is returned when the endpoint could not be reached or did
// not answer with a parseable Xtream response.
var ErrUnreachable = errors.New("iptv: endpoint unreachable")

// Client verifies Xtream accounts over HTTP. A zero timeout falls back to
// ten seconds; upstream portals are routinely slow.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{HTTP: &http.Client{Timeout: timeout}, Timeout: timeout}
}

// playerAPIResponse mirrors the subset of the Xtream player_api answer we
// care about. auth is 1 for a valid account and 0 otherwise; some portals
// additionally report a status string such as "Active" or "Expired".
type playerAPIResponse struct {
	UserInfo struct {
		Auth   json.Number `json:"auth"`
		Status string      `json:"status"`
	} `json:"user_info"`
}

// NormalizeURL cleans up a user-supplied endpoint URL: a missing scheme
// defaults to http, trailing slashes and a pasted player_api.php path are
// stripped so only the base URL remains.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.HasPrefix(strings.ToLower(s), "http://") && !strings.HasPrefix(strings.ToLower(s), "https://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("missing host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(strings.ToLower(u.Path), "/player_api.php") {
		u.Path = u.Path[:len(u.Path)-len("/player_api.php")]
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Verify checks a username/password pair against the endpoint's player_api.
// It returns nil for a valid account, ErrInvalidCredentials when the portal
// rejected the pair, and ErrUnreachable (wrapping the cause) for everything
// else. The call is bounded by the client timeout on top of ctx.
func (c *Client) Verify(ctx context.Context, baseURL, username, password string) error {
	base, err := NormalizeURL(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	q := url.Values{}
	q.Set("username", username)
	q.Set("password", password)
	endpoint := base + "/player_api.php?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	// Some portals answer 401/403 for bad credentials instead of auth=0.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: endpoint returned %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	var parsed playerAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: unexpected response body", ErrUnreachable)
	}
	if auth, err := parsed.UserInfo.Auth.Int64(); err == nil && auth == 1 {
		if strings.EqualFold(parsed.UserInfo.Status, "Expired") || strings.EqualFold(parsed.UserInfo.Status, "Disabled") {
			return ErrInvalidCredentials
		}
		return nil
	}
	return ErrInvalidCredentials
}
