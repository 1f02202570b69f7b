// Package client is a thin Go consumer of the profile manager API. It
// reproduces the behaviour of the web page that originally drove these
// endpoints: bootstrap the session from stored credentials, fetch the
// profile collection wholesale, create with server-side credential
// verification, switch the active profile (installing the reissued token),
// and delete non-active profiles.
//
// Navigation is never decided here. Every operation reports unauthorized
// sessions through ErrUnauthorized so the caller chooses what "redirect to
// login" means in its context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrUnauthorized reports an absent or rejected session. Callers treat a
// failed session resolution identically to an absent one.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError carries a server-provided failure message with its status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api error %d: %s", e.Status, e.Message)
}

// Profile mirrors the server's profile representation. The upstream
// password never appears in responses.
type Profile struct {
	ID           uint64    `json:"id"`
	UserID       uint64    `json:"userId"`
	Name         string    `json:"name"`
	IptvURL      string    `json:"iptvUrl"`
	IptvUsername string    `json:"iptvUsername"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Page is one whole-collection snapshot: the full profile set plus the id
// of the active profile (0 when none). Collections are always replaced
// wholesale with a fresh Page; there is no incremental merge.
type Page struct {
	Profiles        []Profile `json:"profiles"`
	ActiveProfileID uint64    `json:"activeProfileId"`
}

// CanDelete reports whether the delete control should be offered for the
// given profile id. The active profile is never deletable.
func (p Page) CanDelete(id uint64) bool {
	return id != 0 && id != p.ActiveProfileID
}

// FormData stages a new profile before persistence.
type FormData struct {
	Name         string `json:"name"`
	IptvURL      string `json:"iptvUrl"`
	IptvUsername string `json:"iptvUsername"`
	IptvPassword string `json:"iptvPassword"`
}

// SessionStore abstracts the persisted session: the bearer token plus a
// locally cached copy of the active profile for fast reads.
type SessionStore interface {
	Token() string
	SetToken(tok string)
	ActiveProfile() (Profile, bool)
	SetActiveProfile(p Profile)
	Clear()
}

// MemorySessionStore is the default SessionStore: an in-memory token and
// active-profile cache guarded by a RWMutex.
type MemorySessionStore struct {
	mu     sync.RWMutex
	token  string
	active *Profile
}

func NewMemorySessionStore() *MemorySessionStore { return &MemorySessionStore{} }

func (s *MemorySessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemorySessionStore) SetToken(tok string) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

func (s *MemorySessionStore) ActiveProfile() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return Profile{}, false
	}
	return *s.active, true
}

func (s *MemorySessionStore) SetActiveProfile(p Profile) {
	s.mu.Lock()
	s.active = &p
	s.mu.Unlock()
}

func (s *MemorySessionStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.active = nil
	s.mu.Unlock()
}

// Client talks to one profile manager service on behalf of one session.
// A mutex serializes user-triggered actions so two mutations never
// interleave against the same collection; a slow request simply delays the
// next one.
type Client struct {
	base  string
	http  *http.Client
	store SessionStore
	mu    sync.Mutex
}

// New builds a Client for the given base URL. A nil store gets a fresh
// MemorySessionStore.
func New(baseURL string, store SessionStore) *Client {
	if store == nil {
		store = NewMemorySessionStore()
	}
	return &Client{
		base:  strings.TrimSuffix(baseURL, "/"),
		http:  &http.Client{Timeout: 30 * time.Second},
		store: store,
	}
}

// do performs one authenticated request. A 401 clears nothing by itself but
// is always surfaced as ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.store.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// apiErr reads a failure body and extracts whichever of "message"/"error"
// the endpoint uses, falling back to a generic text.
func apiErr(resp *http.Response) error {
	defer resp.Body.Close()
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := "request failed"
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

// Register creates an account and installs the returned access token.
func (c *Client) Register(ctx context.Context, email, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticate(ctx, "/api/auth/register", email, password, http.StatusCreated)
}

// Login signs in and installs the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticate(ctx, "/api/auth/login", email, password, http.StatusOK)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string, want int) error {
	resp, err := c.do(ctx, http.MethodPost, path, credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return apiErr(resp)
	}
	defer resp.Body.Close()
	var ar authResp
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return err
	}
	c.store.SetToken(ar.Access.Token)
	return nil
}

// Bootstrap resolves the current session. With no stored token, or when the
// server rejects it, the stored session is cleared and ErrUnauthorized is
// returned; the caller redirects to its login surface and performs no
// further action.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c.store.Token() == "" {
		return ErrUnauthorized
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if errors.Is(err, ErrUnauthorized) {
		c.store.Clear()
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.store.Clear()
		return ErrUnauthorized
	}
	return nil
}

// Profiles fetches one fresh collection snapshot. Callers replace their
// state with the result; on failure they keep the previous snapshot
// (stale but consistent).
func (c *Client) Profiles(ctx context.Context) (Page, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/profiles", nil)
	if err != nil {
		return Page{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, apiErr(resp)
	}
	defer resp.Body.Close()
	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// CreateProfile stages a new profile. The server verifies the IPTV
// credentials before persisting anything, so an invalid endpoint comes back
// as an APIError and no profile exists afterwards. On success a fresh
// collection snapshot is fetched and returned.
func (c *Client) CreateProfile(ctx context.Context, form FormData) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.do(ctx, http.MethodPost, "/api/profiles", form)
	if err != nil {
		return Page{}, err
	}
	if resp.StatusCode != http.StatusCreated {
		return Page{}, apiErr(resp)
	}
	resp.Body.Close()
	return c.Profiles(ctx)
}

type setActiveReq struct {
	ProfileID uint64 `json:"profileId"`
}

type setActiveResp struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// SetActive switches the active profile. The response carries a reissued
// access token scoped to the new profile; it is installed as the current
// session and the profile object is cached for fast subsequent reads.
// Nothing is changed optimistically, so a failure needs no rollback.
func (c *Client) SetActive(ctx context.Context, profileID uint64) (Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.do(ctx, http.MethodPost, "/api/profiles/setActive", setActiveReq{ProfileID: profileID})
	if err != nil {
		return Profile{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, apiErr(resp)
	}
	defer resp.Body.Close()
	var sr setActiveResp
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Profile{}, err
	}
	if sr.Token != "" {
		c.store.SetToken(sr.Token)
	}
	c.store.SetActiveProfile(sr.Profile)
	return sr.Profile, nil
}

// DeleteProfile removes a non-active profile and returns a fresh collection
// snapshot. Deleting the active profile is rejected by the server; callers
// should consult Page.CanDelete before offering the action.
func (c *Client) DeleteProfile(ctx context.Context, profileID uint64) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/profiles/%d", profileID), nil)
	if err != nil {
		return Page{}, err
	}
	if resp.StatusCode != http.StatusNoContent {
		return Page{}, apiErr(resp)
	}
	resp.Body.Close()
	return c.Profiles(ctx)
}
