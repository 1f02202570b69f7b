package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackend is a tiny in-memory rendition of the profile manager API,
// just enough surface for the client to exercise its contract.
type fakeBackend struct {
	mux        *http.ServeMux
	token      string // the only accepted bearer token
	profiles   []Profile
	activeID   uint64
	nextID     uint64
	verifyFail bool
	requests   int64
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{token: "tok-1", nextID: 1}
	b.mux = http.NewServeMux()
	b.mux.HandleFunc("GET /api/auth/me", b.withAuth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"userId": 1})
	}))
	b.mux.HandleFunc("GET /api/profiles", b.withAuth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Page{Profiles: b.profiles, ActiveProfileID: b.activeID})
	}))
	b.mux.HandleFunc("POST /api/profiles", b.withAuth(func(w http.ResponseWriter, r *http.Request) {
		if b.verifyFail {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid IPTV credentials"})
			return
		}
		var form FormData
		json.NewDecoder(r.Body).Decode(&form)
		p := Profile{ID: b.nextID, UserID: 1, Name: form.Name, IptvURL: form.IptvURL, IptvUsername: form.IptvUsername}
		b.nextID++
		if len(b.profiles) == 0 {
			p.IsActive = true
			b.activeID = p.ID
		}
		b.profiles = append(b.profiles, p)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(p)
	}))
	b.mux.HandleFunc("POST /api/profiles/setActive", b.withAuth(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProfileID uint64 `json:"profileId"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for i := range b.profiles {
			b.profiles[i].IsActive = b.profiles[i].ID == req.ProfileID
		}
		for _, p := range b.profiles {
			if p.ID == req.ProfileID {
				b.activeID = p.ID
				b.token = "tok-2" // reissued, scoped to the new profile
				p.IsActive = true
				json.NewEncoder(w).Encode(map[string]any{"token": b.token, "profile": p})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "profile not found"})
	}))
	b.mux.HandleFunc("DELETE /api/profiles/{id}", b.withAuth(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(r.PathValue("id"), 10, 64)
		for i, p := range b.profiles {
			if p.ID == id {
				if p.ID == b.activeID {
					w.WriteHeader(http.StatusConflict)
					json.NewEncoder(w).Encode(map[string]string{"error": "cannot delete the active profile"})
					return
				}
				b.profiles = append(b.profiles[:i], b.profiles[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "profile not found"})
	}))
	return b
}

func (b *fakeBackend) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.requests, 1)
		if r.Header.Get("Authorization") != "Bearer "+b.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBackend, *MemorySessionStore) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.mux)
	t.Cleanup(srv.Close)
	store := NewMemorySessionStore()
	store.SetToken("tok-1")
	return New(srv.URL, store), backend, store
}

func TestBootstrapWithoutTokenIsUnauthorized(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.mux)
	t.Cleanup(srv.Close)

	c := New(srv.URL, nil)
	require.ErrorIs(t, c.Bootstrap(context.Background()), ErrUnauthorized)
	require.Zero(t, backend.requests, "no request may be issued without a stored token")
}

func TestBootstrapRejectedTokenClearsSession(t *testing.T) {
	c, _, store := newTestClient(t)
	store.SetToken("expired")
	store.SetActiveProfile(Profile{ID: 9})

	require.ErrorIs(t, c.Bootstrap(context.Background()), ErrUnauthorized)
	require.Empty(t, store.Token())
	_, ok := store.ActiveProfile()
	require.False(t, ok, "cached active profile must be evicted with the session")
}

func TestProfilesUnauthorized(t *testing.T) {
	c, _, store := newTestClient(t)
	store.SetToken("bogus")
	_, err := c.Profiles(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateProfileSurfacesVerificationFailure(t *testing.T) {
	c, backend, _ := newTestClient(t)
	backend.verifyFail = true

	_, err := c.CreateProfile(context.Background(), FormData{
		Name: "Home", IptvURL: "http://tv.example.com", IptvUsername: "u", IptvPassword: "wrong",
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "invalid IPTV credentials", apiErr.Message)
	require.Empty(t, backend.profiles, "nothing may be persisted when verification fails")
}

func TestCreateProfileReturnsFreshSnapshot(t *testing.T) {
	c, _, _ := newTestClient(t)

	page, err := c.CreateProfile(context.Background(), FormData{
		Name: "Home", IptvURL: "http://tv.example.com", IptvUsername: "u", IptvPassword: "p",
	})
	require.NoError(t, err)
	require.Len(t, page.Profiles, 1)
	require.Equal(t, "Home", page.Profiles[0].Name)
	require.Equal(t, page.Profiles[0].ID, page.ActiveProfileID, "first profile becomes active")
}

func TestSetActiveInstallsReissuedToken(t *testing.T) {
	c, backend, store := newTestClient(t)
	backend.profiles = []Profile{
		{ID: 1, Name: "A", IsActive: true},
		{ID: 2, Name: "B"},
	}
	backend.activeID = 1
	backend.nextID = 3

	p, err := c.SetActive(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.ID)
	require.True(t, p.IsActive)

	// The reissued token is now the session; the profile is cached locally.
	require.Equal(t, "tok-2", store.Token())
	cached, ok := store.ActiveProfile()
	require.True(t, ok)
	require.Equal(t, uint64(2), cached.ID)

	// Subsequent requests authenticate with the new token.
	page, err := c.Profiles(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), page.ActiveProfileID)
}

func TestDeleteActiveProfileSurfacesServerError(t *testing.T) {
	c, backend, _ := newTestClient(t)
	backend.profiles = []Profile{{ID: 1, Name: "A", IsActive: true}}
	backend.activeID = 1

	_, err := c.DeleteProfile(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "cannot delete the active profile", apiErr.Message)
	require.Len(t, backend.profiles, 1)
}

func TestDeleteProfileReturnsFreshSnapshot(t *testing.T) {
	c, backend, _ := newTestClient(t)
	backend.profiles = []Profile{
		{ID: 1, Name: "A", IsActive: true},
		{ID: 2, Name: "B"},
	}
	backend.activeID = 1
	backend.nextID = 3

	page, err := c.DeleteProfile(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Profiles, 1)
	require.Equal(t, uint64(1), page.Profiles[0].ID)
}

func TestPageCanDelete(t *testing.T) {
	page := Page{
		Profiles:        []Profile{{ID: 1, IsActive: true}, {ID: 2}},
		ActiveProfileID: 1,
	}
	require.False(t, page.CanDelete(1), "the active profile never offers deletion")
	require.True(t, page.CanDelete(2))
	require.False(t, page.CanDelete(0))
}
