package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ebulku/xtream-player/internal/model"
	"github.com/ebulku/xtream-player/internal/repository"
	"github.com/ebulku/xtream-player/internal/utils"
)

// ----- fakes -----

type fakeUsers struct {
	byEmail map[string]model.User
	nextID  uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]model.User{}, nextID: 1}
}

func (f *fakeUsers) Create(_ context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := f.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	f.byEmail[email] = model.User{ID: id, Email: email, PasswordHash: hash, IsActive: true}
	return id, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

type storedRefresh struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	byHash map[string]*storedRefresh
}

func newFakeTokens() *fakeTokens { return &fakeTokens{byHash: map[string]*storedRefresh{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.byHash[hash] = &storedRefresh{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	st, ok := f.byHash[hash]
	if !ok || st.revoked || time.Now().UTC().After(st.exp) {
		return 0, sql.ErrNoRows
	}
	return st.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	if st, ok := f.byHash[hash]; ok {
		st.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for _, st := range f.byHash {
		if st.userID == userID {
			st.revoked = true
		}
	}
	return nil
}

func newAuthHandlerForTest() (*AuthHandler, *fakeUsers, *fakeTokens) {
	users := newFakeUsers()
	tokens := newFakeTokens()
	h := NewAuthHandler(testConfig(), users, tokens, &fakeProfiles{}, &fakeCache{})
	return h, users, tokens
}

// ----- tests -----

func TestRegisterIssuesTokenPair(t *testing.T) {
	h, _, _ := newAuthHandlerForTest()

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"email":"User@Example.com","password":"hunter2"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "user@example.com", resp.User.Email)
	require.NotEmpty(t, resp.Access.Token)
	require.NotEmpty(t, resp.Refresh.Token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _, _ := newAuthHandlerForTest()

	c, _ := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"email":"a@b.c","password":"x"}`)
	require.NoError(t, h.Register(c))

	c2, rec2 := newTestContext(t, http.MethodPost, "/api/auth/register",
		`{"email":"a@b.c","password":"x"}`)
	require.NoError(t, h.Register(c2))
	require.Equal(t, http.StatusConflict, rec2.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	h, users, _ := newAuthHandlerForTest()
	_, err := users.Create(context.Background(), "a@b.c", "right", 4)
	require.NoError(t, err)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"a@b.c","password":"wrong"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	h, _, _ := newAuthHandlerForTest()

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@b.c","password":"x"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	h, users, _ := newAuthHandlerForTest()
	_, err := users.Create(context.Background(), "a@b.c", "pw", 4)
	require.NoError(t, err)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"a@b.c","password":"pw"}`)
	require.NoError(t, h.Login(c))
	var first authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	c2, rec2 := newTestContext(t, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+first.Refresh.Token+`"}`)
	require.NoError(t, h.Refresh(c2))
	require.Equal(t, http.StatusOK, rec2.Code)
	var second authResp
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &second))
	require.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	// The old refresh token was revoked by the rotation.
	c3, rec3 := newTestContext(t, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"`+first.Refresh.Token+`"}`)
	require.NoError(t, h.Refresh(c3))
	require.Equal(t, http.StatusUnauthorized, rec3.Code)
}

func TestLogoutWithRefreshTokenRevokesSession(t *testing.T) {
	h, users, tokens := newAuthHandlerForTest()
	_, err := users.Create(context.Background(), "a@b.c", "pw", 4)
	require.NoError(t, err)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"a@b.c","password":"pw"}`)
	require.NoError(t, h.Login(c))
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	c2, rec2 := newTestContext(t, http.MethodPost, "/api/auth/logout",
		`{"refreshToken":"`+resp.Refresh.Token+`"}`)
	require.NoError(t, h.Logout(c2))
	require.Equal(t, http.StatusNoContent, rec2.Code)

	_, err = tokens.ValidateRefresh(context.Background(), utils.HashRefreshRaw(resp.Refresh.Token))
	require.Error(t, err)
}

func TestLogoutWithoutAnythingRejected(t *testing.T) {
	h, _, _ := newAuthHandlerForTest()
	c, rec := newTestContext(t, http.MethodPost, "/api/auth/logout", "")
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
