package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ebulku/xtream-player/internal/utils"
)

func callWith(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth("secret")(next)(c))
	return rec, c, called
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _, called := callWith(t, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec, _, called := callWith(t, "Bearer not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 1, "a@b.c", 0, 5)
	require.NoError(t, err)
	rec, _, called := callWith(t, "Bearer "+at.Token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 7, "a@b.c", 3, 5)
	require.NoError(t, err)

	rec, c, called := callWith(t, "Bearer "+at.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
	require.Equal(t, float64(7), c.Get("user_id"))
	require.Equal(t, "a@b.c", c.Get("email"))
	require.Equal(t, float64(3), c.Get("active_profile"))
}
