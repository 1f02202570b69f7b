package handler // handler defines http handlers

import (
    "context"      // context is part of the store interfaces below
    "errors"       // errors provides sentinel values used in getUserID
    "strconv"      // strconv converts strings to numeric types
    "time"         // time appears in token signatures

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/ebulku/xtream-player/internal/model" // model holds shared record types
)

// UserStore is the slice of the user repository the handlers need.
type UserStore interface {
    Create(ctx context.Context, email, password string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists and validates hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// ProfileStore is the slice of the profile repository the handlers need.
type ProfileStore interface {
    Create(ctx context.Context, p *model.Profile) (uint64, error)
    ListByOwner(ctx context.Context, userID uint64) ([]model.Profile, uint64, error)
    GetActive(ctx context.Context, userID uint64) (model.Profile, error)
    SetActive(ctx context.Context, id, userID uint64) (model.Profile, error)
    DeleteByIDAndOwner(ctx context.Context, id, userID uint64) error
}

// CredentialVerifier checks an IPTV endpoint/username/password triple. A nil
// error means the account is valid.
type CredentialVerifier interface {
    Verify(ctx context.Context, baseURL, username, password string) error
}

// ActiveCache caches the active profile per user.
type ActiveCache interface {
    SetActive(ctx context.Context, p model.Profile) error
    GetActive(ctx context.Context, userID uint64) (model.Profile, error)
    Invalidate(ctx context.Context, userID uint64) error
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) { // begin getUserID helper
    v := c.Get("user_id") // fetch user_id from context
    switch t := v.(type) { // perform type switch on the value
    case uint64: // when already uint64
        return t, nil // return directly
    case int: // when stored as int
        return uint64(t), nil // convert to uint64
    case int64: // when stored as int64
        return uint64(t), nil // convert to uint64
    case float64: // when stored as float64
        return uint64(t), nil // convert to uint64
    case string: // when stored as string
        if n, err := strconv.ParseUint(t, 10, 64); err == nil { // parse string to uint64
            return n, nil // return parsed number
        }
    } // end type switch
    return 0, errors.New("invalid user_id in context") // return error if value is missing or invalid
}

// getEmail pulls the email claim out of the context; an empty string is
// returned when the claim is missing or not a string.
func getEmail(c echo.Context) string {
    if s, ok := c.Get("email").(string); ok {
        return s
    }
    return ""
}
