// Package handler: profile endpoints. These implement the profile manager
// contract: list with an object envelope, verify-before-persist creation,
// transactional activation with access-token reissue, and deletion that
// refuses the active profile.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ebulku/xtream-player/internal/config"
	"github.com/ebulku/xtream-player/internal/iptv"
	"github.com/ebulku/xtream-player/internal/model"
	"github.com/ebulku/xtream-player/internal/queue"
	"github.com/ebulku/xtream-player/internal/repository"
	"github.com/ebulku/xtream-player/internal/utils"
)

// ProfileHandler bundles dependencies for profile endpoints. Publish is
// optional; when set it is called after a successful activation and its
// error is ignored so the broker can never fail a user request.
type ProfileHandler struct {
	Cfg      config.Config
	Profiles ProfileStore
	Verifier CredentialVerifier
	Cache    ActiveCache
	Publish  func(ctx context.Context, ev queue.ProfileActivatedEvent) error
}

func NewProfileHandler(cfg config.Config, p ProfileStore, v CredentialVerifier, cache ActiveCache,
	publish func(ctx context.Context, ev queue.ProfileActivatedEvent) error) *ProfileHandler {
	if p == nil || v == nil {
		panic("nil dependency passed to NewProfileHandler")
	}
	return &ProfileHandler{Cfg: cfg, Profiles: p, Verifier: v, Cache: cache, Publish: publish}
}

type createProfileReq struct {
	Name         string `json:"name"`
	IptvURL      string `json:"iptvUrl"`
	IptvUsername string `json:"iptvUsername"`
	IptvPassword string `json:"iptvPassword"`
}

type setActiveReq struct {
	ProfileID uint64 `json:"profileId"`
}

// listResp is the canonical envelope for GET /api/profiles. The collection
// is always wrapped in an object; activeProfileId is 0 when no profile is
// active.
type listResp struct {
	Profiles        []model.Profile `json:"profiles"`
	ActiveProfileID uint64          `json:"activeProfileId"`
}

// List handles GET /api/profiles and returns the authenticated user's full
// profile set. Clients replace their collection wholesale with this answer;
// there is no incremental reconciliation.
func (h *ProfileHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profiles, activeID, err := h.Profiles.ListByOwner(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, listResp{Profiles: profiles, ActiveProfileID: activeID})
}

// Create handles POST /api/profiles. The IPTV credentials are verified
// against the endpoint before anything is written: an invalid or unreachable
// account aborts the request and no row is inserted. Create failures use a
// "message" body; that is the shape the consuming clients read.
func (h *ProfileHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.IptvUsername = strings.TrimSpace(req.IptvUsername)
	if req.Name == "" || req.IptvURL == "" || req.IptvUsername == "" || req.IptvPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name, iptvUrl, iptvUsername and iptvPassword are required"})
	}
	normalized, err := iptv.NormalizeURL(req.IptvURL)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid IPTV url"})
	}

	// Verification runs against the remote endpoint and may be slow; it is
	// bounded by the verifier's own timeout, not the 5s DB budget.
	if err := h.Verifier.Verify(c.Request().Context(), normalized, req.IptvUsername, req.IptvPassword); err != nil {
		if errors.Is(err, iptv.ErrInvalidCredentials) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid IPTV credentials"})
		}
		log.Printf("profiles: credential check failed for user=%d: %v", userID, err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "could not reach IPTV endpoint"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := &model.Profile{
		UserID:       userID,
		Name:         req.Name,
		IptvURL:      normalized,
		IptvUsername: req.IptvUsername,
		IptvPassword: req.IptvPassword,
	}
	if _, err := h.Profiles.Create(ctx, p); err != nil {
		if err == repository.ErrProfileExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "profile name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create profile"})
	}
	// A first profile is activated on insert; keep the cache in step.
	if p.IsActive && h.Cache != nil {
		_ = h.Cache.SetActive(ctx, *p)
	}
	return c.JSON(http.StatusCreated, p)
}

// SetActive handles POST /api/profiles/setActive. On success the response
// carries a freshly signed access token whose active_profile claim names the
// new profile: activation is a context switch for the whole session, not
// just a flag flip. The activated profile is cached and an event published.
func (h *ProfileHandler) SetActive(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil || req.ProfileID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "profileId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.SetActive(ctx, req.ProfileID, userID)
	if err != nil {
		if err == repository.ErrProfileNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, getEmail(c), p.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	if h.Cache != nil {
		if err := h.Cache.SetActive(ctx, p); err != nil {
			log.Printf("profiles: cache active profile failed for user=%d: %v", userID, err)
		}
	}
	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ProfileActivatedEvent{
			UserID:      userID,
			ProfileID:   p.ID,
			ProfileName: p.Name,
			IptvURL:     p.IptvURL,
			ActivatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":   access.Token,
		"expires": access.Exp,
		"profile": p,
	})
}

// Delete handles DELETE /api/profiles/:id. The active profile is refused
// with 409; the client never renders a delete control for it, so hitting
// this path means a stale or hand-crafted request. Delete failures use an
// "error" body.
func (h *ProfileHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Profiles.DeleteByIDAndOwner(ctx, id, userID)
	if err != nil {
		switch err {
		case repository.ErrProfileNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		case repository.ErrProfileActive:
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete the active profile"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Active handles GET /api/profiles/active: a cache-first read of the user's
// active profile for the hot path. A cache miss falls back to the database
// and repopulates the entry.
func (h *ProfileHandler) Active(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.Cache != nil {
		if p, err := h.Cache.GetActive(ctx, userID); err == nil {
			return c.JSON(http.StatusOK, p)
		}
	}
	p, err := h.Profiles.GetActive(ctx, userID)
	if err != nil {
		if err == repository.ErrProfileNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active profile"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if h.Cache != nil {
		_ = h.Cache.SetActive(ctx, p)
	}
	return c.JSON(http.StatusOK, p)
}
