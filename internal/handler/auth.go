package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mlefevre/boutique-api/internal/config"
	"github.com/mlefevre/boutique-api/internal/logging"
	"github.com/mlefevre/boutique-api/internal/model"
	"github.com/mlefevre/boutique-api/internal/queue"
	"github.com/mlefevre/boutique-api/internal/repository"
	queue_publisher "github.com/mlefevre/boutique-api/internal/service"
	"github.com/mlefevre/boutique-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints. Publish is the auth
// event sink; it defaults to the RabbitMQ publisher and is swappable for
// tests. Events are fire-and-forget, a broker outage never fails a request.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Publish func(context.Context, queue.AuthEvent) error
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Publish: queue_publisher.PublishAuthEvent}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// tokenBundle is the shared response shape of login and refresh.
type tokenBundle struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresIn  int       `json:"accessTokenExpiresIn"` // seconds
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	User                  userPart  `json:"user"`
}

// Login verifies credentials and returns a fresh access/refresh pair. The
// raw refresh token is returned to the client and never stored or logged.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l := logging.FromContext(ctx)

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			// Same message as a wrong password: no user-existence oracle.
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		l.Error("login: user lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	bundle, err := h.issuePair(ctx, u)
	if err != nil {
		l.Error("login: issuing tokens failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}

	h.publish(queue.EventLogin, u.ID, u.Email)
	return c.JSON(http.StatusOK, bundle)
}

// Refresh rotates the presented refresh token: the old row is consumed and
// a brand-new token issued for the same user in one transaction. Reuse of
// an already-rotated token fails with not_found.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken is required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l := logging.FromContext(ctx)

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		l.Error("refresh: token generation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}

	res, err := h.Tokens.Rotate(ctx, utils.HashRefreshRaw(raw), utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		l.Error("refresh: rotation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}
	if !res.Valid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": fmt.Sprintf("refresh token %s", res.Reason)})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, res.Token.UserID, res.Email, res.Role, h.Cfg.AccessTTLSec)
	if err != nil {
		l.Error("refresh: signing access token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}

	h.publish(queue.EventTokenRotated, res.Token.UserID, res.Email)
	return c.JSON(http.StatusOK, tokenBundle{
		AccessToken:           access.Token,
		AccessTokenExpiresIn:  h.Cfg.AccessTTLSec,
		RefreshToken:          next.Raw,
		RefreshTokenExpiresAt: next.Exp,
		User:                  userPart{ID: res.Token.UserID, Email: res.Email, Role: res.Role},
	})
}

// Logout revokes the presented refresh token. The operation is idempotent:
// unknown or already-revoked tokens still yield success, so clients can
// retry freely.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		logging.FromContext(ctx).Error("logout: revoke failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}

	h.publish(queue.EventTokenRevoked, 0, "")
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the authenticated user's identity, re-read from the store so
// a deleted account yields 404 even while its access token is still live.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := c.Get("user_id").(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		logging.FromContext(ctx).Error("me: user lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	})
}

// issuePair signs an access token and persists a new refresh token hash.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (tokenBundle, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLSec)
	if err != nil {
		return tokenBundle{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenBundle{}, err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenBundle{}, err
	}
	return tokenBundle{
		AccessToken:           access.Token,
		AccessTokenExpiresIn:  h.Cfg.AccessTTLSec,
		RefreshToken:          refresh.Raw,
		RefreshTokenExpiresAt: refresh.Exp,
		User:                  userPart{ID: u.ID, Email: u.Email, Role: u.Role},
	}, nil
}

func (h *AuthHandler) publish(event string, userID uint64, email string) {
	if h.Publish == nil {
		return
	}
	ev := queue.AuthEvent{
		Event:  event,
		UserID: userID,
		Email:  email,
		At:     time.Now().UTC().Format(model.TimeLayout),
	}
	go func() { _ = h.Publish(context.Background(), ev) }()
}
