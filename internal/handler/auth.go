package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/config"
	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/queue"
	"github.com/openpress/blog-api/internal/repository"
	notifier "github.com/openpress/blog-api/internal/service"
	"github.com/openpress/blog-api/internal/utils"
)

// AuthHandler bundles dependencies for identity endpoints: registration,
// login, token refresh and the password reset flow. Secrets are hashed
// and verified here; the repository below only ever sees hashes.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	Token string `json:"token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) sessionTTL() time.Duration {
	return time.Duration(h.Cfg.SessionTTLDays) * 24 * time.Hour
}

// Register creates an active USER account and logs it in immediately.
// Duplicate emails (any casing) yield 409.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email, name and password are required")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "registration failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Name, hash, model.RoleUser, nil, nil)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "registration failed")
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "registration failed")
	}

	tok, err := utils.IssueToken(h.Cfg.JWTSecret, uid, utils.PurposeSession, h.sessionTTL())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "registration failed")
	}

	return ok(c, http.StatusCreated, echo.Map{
		"user":  toUserView(u, nil),
		"token": tok.Token,
	})
}

// Login verifies credentials and issues a session token. Unknown email,
// inactive account and wrong password all produce the identical 401 so
// the response shape leaks nothing about which check failed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return fail(c, http.StatusInternalServerError, "login failed")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	tok, err := utils.IssueToken(h.Cfg.JWTSecret, u.ID, utils.PurposeSession, h.sessionTTL())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "login failed")
	}

	profile, err := h.Users.GetProfile(ctx, u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "login failed")
	}

	return ok(c, http.StatusOK, echo.Map{
		"user":  toUserView(u, profile),
		"token": tok.Token,
	})
}

// Refresh exchanges a valid session or refresh token for a fresh session
// token. The presented token stays valid until its own expiry; stateless
// tokens cannot be revoked in this design. Reset tokens are rejected here
// so a leaked reset link can never become a session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return fail(c, http.StatusBadRequest, "token required")
	}

	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, strings.TrimSpace(req.Token))
	if err != nil || claims.Purpose == utils.PurposeReset {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid token")
		}
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}
	if !u.IsActive {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}

	tok, err := utils.IssueToken(h.Cfg.JWTSecret, u.ID, utils.PurposeSession, h.sessionTTL())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}
	return ok(c, http.StatusOK, echo.Map{"token": tok.Token})
}

// Logout acknowledges the request. Tokens are stateless and carry no
// server-side session, so there is nothing to invalidate.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logout successful"})
}

// ForgotPassword always answers 200 with the same message so responses
// cannot be used to enumerate accounts. When the account exists, a
// reset-purpose token is published to the notification queue; it is never
// included in the response, and a broker failure is logged but not
// surfaced.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return fail(c, http.StatusBadRequest, "email required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	const accepted = "if the account exists, a reset link has been sent"

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, echo.Map{"success": true, "message": accepted})
		}
		return fail(c, http.StatusInternalServerError, "request failed")
	}
	if !u.IsActive {
		// Deactivated accounts get the same answer as unknown ones.
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": accepted})
	}

	ttl := time.Duration(h.Cfg.ResetTTLMin) * time.Minute
	tok, err := utils.IssueToken(h.Cfg.JWTSecret, u.ID, utils.PurposeReset, ttl)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "request failed")
	}

	_ = notifier.PublishPasswordReset(ctx, queue.PasswordResetRequestedEvent{
		Email:       u.Email,
		ResetToken:  tok.Token,
		ExpiresAt:   tok.Exp.Format(time.RFC3339),
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": accepted})
}

// ResetPassword overwrites the stored credential when presented with an
// unexpired reset-purpose token. Any verification failure, including a
// session token replayed here, is a 400.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "token and password are required")
	}

	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, strings.TrimSpace(req.Token))
	if err != nil || claims.Purpose != utils.PurposeReset {
		return fail(c, http.StatusBadRequest, "invalid or expired reset token")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "reset failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdatePasswordHash(ctx, claims.Subject, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid or expired reset token")
		}
		return fail(c, http.StatusInternalServerError, "reset failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password reset successful"})
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c echo.Context) error {
	u, okc := principal(c)
	if !okc {
		return fail(c, http.StatusUnauthorized, "not authorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	profile, err := h.Users.GetProfile(ctx, u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "lookup failed")
	}
	return ok(c, http.StatusOK, echo.Map{"user": toUserView(u, profile)})
}
