package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
	"github.com/openpress/blog-api/internal/utils"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUser   = "user"    // model.User of the authenticated principal
	CtxUserID = "user_id" // uint64 id
	CtxRole   = "role"    // role string
)

// Auth returns an Echo middleware that admits a request only after the
// full chain passes: a Bearer token is present, its signature and expiry
// verify, its purpose is "session", and the subject resolves to an active
// account in the store. The resolved user is attached to the context so
// handlers never re-parse the token. Any failure along the chain yields
// the same 401 body; an inactive account is rejected even while its
// tokens are still time-valid.
func Auth(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "not authorized"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := utils.VerifyToken(secret, raw)
			if err != nil || claims.Purpose != utils.PurposeSession {
				// Expired, forged, or a reset/refresh token replayed as a
				// session token.
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "not authorized"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "not authorized"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "not authorized"})
			}

			c.Set(CtxUser, u)
			c.Set(CtxUserID, u.ID)
			c.Set(CtxRole, u.Role)
			return next(c)
		}
	}
}

// Principal returns the authenticated user attached by Auth. The boolean
// is false when the middleware did not run on this route.
func Principal(c echo.Context) (model.User, bool) {
	u, ok := c.Get(CtxUser).(model.User)
	return u, ok
}
