package handler // handler defines HTTP handlers for the API

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/middleware"
	"github.com/openpress/blog-api/internal/model"
)

// Every endpoint answers with the same envelope: on success
// {"success":true,"data":...}, on failure {"success":false,"message":...}.
// Internal details never reach the body; handlers log them instead.

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

// principal returns the authenticated user placed in context by the Auth
// middleware.
func principal(c echo.Context) (model.User, bool) {
	return middleware.Principal(c)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// userView is the sanitized user representation returned by the API. The
// password hash never appears in any response.
type userView struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	Bio       *string `json:"bio,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

func toUserView(u model.User, p *model.Profile) userView {
	v := userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p != nil {
		v.Bio = p.Bio
		v.Avatar = p.Avatar
	}
	return v
}
