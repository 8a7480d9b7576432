package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/config"
	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
	"github.com/openpress/blog-api/internal/utils"
)

// UserHandler serves account management endpoints. Listing and detail are
// public; create/delete are ADMIN operations and update is allowed for
// the account owner or an ADMIN.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Posts *repository.PostRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, p *repository.PostRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Posts: p}
}

type createUserReq struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

type updateUserReq struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

type userListView struct {
	userView
	PostCount uint64 `json:"post_count"`
}

type postSummary struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
	CreatedAt string `json:"created_at"`
}

// List handles GET /api/users. Only active accounts appear; supports
// page/limit pagination plus search (name or email) and role filters.
func (h *UserHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	f := repository.UserFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Role:   strings.ToUpper(strings.TrimSpace(c.QueryParam("role"))),
		Page:   page,
		Limit:  limit,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Users.List(ctx, f)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	views := make([]userListView, 0, len(items))
	for _, it := range items {
		v := userListView{userView: toUserView(it.User, nil), PostCount: it.PostCount}
		v.Bio = it.Bio
		v.Avatar = it.Avatar
		views = append(views, v)
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return ok(c, http.StatusOK, echo.Map{
		"users":        views,
		"total":        total,
		"total_pages":  (total + int64(f.Limit) - 1) / int64(f.Limit),
		"current_page": f.Page,
	})
}

// Get handles GET /api/users/:id and returns the user with profile and
// authored posts.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	profile, err := h.Users.GetProfile(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	posts, err := h.Posts.ListByAuthor(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	summaries := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, postSummary{
			ID:        p.ID,
			Title:     p.Title,
			Published: p.Published,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return ok(c, http.StatusOK, echo.Map{
		"user":  toUserView(u, profile),
		"posts": summaries,
	})
}

// Create handles POST /api/users (ADMIN). The optional bio/avatar fields
// create the profile row in the same transaction as the account.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email, name and password are required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return fail(c, http.StatusBadRequest, "unknown role")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "create user failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Name, hash, role, req.Bio, req.Avatar)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "create user failed")
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "create user failed")
	}
	profile, err := h.Users.GetProfile(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "create user failed")
	}
	return ok(c, http.StatusCreated, echo.Map{"user": toUserView(u, profile)})
}

// Update handles PUT /api/users/:id. A user may edit their own name and
// profile; only an ADMIN may edit other accounts or change roles. The
// users row and the profile row are written in one transaction.
func (h *UserHandler) Update(c echo.Context) error {
	caller, okc := principal(c)
	if !okc {
		return fail(c, http.StatusUnauthorized, "not authorized")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	if caller.ID != id && caller.Role != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "forbidden")
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	patch := repository.UserPatch{Name: req.Name, Bio: req.Bio, Avatar: req.Avatar}
	if req.Role != nil {
		if caller.Role != model.RoleAdmin {
			return fail(c, http.StatusForbidden, "only admins may change roles")
		}
		role := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !model.ValidRole(role) {
			return fail(c, http.StatusBadRequest, "unknown role")
		}
		patch.Role = &role
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateWithProfile(ctx, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "update failed")
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	profile, err := h.Users.GetProfile(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return ok(c, http.StatusOK, echo.Map{"user": toUserView(u, profile)})
}

// Delete handles DELETE /api/users/:id (ADMIN). Accounts are
// soft-deleted: the row stays, is_active is cleared and every auth
// checkpoint rejects the account from then on.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}
