package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
)

// PostHandler serves the content endpoints. Reads are public; writes
// require authentication, and update/delete additionally require that the
// caller authored the post. Category and tag memberships always change
// together with the post in one transaction.
type PostHandler struct {
	Posts *repository.PostRepo
}

func NewPostHandler(p *repository.PostRepo) *PostHandler {
	return &PostHandler{Posts: p}
}

// Relation sets are accepted under both the documented camelCase names
// and their snake_case variants; the camelCase field wins when a body
// carries both.
type createPostReq struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Published        bool     `json:"published"`
	CategoryIDs      []uint64 `json:"categoryIds"`
	TagIDs           []uint64 `json:"tagIds"`
	CategoryIDsSnake []uint64 `json:"category_ids"`
	TagIDsSnake      []uint64 `json:"tag_ids"`
}

// updatePostReq uses pointers so an absent field can be told apart from
// an explicitly cleared one: a missing categoryIds leaves the set alone,
// while [] clears it.
type updatePostReq struct {
	Title            *string   `json:"title"`
	Content          *string   `json:"content"`
	Published        *bool     `json:"published"`
	CategoryIDs      *[]uint64 `json:"categoryIds"`
	TagIDs           *[]uint64 `json:"tagIds"`
	CategoryIDsSnake *[]uint64 `json:"category_ids"`
	TagIDsSnake      *[]uint64 `json:"tag_ids"`
}

func coalesceIDs(primary, alias *[]uint64) *[]uint64 {
	if primary != nil {
		return primary
	}
	return alias
}

// List handles GET /api/posts with published/author_id/search filters and
// pagination.
func (h *PostHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	f := repository.PostFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Page:   page,
		Limit:  limit,
	}
	if s := c.QueryParam("published"); s != "" {
		v := s == "true"
		f.Published = &v
	}
	if s := c.QueryParam("author_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid author_id")
		}
		f.AuthorID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, total, err := h.Posts.List(ctx, f)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if posts == nil {
		posts = []repository.PostDetail{}
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return ok(c, http.StatusOK, echo.Map{
		"posts":        posts,
		"total":        total,
		"total_pages":  (total + int64(f.Limit) - 1) / int64(f.Limit),
		"current_page": f.Page,
	})
}

// Get handles GET /api/posts/:id.
func (h *PostHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	det, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "post not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return ok(c, http.StatusOK, echo.Map{"post": det})
}

// Create handles POST /api/posts. The post and its initial relation rows
// are inserted in one transaction; a reference to an unknown category or
// tag fails the whole call.
func (h *PostHandler) Create(c echo.Context) error {
	caller, okc := principal(c)
	if !okc {
		return fail(c, http.StatusUnauthorized, "not authorized")
	}

	var req createPostReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fail(c, http.StatusBadRequest, "title is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	catIDs := req.CategoryIDs
	if catIDs == nil {
		catIDs = req.CategoryIDsSnake
	}
	tagIDs := req.TagIDs
	if tagIDs == nil {
		tagIDs = req.TagIDsSnake
	}

	p := model.Post{
		AuthorID:  caller.ID,
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	}
	if err := h.Posts.Create(ctx, &p, catIDs, tagIDs); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusBadRequest, "unknown category or tag id")
		}
		return fail(c, http.StatusInternalServerError, "create post failed")
	}

	det, err := h.Posts.GetByID(ctx, p.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "create post failed")
	}
	return ok(c, http.StatusCreated, echo.Map{"post": det})
}

// Update handles PUT /api/posts/:id. Scalar fields present in the body
// are patched and present relation sets are replaced wholesale, all in
// one transaction; on any failure nothing changes. Only the author may
// update, regardless of role.
func (h *PostHandler) Update(c echo.Context) error {
	caller, okc := principal(c)
	if !okc {
		return fail(c, http.StatusUnauthorized, "not authorized")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req updatePostReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	patch := repository.PostPatch{
		Title:       req.Title,
		Content:     req.Content,
		Published:   req.Published,
		CategoryIDs: coalesceIDs(req.CategoryIDs, req.CategoryIDsSnake),
		TagIDs:      coalesceIDs(req.TagIDs, req.TagIDsSnake),
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fail(c, http.StatusBadRequest, "title cannot be empty")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.UpdateWithRelations(ctx, id, caller.ID, patch); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, http.StatusNotFound, "post not found")
		case errors.Is(err, repository.ErrForbidden):
			return fail(c, http.StatusForbidden, "not authorized to update this post")
		case errors.Is(err, repository.ErrConflict):
			return fail(c, http.StatusBadRequest, "unknown category or tag id")
		default:
			return fail(c, http.StatusInternalServerError, "update failed")
		}
	}

	det, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return ok(c, http.StatusOK, echo.Map{"post": det})
}

// Delete handles DELETE /api/posts/:id. The post and its join rows are
// removed in one transaction after the ownership check.
func (h *PostHandler) Delete(c echo.Context) error {
	caller, okc := principal(c)
	if !okc {
		return fail(c, http.StatusUnauthorized, "not authorized")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.DeleteByIDAndOwner(ctx, id, caller.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, http.StatusNotFound, "post not found")
		case errors.Is(err, repository.ErrForbidden):
			return fail(c, http.StatusForbidden, "not authorized to delete this post")
		default:
			return fail(c, http.StatusInternalServerError, "delete failed")
		}
	}
	return c.NoContent(http.StatusNoContent)
}
