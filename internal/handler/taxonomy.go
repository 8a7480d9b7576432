package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
)

// TaxonomyHandler serves category and tag management. Listing is public;
// mutations require MODERATOR or ADMIN (enforced by route middleware).
type TaxonomyHandler struct {
	Categories *repository.CategoryRepo
	Tags       *repository.TagRepo
}

func NewTaxonomyHandler(c *repository.CategoryRepo, t *repository.TagRepo) *TaxonomyHandler {
	return &TaxonomyHandler{Categories: c, Tags: t}
}

type taxonomyReq struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (req *taxonomyReq) normalize() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Name == "" || req.Slug == "" {
		return errors.New("name and slug are required")
	}
	return nil
}

// ListCategories handles GET /api/categories.
func (h *TaxonomyHandler) ListCategories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cats, err := h.Categories.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if cats == nil {
		cats = []model.Category{}
	}
	return ok(c, http.StatusOK, echo.Map{"categories": cats})
}

// CreateCategory handles POST /api/categories.
func (h *TaxonomyHandler) CreateCategory(c echo.Context) error {
	var req taxonomyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := req.normalize(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Categories.Create(ctx, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "slug already exists")
		}
		return fail(c, http.StatusInternalServerError, "create category failed")
	}
	return ok(c, http.StatusCreated, echo.Map{
		"category": model.Category{ID: id, Name: req.Name, Slug: req.Slug},
	})
}

// UpdateCategory handles PUT /api/categories/:id.
func (h *TaxonomyHandler) UpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req taxonomyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := req.normalize(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Update(ctx, id, req.Name, req.Slug); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, http.StatusNotFound, "category not found")
		case errors.Is(err, repository.ErrConflict):
			return fail(c, http.StatusConflict, "slug already exists")
		default:
			return fail(c, http.StatusInternalServerError, "update category failed")
		}
	}
	return ok(c, http.StatusOK, echo.Map{
		"category": model.Category{ID: id, Name: req.Name, Slug: req.Slug},
	})
}

// DeleteCategory handles DELETE /api/categories/:id. Posts that were in
// the category simply lose that membership; the join rows go away with
// the category in one transaction.
func (h *TaxonomyHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "category not found")
		}
		return fail(c, http.StatusInternalServerError, "delete category failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *TaxonomyHandler) ListTags(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tags, err := h.Tags.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return ok(c, http.StatusOK, echo.Map{"tags": tags})
}

// CreateTag handles POST /api/tags.
func (h *TaxonomyHandler) CreateTag(c echo.Context) error {
	var req taxonomyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := req.normalize(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Tags.Create(ctx, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "slug already exists")
		}
		return fail(c, http.StatusInternalServerError, "create tag failed")
	}
	return ok(c, http.StatusCreated, echo.Map{
		"tag": model.Tag{ID: id, Name: req.Name, Slug: req.Slug},
	})
}

// UpdateTag handles PUT /api/tags/:id.
func (h *TaxonomyHandler) UpdateTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req taxonomyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := req.normalize(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tags.Update(ctx, id, req.Name, req.Slug); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, http.StatusNotFound, "tag not found")
		case errors.Is(err, repository.ErrConflict):
			return fail(c, http.StatusConflict, "slug already exists")
		default:
			return fail(c, http.StatusInternalServerError, "update tag failed")
		}
	}
	return ok(c, http.StatusOK, echo.Map{
		"tag": model.Tag{ID: id, Name: req.Name, Slug: req.Slug},
	})
}

// DeleteTag handles DELETE /api/tags/:id.
func (h *TaxonomyHandler) DeleteTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tags.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "tag not found")
		}
		return fail(c, http.StatusInternalServerError, "delete tag failed")
	}
	return c.NoContent(http.StatusNoContent)
}
