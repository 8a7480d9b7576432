package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpress/blog-api/internal/middleware"
	"github.com/openpress/blog-api/internal/model"
	"github.com/openpress/blog-api/internal/repository"
)

func newPostHandler(t *testing.T) (*PostHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostHandler(repository.NewPostRepo(db)), mock
}

// doAs runs a handler with an authenticated principal already in context,
// the way the Auth middleware would leave it.
func doAs(t *testing.T, h echo.HandlerFunc, caller model.User, method, target, body, paramID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}
	if caller.ID != 0 {
		c.Set(middleware.CtxUser, caller)
		c.Set(middleware.CtxUserID, caller.ID)
		c.Set(middleware.CtxRole, caller.Role)
	}
	require.NoError(t, h(c))
	return rec
}

var alice = model.User{ID: 1, Email: "alice@example.com", Name: "Alice", Role: model.RoleUser, IsActive: true}

const lockAuthor = "SELECT author_id FROM posts WHERE id=? FOR UPDATE"

func TestUpdatePostByNonOwner(t *testing.T) {
	h, mock := newPostHandler(t)

	// Post 5 belongs to user 99; Alice is not its author. Moderator or
	// admin roles make no difference here.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(uint64(99)))
	mock.ExpectRollback()

	rec := doAs(t, h.Update, alice, http.MethodPut, "/api/posts/5",
		`{"title":"Hijacked"}`, "5")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostNotFound(t *testing.T) {
	h, mock := newPostHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}))
	mock.ExpectRollback()

	rec := doAs(t, h.Update, alice, http.MethodPut, "/api/posts/5",
		`{"title":"Whatever"}`, "5")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostEmptyTitle(t *testing.T) {
	h, _ := newPostHandler(t)
	rec := doAs(t, h.Update, alice, http.MethodPut, "/api/posts/5",
		`{"title":"   "}`, "5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePostUnauthenticated(t *testing.T) {
	h, _ := newPostHandler(t)
	rec := doAs(t, h.Update, model.User{}, http.MethodPut, "/api/posts/5",
		`{"title":"Anon"}`, "5")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPostNotFound(t *testing.T) {
	h, mock := newPostHandler(t)

	mock.ExpectQuery("SELECT p\\.id, p\\.title, p\\.content").
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := doAs(t, h.Get, model.User{}, http.MethodGet, "/api/posts/42", "", "42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostInvalidID(t *testing.T) {
	h, _ := newPostHandler(t)
	rec := doAs(t, h.Get, model.User{}, http.MethodGet, "/api/posts/abc", "", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePostMissingTitle(t *testing.T) {
	h, _ := newPostHandler(t)
	rec := doAs(t, h.Create, alice, http.MethodPost, "/api/posts",
		`{"content":"body only"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func postDetailRows(id uint64, title string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "content", "published", "created_at", "updated_at",
		"author_id", "author_name", "author_email", "bio", "avatar",
	}).AddRow(id, title, "body", true, "2026-08-30 10:00:00", "2026-08-31 10:00:00",
		alice.ID, alice.Name, alice.Email, nil, nil)
}

func TestUpdatePostCamelCaseRelationFields(t *testing.T) {
	h, mock := newPostHandler(t)

	// Body uses the documented camelCase names. Categories are replaced
	// with {2,3} and the tag set is cleared; no scalar field changes.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(alice.ID))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_categories WHERE post_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_categories (post_id, category_id) VALUES (?,?),(?,?)")).
		WithArgs(uint64(5), uint64(2), uint64(5), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_tags WHERE post_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT p\\.id, p\\.title, p\\.content").
		WithArgs(uint64(5)).
		WillReturnRows(postDetailRows(5, "Existing title"))
	mock.ExpectQuery("SELECT pc\\.post_id, c\\.id").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "id", "name", "slug"}).
			AddRow(uint64(5), uint64(2), "Go", "go").
			AddRow(uint64(5), uint64(3), "Tech", "tech"))
	mock.ExpectQuery("SELECT pt\\.post_id, t\\.id").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "id", "name", "slug"}))

	rec := doAs(t, h.Update, alice, http.MethodPut, "/api/posts/5",
		`{"categoryIds":[2,3],"tagIds":[]}`, "5")

	require.Equal(t, http.StatusOK, rec.Code)
	// Embedded categories render with lowercase keys.
	assert.Contains(t, rec.Body.String(), `"categories":[{"id":2,"name":"Go","slug":"go"},{"id":3,"name":"Tech","slug":"tech"}]`)
	assert.Contains(t, rec.Body.String(), `"tags":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostSnakeCaseRelationFields(t *testing.T) {
	h, mock := newPostHandler(t)

	// The snake_case aliases are still accepted: category_ids:[] clears
	// the set without touching tags.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(alice.ID))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_categories WHERE post_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT p\\.id, p\\.title, p\\.content").
		WithArgs(uint64(5)).
		WillReturnRows(postDetailRows(5, "Existing title"))
	mock.ExpectQuery("SELECT pc\\.post_id, c\\.id").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "id", "name", "slug"}))
	mock.ExpectQuery("SELECT pt\\.post_id, t\\.id").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "id", "name", "slug"}))

	rec := doAs(t, h.Update, alice, http.MethodPut, "/api/posts/5",
		`{"category_ids":[]}`, "5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"categories":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostByNonOwner(t *testing.T) {
	h, mock := newPostHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(uint64(99)))
	mock.ExpectRollback()

	rec := doAs(t, h.Delete, alice, http.MethodDelete, "/api/posts/5", "", "5")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostSuccess(t *testing.T) {
	h, mock := newPostHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockAuthor)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(alice.ID))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_categories WHERE post_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_tags WHERE post_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doAs(t, h.Delete, alice, http.MethodDelete, "/api/posts/5", "", "5")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
