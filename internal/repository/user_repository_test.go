package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func strp(s string) *string { return &s }

func TestCreateUserWithoutProfile(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("alice@example.com", "Alice", "hash", "USER").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	// Email is normalized to lower case before the insert.
	id, err := repo.Create(context.Background(), "  Alice@Example.COM ", "Alice", "hash", "USER", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserWithProfile(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("bob@example.com", "Bob", "hash", "USER").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (user_id, bio, avatar) VALUES (?,?,?)")).
		WithArgs(uint64(8), strp("hi"), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), "bob@example.com", "Bob", "hash", "USER", strp("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("alice@example.com", "Alice", "hash", "USER").
		WillReturnError(errors.New("Error 1062: Duplicate entry 'alice@example.com' for key 'users.email'"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "alice@example.com", "Alice", "hash", "USER", nil, nil)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserProfileFailureRollsBack(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("bob@example.com", "Bob", "hash", "USER").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (user_id, bio, avatar) VALUES (?,?,?)")).
		WithArgs(uint64(8), strp("hi"), nil).
		WillReturnError(errors.New("profiles table gone"))
	// User row and profile row commit together or not at all.
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "bob@example.com", "Bob", "hash", "USER", strp("hi"), nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithProfile(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id=? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=? WHERE id=?")).
		WithArgs("New Name", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (user_id, bio, avatar) VALUES (?,?,?)")).
		WithArgs(uint64(7), strp("new bio"), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateWithProfile(context.Background(), 7, UserPatch{
		Name: strp("New Name"),
		Bio:  strp("new bio"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithProfileNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id=? FOR UPDATE")).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.UpdateWithProfile(context.Background(), 404, UserPatch{Name: strp("x")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivate(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=0 WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=0 WHERE id=?")).
		WithArgs(uint64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Deactivate(context.Background(), 404), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordHash(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WithArgs("newhash", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePasswordHash(context.Background(), 7, "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
