package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openpress/blog-api/internal/model"
)

// UserRepo provides persistence for users and their optional profiles.
// All writes that touch both tables run inside a single transaction so a
// user row is never observable without its profile row (and vice versa).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// userColumns is the standard select list scanned into model.User.
const userColumns = "id, email, name, password_hash, role, is_active, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and, when bio or avatar are present, its profile
// row in the same transaction. The password hash is computed by the
// caller; this layer never sees plaintext secrets. Returns ErrEmailExists
// when the unique email index rejects the insert.
func (r *UserRepo) Create(ctx context.Context, email, name, passwordHash, role string, bio, avatar *string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)",
		email, name, passwordHash, role)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if bio != nil || avatar != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (user_id, bio, avatar) VALUES (?,?,?)",
			uint64(id), bio, avatar); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email. Returns sql.ErrNoRows
// when no account matches; callers decide whether that is a 401 or 404.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetProfile returns the profile row for a user, or nil when the user has
// no profile yet.
func (r *UserRepo) GetProfile(ctx context.Context, userID uint64) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, bio, avatar FROM profiles WHERE user_id=? LIMIT 1",
		userID).Scan(&p.UserID, &p.Bio, &p.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UserListItem is one row of the public user listing: the account joined
// with its optional profile and the number of posts it authored.
type UserListItem struct {
	model.User
	Bio       *string
	Avatar    *string
	PostCount uint64
}

// UserFilter narrows the List query. Zero values mean "no filter".
type UserFilter struct {
	Search string // matches name or email, case-insensitive
	Role   string // exact role name
	Page   int
	Limit  int
}

// List returns active users ordered by newest first, plus the total count
// for pagination. Inactive accounts never appear in listings.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]UserListItem, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	where := "WHERE u.is_active = 1"
	args := []interface{}{}
	if f.Search != "" {
		where += " AND (u.name LIKE ? OR u.email LIKE ?)"
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.Role != "" {
		where += " AND u.role = ?"
		args = append(args, f.Role)
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT u.id, u.email, u.name, u.password_hash, u.role, u.is_active, u.created_at, u.updated_at,
	             p.bio, p.avatar,
	             (SELECT COUNT(*) FROM posts WHERE posts.author_id = u.id) AS post_count
	      FROM users u
	      LEFT JOIN profiles p ON p.user_id = u.id ` + where + `
	      ORDER BY u.created_at DESC
	      LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []UserListItem
	for rows.Next() {
		var it UserListItem
		if err := rows.Scan(&it.ID, &it.Email, &it.Name, &it.PasswordHash, &it.Role, &it.IsActive,
			&it.CreatedAt, &it.UpdatedAt, &it.Bio, &it.Avatar, &it.PostCount); err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

// UserPatch carries the fields a user update may touch. Nil means "leave
// unchanged"; pointer presence distinguishes absent from explicitly
// cleared, so an empty string clears a field while nil skips it.
type UserPatch struct {
	Name   *string
	Role   *string
	Bio    *string
	Avatar *string
}

// UpdateWithProfile applies a partial update to the users row and upserts
// the profile row in one transaction. Either both writes commit or
// neither does. Returns ErrNotFound when the user does not exist.
func (r *UserRepo) UpdateWithProfile(ctx context.Context, id uint64, patch UserPatch) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the row so a concurrent update serializes behind us.
	var exists uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	set := []string{}
	args := []interface{}{}
	if patch.Name != nil {
		set = append(set, "name=?")
		args = append(args, *patch.Name)
	}
	if patch.Role != nil {
		set = append(set, "role=?")
		args = append(args, *patch.Role)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return err
		}
	}

	if patch.Bio != nil || patch.Avatar != nil {
		// Upsert keyed on the unique user_id; COALESCE keeps the stored
		// value for whichever field is absent from the patch.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, bio, avatar) VALUES (?,?,?)
			 ON DUPLICATE KEY UPDATE
			   bio = COALESCE(VALUES(bio), bio),
			   avatar = COALESCE(VALUES(avatar), avatar)`,
			id, patch.Bio, patch.Avatar); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdatePasswordHash overwrites the stored credential. Used by password
// reset; the hash is produced by the caller.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a user by clearing is_active. The row is kept so
// ownership references stay valid; every auth checkpoint rejects inactive
// accounts afterwards.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
