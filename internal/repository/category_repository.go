package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openpress/blog-api/internal/model"
)

// CategoryRepo provides CRUD for categories. Slugs are unique; violating
// the index surfaces as ErrConflict. Deleting a category removes the join
// rows that reference it in the same transaction so no post is left with
// a dangling membership.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a category and returns its id.
func (r *CategoryRepo) Create(ctx context.Context, name, slug string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, slug) VALUES (?,?)", name, slug)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update renames a category. Returns ErrNotFound when the id does not
// exist and ErrConflict when the new slug is taken.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name, slug string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name=?, slug=? WHERE id=?", name, slug, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such row" from "row unchanged".
		var exists uint64
		if err := r.db.QueryRowContext(ctx,
			"SELECT id FROM categories WHERE id=?", id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a category and its post memberships atomically.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE category_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
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
	return tx.Commit()
}
