package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openpress/blog-api/internal/model"
)

// PostRepo provides CRUD for posts and their category/tag memberships.
// Membership rows live in post_categories and post_tags and are only ever
// written together with their post inside one transaction, so the join
// tables always hold a consistent snapshot of the post's relation sets.
type PostRepo struct{ db *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

// PostAuthor is the sanitized author view embedded in post responses.
type PostAuthor struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Bio    *string `json:"bio,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// PostDetail is a fully hydrated post: scalar fields plus author and the
// current category/tag sets.
type PostDetail struct {
	ID         uint64           `json:"id"`
	Title      string           `json:"title"`
	Content    string           `json:"content"`
	Published  bool             `json:"published"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
	Author     PostAuthor       `json:"author"`
	Categories []model.Category `json:"categories"`
	Tags       []model.Tag      `json:"tags"`
}

// PostPatch carries the fields an update may touch. Nil pointer means
// "leave unchanged". For the relation sets, a nil pointer leaves the set
// alone while a pointer to an empty slice clears it.
type PostPatch struct {
	Title       *string
	Content     *string
	Published   *bool
	CategoryIDs *[]uint64
	TagIDs      *[]uint64
}

// Create inserts a post and its initial category/tag join rows in one
// transaction. A reference to a missing category or tag fails the whole
// insert and surfaces as ErrConflict.
func (r *PostRepo) Create(ctx context.Context, p *model.Post, categoryIDs, tagIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO posts (author_id, title, content, published) VALUES (?,?,?,?)",
		p.AuthorID, p.Title, p.Content, p.Published)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	if err := insertJoinRows(ctx, tx, "post_categories", "category_id", p.ID, categoryIDs); err != nil {
		return mapJoinErr(err)
	}
	if err := insertJoinRows(ctx, tx, "post_tags", "tag_id", p.ID, tagIDs); err != nil {
		return mapJoinErr(err)
	}

	return tx.Commit()
}

// insertJoinRows bulk-inserts (post_id, <relCol>) rows in one statement.
// An empty id set is a no-op.
func insertJoinRows(ctx context.Context, tx *sql.Tx, table, relCol string, postID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (post_id, " + relCol + ") VALUES ")
	args := make([]interface{}, 0, len(ids)*2)
	for i, rid := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?)")
		args = append(args, postID, rid)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// mapJoinErr converts foreign-key (1452) and duplicate (1062) violations
// on join inserts into ErrConflict so handlers can report a stable 4xx
// instead of a driver error.
func mapJoinErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "1452") || strings.Contains(msg, "1062") {
		return ErrConflict
	}
	return err
}

// UpdateWithRelations applies a partial update to a post and replaces its
// relation sets atomically. The author row is locked and checked inside
// the transaction: ErrNotFound when the post is missing, ErrForbidden
// when callerID is not the author. When a relation set is present in the
// patch, every existing join row for that relation is deleted and exactly
// the new set inserted; if anything fails, the transaction rolls back and
// no partial join state is observable.
func (r *PostRepo) UpdateWithRelations(ctx context.Context, id, callerID uint64, patch PostPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var authorID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id=? FOR UPDATE", id).Scan(&authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if authorID != callerID {
		return ErrForbidden
	}

	set := []string{}
	args := []interface{}{}
	if patch.Title != nil {
		set = append(set, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		set = append(set, "content=?")
		args = append(args, *patch.Content)
	}
	if patch.Published != nil {
		set = append(set, "published=?")
		args = append(args, *patch.Published)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			"UPDATE posts SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return err
		}
	}

	if patch.CategoryIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM post_categories WHERE post_id=?", id); err != nil {
			return err
		}
		if err := insertJoinRows(ctx, tx, "post_categories", "category_id", id, *patch.CategoryIDs); err != nil {
			return mapJoinErr(err)
		}
	}
	if patch.TagIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM post_tags WHERE post_id=?", id); err != nil {
			return err
		}
		if err := insertJoinRows(ctx, tx, "post_tags", "tag_id", id, *patch.TagIDs); err != nil {
			return mapJoinErr(err)
		}
	}

	return tx.Commit()
}

// DeleteByIDAndOwner removes a post and its join rows in one transaction
// after the same ownership check as UpdateWithRelations.
func (r *PostRepo) DeleteByIDAndOwner(ctx context.Context, id, callerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var authorID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id=? FOR UPDATE", id).Scan(&authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if authorID != callerID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE post_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID loads one fully hydrated post. Returns ErrNotFound when no such
// post exists.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (*PostDetail, error) {
	const q = `SELECT p.id, p.title, p.content, p.published, p.created_at, p.updated_at,
	                  u.id, u.name, u.email, pr.bio, pr.avatar
	           FROM posts p
	           JOIN users u ON u.id = p.author_id
	           LEFT JOIN profiles pr ON pr.user_id = u.id
	           WHERE p.id = ?`
	var det PostDetail
	var created, updated sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&det.ID, &det.Title, &det.Content, &det.Published, &created, &updated,
		&det.Author.ID, &det.Author.Name, &det.Author.Email, &det.Author.Bio, &det.Author.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	det.CreatedAt = created.String
	det.UpdatedAt = updated.String

	rels, err := r.relationsFor(ctx, []uint64{det.ID})
	if err != nil {
		return nil, err
	}
	det.Categories = rels.categories[det.ID]
	det.Tags = rels.tags[det.ID]
	if det.Categories == nil {
		det.Categories = []model.Category{}
	}
	if det.Tags == nil {
		det.Tags = []model.Tag{}
	}
	return &det, nil
}

// PostFilter narrows the List query. Nil / zero values mean "no filter".
type PostFilter struct {
	Published *bool
	AuthorID  uint64
	Search    string // matches title or content
	Page      int
	Limit     int
}

// List returns hydrated posts, newest first, plus the total matching count.
func (r *PostRepo) List(ctx context.Context, f PostFilter) ([]PostDetail, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	if f.Published != nil {
		where += " AND p.published = ?"
		args = append(args, *f.Published)
	}
	if f.AuthorID != 0 {
		where += " AND p.author_id = ?"
		args = append(args, f.AuthorID)
	}
	if f.Search != "" {
		where += " AND (p.title LIKE ? OR p.content LIKE ?)"
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts p "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT p.id, p.title, p.content, p.published, p.created_at, p.updated_at,
	             u.id, u.name, u.email
	      FROM posts p
	      JOIN users u ON u.id = p.author_id ` + where + `
	      ORDER BY p.created_at DESC
	      LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PostDetail
	var ids []uint64
	for rows.Next() {
		var det PostDetail
		var created, updated sql.NullString
		if err := rows.Scan(&det.ID, &det.Title, &det.Content, &det.Published, &created, &updated,
			&det.Author.ID, &det.Author.Name, &det.Author.Email); err != nil {
			return nil, 0, err
		}
		det.CreatedAt = created.String
		det.UpdatedAt = updated.String
		det.Categories = []model.Category{}
		det.Tags = []model.Tag{}
		out = append(out, det)
		ids = append(ids, det.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		rels, err := r.relationsFor(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			if cs := rels.categories[out[i].ID]; cs != nil {
				out[i].Categories = cs
			}
			if ts := rels.tags[out[i].ID]; ts != nil {
				out[i].Tags = ts
			}
		}
	}
	return out, total, nil
}

// ListByAuthor returns the bare posts of one author, newest first. Used by
// the user detail endpoint.
func (r *PostRepo) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, title, content, published, created_at, updated_at
		 FROM posts WHERE author_id=? ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// postRelations groups the category and tag sets for a batch of posts.
type postRelations struct {
	categories map[uint64][]model.Category
	tags       map[uint64][]model.Tag
}

// relationsFor loads category and tag memberships for the given post ids
// in two batched queries instead of one pair per post.
func (r *PostRepo) relationsFor(ctx context.Context, postIDs []uint64) (postRelations, error) {
	rels := postRelations{
		categories: make(map[uint64][]model.Category),
		tags:       make(map[uint64][]model.Tag),
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(postIDs)), ",")
	args := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	catQ := `SELECT pc.post_id, c.id, c.name, c.slug
	         FROM post_categories pc
	         JOIN categories c ON c.id = pc.category_id
	         WHERE pc.post_id IN (` + ph + `) ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, catQ, args...)
	if err != nil {
		return rels, err
	}
	for rows.Next() {
		var pid uint64
		var c model.Category
		if err := rows.Scan(&pid, &c.ID, &c.Name, &c.Slug); err != nil {
			rows.Close()
			return rels, err
		}
		rels.categories[pid] = append(rels.categories[pid], c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return rels, err
	}
	rows.Close()

	tagQ := `SELECT pt.post_id, t.id, t.name, t.slug
	         FROM post_tags pt
	         JOIN tags t ON t.id = pt.tag_id
	         WHERE pt.post_id IN (` + ph + `) ORDER BY t.name`
	rows, err = r.db.QueryContext(ctx, tagQ, args...)
	if err != nil {
		return rels, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uint64
		var t model.Tag
		if err := rows.Scan(&pid, &t.ID, &t.Name, &t.Slug); err != nil {
			return rels, err
		}
		rels.tags[pid] = append(rels.tags[pid], t)
	}
	return rels, rows.Err()
}
