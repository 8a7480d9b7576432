package model

import "time"

// Post mirrors the `posts` table. AuthorID is immutable after creation;
// only the author may update or delete the post. Category and tag
// memberships live in the post_categories / post_tags join tables and are
// replaced wholesale on update.
type Post struct {
	ID        uint64    // posts.id
	AuthorID  uint64    // posts.author_id
	Title     string    // posts.title
	Content   string    // posts.content
	Published bool      // posts.published
	CreatedAt time.Time // posts.created_at
	UpdatedAt time.Time // posts.updated_at
}

// Category mirrors the `categories` table. Slug is unique. Categories and
// tags are embedded verbatim in post and taxonomy responses, so the json
// tags here define the wire shape.
type Category struct {
	ID   uint64 `json:"id"`   // categories.id
	Name string `json:"name"` // categories.name
	Slug string `json:"slug"` // categories.slug (unique)
}

// Tag mirrors the `tags` table. Slug is unique.
type Tag struct {
	ID   uint64 `json:"id"`   // tags.id
	Name string `json:"name"` // tags.name
	Slug string `json:"slug"` // tags.slug (unique)
}
