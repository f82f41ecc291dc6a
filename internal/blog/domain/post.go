package domain

import "time"

// Post is a blog entry owned by exactly one user. Every mutation is
// re-verified against the owner at the store boundary.
type Post struct {
	ID            string
	Title         string
	Content       string
	OwnerUsername string
	Tags          []Tag
	Attachments   []Attachment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Tag has an independent lifecycle; posts reference it many-to-many.
// Detaching a tag from a post never deletes the tag itself.
type Tag struct {
	ID   string
	Name string
}

// Attachment is file metadata owned by exactly one post. The bytes live in
// the object store under StorageKey; deleting metadata and deleting the
// blob are separate, non-transactional steps.
type Attachment struct {
	ID         string
	PostID     string
	Name       string
	MIMEType   string
	StorageKey string
	CreatedAt  time.Time
}
