package store

import (
	"context"
	"errors"

	"github.com/quillworks/quill/internal/blog/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrTagNotFound and ErrAttachmentNotFound are distinct from ErrNotFound
	// so callers can tell "post missing or not yours" apart from "the thing
	// attached to your post is missing".
	ErrTagNotFound        = errors.New("store: tag not found")
	ErrAttachmentNotFound = errors.New("store: attachment not found")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Posts() Posts
	Tags() Tags

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// CreateUser inserts a new user (id provided by app via ULID).
	// Returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// Posts is the ownership-scoped content repository. Every owner-parameter
// method resolves the post by (id, owner) inside the SQL statement itself;
// a post that exists but belongs to someone else is indistinguishable from
// one that does not exist.
type Posts interface {
	// CreatePost inserts a post owned by its OwnerUsername.
	CreatePost(ctx context.Context, p domain.Post) error

	// GetPost fetches a post by id regardless of owner (public read path),
	// with tags and attachment metadata loaded.
	GetPost(ctx context.Context, id string) (domain.Post, error)

	// GetOwnedPost fetches a post scoped by (id, owner).
	GetOwnedPost(ctx context.Context, id, owner string) (domain.Post, error)

	// UpdateOwnedPost rewrites title and content of an owned post.
	UpdateOwnedPost(ctx context.Context, id, owner, title, content string) error

	// DeleteOwnedPost removes an owned post; tag associations and
	// attachment metadata go with it.
	DeleteOwnedPost(ctx context.Context, id, owner string) error

	// ListPostsByOwner returns all posts authored by username.
	ListPostsByOwner(ctx context.Context, username string) ([]domain.Post, error)

	// ListPostsByTag returns all posts carrying the tag.
	ListPostsByTag(ctx context.Context, tagID string) ([]domain.Post, error)

	// AddTag associates a tag with an owned post. Adding an already-present
	// tag is a no-op. Returns ErrTagNotFound when the tag does not exist.
	AddTag(ctx context.Context, postID, tagID, owner string) error

	// RemoveTag detaches a tag from an owned post. Removing an absent
	// association is a no-op; the tag entity itself is untouched.
	RemoveTag(ctx context.Context, postID, tagID, owner string) error

	// AddAttachment appends attachment metadata to an owned post.
	AddAttachment(ctx context.Context, postID, owner string, a domain.Attachment) error

	// GetAttachment resolves attachment metadata by name within an owned
	// post. Returns ErrAttachmentNotFound when the post is owned but no
	// attachment carries that name.
	GetAttachment(ctx context.Context, postID, owner, name string) (domain.Attachment, error)

	// DeleteAttachment removes attachment metadata by name from an owned post.
	DeleteAttachment(ctx context.Context, postID, owner, name string) error
}

type Tags interface {
	// CreateTag inserts a new tag (id provided by app via ULID).
	CreateTag(ctx context.Context, t domain.Tag) error

	// GetTagByID fetches a tag by id.
	GetTagByID(ctx context.Context, id string) (domain.Tag, error)

	// ListTags returns all tags ordered by name.
	ListTags(ctx context.Context) ([]domain.Tag, error)
}
