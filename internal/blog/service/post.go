package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/pkg/idx"
	"github.com/quillworks/quill/pkg/slogx"
)

// SummaryLength is how many content characters a post summary keeps.
const SummaryLength = 100

// PostService owns the post lifecycle. Reads by id are public; every
// mutation is scoped to the authenticated owner at the store layer.
type PostService struct {
	Store store.Store
}

// CreatePost stores a new post owned by owner and returns it.
func (s *PostService) CreatePost(ctx context.Context, owner, title, content string) (domain.Post, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Post{}, ErrInvalidRequest
	}

	now := time.Now().UTC()
	post := domain.Post{
		ID:            string(idx.New()),
		Title:         title,
		Content:       content,
		OwnerUsername: owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.Posts().CreatePost(ctx, post); err != nil {
		return domain.Post{}, err
	}

	slogx.FromContext(ctx).Info("post created",
		slog.String("post_id", post.ID),
		slog.String("owner", owner),
	)
	return post, nil
}

// GetPost fetches any post by id, with tags and attachment metadata.
func (s *PostService) GetPost(ctx context.Context, id string) (domain.Post, error) {
	post, err := s.Store.Posts().GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrPostNotFound
		}
		return domain.Post{}, err
	}
	return post, nil
}

// UpdatePost rewrites title and content of a post owned by owner and
// returns the updated post. A post owned by someone else reports
// ErrPostNotFound, same as a missing one.
func (s *PostService) UpdatePost(ctx context.Context, id, owner, title, content string) (domain.Post, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Post{}, ErrInvalidRequest
	}

	err := s.Store.Posts().UpdateOwnedPost(ctx, id, owner, title, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrPostNotFound
		}
		return domain.Post{}, err
	}
	return s.Store.Posts().GetOwnedPost(ctx, id, owner)
}

// DeletePost removes a post owned by owner. Associated tag links and
// attachment metadata are removed with it; stored blobs are not touched.
func (s *PostService) DeletePost(ctx context.Context, id, owner string) error {
	err := s.Store.Posts().DeleteOwnedPost(ctx, id, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("post deleted",
		slog.String("post_id", id),
		slog.String("owner", owner),
	)
	return nil
}

// ListByAuthor returns all posts written by username. When summarize is
// set, each post's content is truncated to SummaryLength characters.
func (s *PostService) ListByAuthor(ctx context.Context, username string, summarize bool) ([]domain.Post, error) {
	posts, err := s.Store.Posts().ListPostsByOwner(ctx, username)
	if err != nil {
		return nil, err
	}
	if summarize {
		for i := range posts {
			posts[i].Content = Summarize(posts[i].Content)
		}
	}
	return posts, nil
}

// ListByTag returns all posts carrying the given tag.
func (s *PostService) ListByTag(ctx context.Context, tagID string) ([]domain.Post, error) {
	if _, err := s.Store.Tags().GetTagByID(ctx, tagID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return s.Store.Posts().ListPostsByTag(ctx, tagID)
}

// Summarize truncates content to SummaryLength characters. Shorter
// content passes through unchanged.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= SummaryLength {
		return content
	}
	return string(runes[:SummaryLength])
}
