package service

import (
	"context"
	"errors"
	"strings"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/pkg/idx"
)

// TagService manages the tag catalogue and tag/post associations. Tags
// live independently of posts; detaching never deletes the tag.
type TagService struct {
	Store store.Store
}

// CreateTag adds a new tag to the catalogue.
func (s *TagService) CreateTag(ctx context.Context, name string) (domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Tag{}, ErrInvalidRequest
	}

	tag := domain.Tag{ID: string(idx.New()), Name: name}
	if err := s.Store.Tags().CreateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tag{}, ErrTagNameTaken
		}
		return domain.Tag{}, err
	}
	return tag, nil
}

// ListTags returns the full catalogue ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return s.Store.Tags().ListTags(ctx)
}

// AttachTag links a tag to a post owned by owner. Attaching a tag that is
// already present is a no-op.
func (s *TagService) AttachTag(ctx context.Context, postID, tagID, owner string) error {
	return mapTagErr(s.Store.Posts().AddTag(ctx, postID, tagID, owner))
}

// DetachTag unlinks a tag from a post owned by owner. The tag entity
// itself survives.
func (s *TagService) DetachTag(ctx context.Context, postID, tagID, owner string) error {
	return mapTagErr(s.Store.Posts().RemoveTag(ctx, postID, tagID, owner))
}

func mapTagErr(err error) error {
	switch {
	case errors.Is(err, store.ErrTagNotFound):
		return ErrTagNotFound
	case errors.Is(err, store.ErrNotFound):
		return ErrPostNotFound
	}
	return err
}
