package service

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/quillworks/quill/internal/blog/blob"
	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/pkg/idx"
	"github.com/quillworks/quill/pkg/imagex"
	"github.com/quillworks/quill/pkg/slogx"
)

// FileService moves attachment bytes between clients and the object
// store, with metadata tracked alongside the owning post. Ownership is
// established before any byte touches storage.
type FileService struct {
	Store store.Store
	Blobs blob.Store

	// ScopedKeys prefixes object keys with the post id. When false, the
	// raw filename is the key and same-named uploads across posts collide.
	ScopedKeys bool

	// RemoveMetadata makes Delete drop the attachment row as well as the
	// blob. When false the row stays behind after the bytes are gone.
	RemoveMetadata bool
}

// UploadInput carries one attachment upload.
type UploadInput struct {
	PostID   string
	Owner    string
	Name     string
	MIMEType string
	Data     []byte

	// Optional transforms applied before storage.
	Scale   *float64
	Quality *float64
}

// Upload transforms and stores an attachment on a post owned by in.Owner.
// Uploading under an existing name replaces both the object and its
// metadata row.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (domain.Attachment, error) {
	l := slogx.FromContext(ctx)

	if in.Name == "" || path.Base(in.Name) != in.Name {
		return domain.Attachment{}, ErrInvalidRequest
	}

	// Ownership first. A non-owner learns nothing beyond "not found".
	if _, err := s.Store.Posts().GetOwnedPost(ctx, in.PostID, in.Owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Attachment{}, ErrPostNotFound
		}
		return domain.Attachment{}, err
	}

	data, err := imagex.Transform(in.Data, in.MIMEType, imagex.Options{
		Scale:   in.Scale,
		Quality: in.Quality,
	})
	if err != nil {
		return domain.Attachment{}, err
	}

	key := s.storageKey(in.PostID, in.Name)
	if err := s.Blobs.Put(ctx, key, data); err != nil {
		return domain.Attachment{}, err
	}

	att := domain.Attachment{
		ID:         string(idx.New()),
		PostID:     in.PostID,
		Name:       in.Name,
		MIMEType:   in.MIMEType,
		StorageKey: key,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Store.Posts().AddAttachment(ctx, in.PostID, in.Owner, att); err != nil {
		// The object is already stored; take it back out so storage and
		// metadata stay consistent.
		if delErr := s.Blobs.Delete(ctx, key); delErr != nil {
			l.Error("orphaned object after metadata failure",
				slog.String("key", key),
				slog.Any("err", delErr),
			)
		}
		if errors.Is(err, store.ErrNotFound) {
			return domain.Attachment{}, ErrPostNotFound
		}
		return domain.Attachment{}, err
	}

	l.Info("attachment stored",
		slog.String("post_id", in.PostID),
		slog.String("name", in.Name),
		slog.Int("size", len(data)),
	)
	return att, nil
}

// Download returns the attachment bytes and stored MIME type for a post
// owned by owner.
func (s *FileService) Download(ctx context.Context, postID, owner, name string) ([]byte, string, error) {
	att, err := s.Store.Posts().GetAttachment(ctx, postID, owner, name)
	if err != nil {
		return nil, "", mapAttachmentErr(err)
	}

	data, err := s.Blobs.Get(ctx, att.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Metadata exists but the object is gone.
			return nil, "", ErrAttachmentNotFound
		}
		return nil, "", err
	}
	return data, att.MIMEType, nil
}

// Delete removes the stored object for an attachment on a post owned by
// owner. The metadata row is removed only when RemoveMetadata is set.
func (s *FileService) Delete(ctx context.Context, postID, owner, name string) error {
	att, err := s.Store.Posts().GetAttachment(ctx, postID, owner, name)
	if err != nil {
		return mapAttachmentErr(err)
	}

	if err := s.Blobs.Delete(ctx, att.StorageKey); err != nil {
		return err
	}

	if s.RemoveMetadata {
		if err := s.Store.Posts().DeleteAttachment(ctx, postID, owner, name); err != nil {
			return mapAttachmentErr(err)
		}
	}

	slogx.FromContext(ctx).Info("attachment deleted",
		slog.String("post_id", postID),
		slog.String("name", name),
		slog.Bool("metadata_removed", s.RemoveMetadata),
	)
	return nil
}

func (s *FileService) storageKey(postID, name string) string {
	if s.ScopedKeys {
		return postID + "/" + name
	}
	return name
}

func mapAttachmentErr(err error) error {
	switch {
	case errors.Is(err, store.ErrAttachmentNotFound):
		return ErrAttachmentNotFound
	case errors.Is(err, store.ErrNotFound):
		return ErrPostNotFound
	}
	return err
}
