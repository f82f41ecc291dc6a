package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/pkg/imagex"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func uploadFixture(t *testing.T) (*fixture, domain.Post) {
	t.Helper()

	f := newFixture(t)
	f.register(t, "alice")
	f.register(t, "bob")
	post, err := f.posts.CreatePost(context.Background(), "alice", "gallery", "pics")
	require.NoError(t, err)
	return f, post
}

func TestFileService_UploadScalesImage(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()

	scale := 0.5
	att, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "cat.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 100, 100),
		Scale:    &scale,
	})
	require.NoError(t, err)
	assert.Equal(t, post.ID+"/cat.jpg", att.StorageKey)

	stored, err := f.blobs.Get(ctx, att.StorageKey)
	require.NoError(t, err)
	w, h := decodeDims(t, stored)
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)
}

func TestFileService_UploadPassthrough(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()

	payload := makeJPEG(t, 10, 10)
	att, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "raw.jpg",
		MIMEType: "image/jpeg",
		Data:     payload,
	})
	require.NoError(t, err)

	stored, err := f.blobs.Get(ctx, att.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestFileService_UploadOwnershipFirst(t *testing.T) {
	f, post := uploadFixture(t)

	_, err := f.files.Upload(context.Background(), UploadInput{
		PostID:   post.ID,
		Owner:    "bob",
		Name:     "sneaky.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
	})
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, 0, f.blobs.Len())
}

func TestFileService_UploadInvalidParams(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()

	bad := -1.0
	_, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "x.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
		Scale:    &bad,
	})
	assert.ErrorIs(t, err, imagex.ErrInvalidParameter)
	assert.Equal(t, 0, f.blobs.Len())

	tooBig := 1.5
	_, err = f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "x.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
		Quality:  &tooBig,
	})
	assert.ErrorIs(t, err, imagex.ErrInvalidParameter)
}

func TestFileService_UploadRejectsPathyNames(t *testing.T) {
	f, post := uploadFixture(t)

	_, err := f.files.Upload(context.Background(), UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "../escape.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFileService_DownloadRoundTrip(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()

	payload := makeJPEG(t, 20, 20)
	_, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "cat.jpg",
		MIMEType: "image/jpeg",
		Data:     payload,
	})
	require.NoError(t, err)

	data, mime, err := f.files.Download(ctx, post.ID, "alice", "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/jpeg", mime)

	// The owner boundary hides the post itself.
	_, _, err = f.files.Download(ctx, post.ID, "bob", "cat.jpg")
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, _, err = f.files.Download(ctx, post.ID, "alice", "dog.jpg")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestFileService_DeleteKeepsMetadataByDefault(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()

	_, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "cat.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
	})
	require.NoError(t, err)

	require.NoError(t, f.files.Delete(ctx, post.ID, "alice", "cat.jpg"))
	assert.Equal(t, 0, f.blobs.Len())

	// The row is still there, so a download finds metadata but no bytes.
	_, _, err = f.files.Download(ctx, post.ID, "alice", "cat.jpg")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 1)
}

func TestFileService_DeleteRemovesMetadataWhenConfigured(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()
	f.files.RemoveMetadata = true

	_, err := f.files.Upload(ctx, UploadInput{
		PostID:   post.ID,
		Owner:    "alice",
		Name:     "cat.jpg",
		MIMEType: "image/jpeg",
		Data:     makeJPEG(t, 10, 10),
	})
	require.NoError(t, err)

	require.NoError(t, f.files.Delete(ctx, post.ID, "alice", "cat.jpg"))

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)
}

func TestFileService_UnscopedKeysCollide(t *testing.T) {
	f, post := uploadFixture(t)
	ctx := context.Background()
	f.files.ScopedKeys = false

	other, err := f.posts.CreatePost(ctx, "alice", "second", "more pics")
	require.NoError(t, err)

	first := makeJPEG(t, 10, 10)
	second := makeJPEG(t, 30, 30)

	_, err = f.files.Upload(ctx, UploadInput{
		PostID: post.ID, Owner: "alice", Name: "cat.jpg",
		MIMEType: "image/jpeg", Data: first,
	})
	require.NoError(t, err)
	_, err = f.files.Upload(ctx, UploadInput{
		PostID: other.ID, Owner: "alice", Name: "cat.jpg",
		MIMEType: "image/jpeg", Data: second,
	})
	require.NoError(t, err)

	// Both rows point at the same object, which now holds the later bytes.
	assert.Equal(t, 1, f.blobs.Len())
	data, _, err := f.files.Download(ctx, post.ID, "alice", "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, second, data)
}
