package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/store"
)

type postsRepo struct {
	db *sql.DB
}

const postColumns = `id, title, content, owner_username, created_at, updated_at`

func (r *postsRepo) CreatePost(ctx context.Context, p domain.Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, p.OwnerUsername, p.CreatedAt, p.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *postsRepo) GetPost(ctx context.Context, id string) (domain.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return r.scanPost(ctx, row)
}

func (r *postsRepo) GetOwnedPost(ctx context.Context, id, owner string) (domain.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ? AND owner_username = ?`, id, owner)
	return r.scanPost(ctx, row)
}

func (r *postsRepo) UpdateOwnedPost(ctx context.Context, id, owner, title, content string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND owner_username = ?`,
		title, content, time.Now().UTC(), id, owner,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *postsRepo) DeleteOwnedPost(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND owner_username = ?`, id, owner)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *postsRepo) ListPostsByOwner(ctx context.Context, username string) ([]domain.Post, error) {
	return r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE owner_username = ? ORDER BY created_at DESC`,
		username)
}

func (r *postsRepo) ListPostsByTag(ctx context.Context, tagID string) ([]domain.Post, error) {
	return r.queryPosts(ctx, `
		SELECT p.id, p.title, p.content, p.owner_username, p.created_at, p.updated_at
		FROM posts p
		JOIN post_tags pt ON pt.post_id = p.id
		WHERE pt.tag_id = ?
		ORDER BY p.created_at DESC`,
		tagID)
}

func (r *postsRepo) AddTag(ctx context.Context, postID, tagID, owner string) error {
	if err := r.tagExists(ctx, tagID); err != nil {
		return err
	}
	if err := r.ownedPostExists(ctx, postID, owner); err != nil {
		return err
	}

	// Re-adding an existing association is a no-op; each association is its
	// own row, so concurrent adds of different tags never clobber each other.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tagID)
	return err
}

func (r *postsRepo) RemoveTag(ctx context.Context, postID, tagID, owner string) error {
	if err := r.tagExists(ctx, tagID); err != nil {
		return err
	}
	if err := r.ownedPostExists(ctx, postID, owner); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM post_tags WHERE post_id = ? AND tag_id = ?`, postID, tagID)
	return err
}

func (r *postsRepo) AddAttachment(ctx context.Context, postID, owner string, a domain.Attachment) error {
	if err := r.ownedPostExists(ctx, postID, owner); err != nil {
		return err
	}

	// Re-uploading the same filename replaces the metadata in step with the
	// object store overwrite.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments (id, post_id, name, mime_type, storage_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id, name) DO UPDATE
		SET mime_type = excluded.mime_type, storage_key = excluded.storage_key`,
		a.ID, postID, a.Name, a.MIMEType, a.StorageKey, a.CreatedAt,
	)
	return err
}

func (r *postsRepo) GetAttachment(ctx context.Context, postID, owner, name string) (domain.Attachment, error) {
	if err := r.ownedPostExists(ctx, postID, owner); err != nil {
		return domain.Attachment{}, err
	}

	var a domain.Attachment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, post_id, name, mime_type, storage_key, created_at
		FROM attachments WHERE post_id = ? AND name = ?`, postID, name,
	).Scan(&a.ID, &a.PostID, &a.Name, &a.MIMEType, &a.StorageKey, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Attachment{}, store.ErrAttachmentNotFound
		}
		return domain.Attachment{}, err
	}
	return a, nil
}

func (r *postsRepo) DeleteAttachment(ctx context.Context, postID, owner, name string) error {
	if err := r.ownedPostExists(ctx, postID, owner); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM attachments WHERE post_id = ? AND name = ?`, postID, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAttachmentNotFound
	}
	return nil
}

// ownedPostExists resolves the post scoped by (id, owner) in one lookup.
func (r *postsRepo) ownedPostExists(ctx context.Context, postID, owner string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM posts WHERE id = ? AND owner_username = ?`, postID, owner,
	).Scan(&one)
	return mapNotFound(err)
}

func (r *postsRepo) tagExists(ctx context.Context, tagID string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrTagNotFound
	}
	return err
}

func (r *postsRepo) scanPost(ctx context.Context, row *sql.Row) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.OwnerUsername, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Post{}, mapNotFound(err)
	}
	if err := r.loadAssociations(ctx, &p); err != nil {
		return domain.Post{}, err
	}
	return p, nil
}

func (r *postsRepo) queryPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.OwnerUsername, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		if err := r.loadAssociations(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *postsRepo) loadAssociations(ctx context.Context, p *domain.Post) error {
	tagRows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ?
		ORDER BY t.name`, p.ID)
	if err != nil {
		return err
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var t domain.Tag
		if err := tagRows.Scan(&t.ID, &t.Name); err != nil {
			return err
		}
		p.Tags = append(p.Tags, t)
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	attRows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, name, mime_type, storage_key, created_at
		FROM attachments WHERE post_id = ? ORDER BY name`, p.ID)
	if err != nil {
		return err
	}
	defer attRows.Close()

	for attRows.Next() {
		var a domain.Attachment
		if err := attRows.Scan(&a.ID, &a.PostID, &a.Name, &a.MIMEType, &a.StorageKey, &a.CreatedAt); err != nil {
			return err
		}
		p.Attachments = append(p.Attachments, a)
	}
	return attRows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
