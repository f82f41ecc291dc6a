package sqlite

import (
	"context"
	"database/sql"

	"github.com/quillworks/quill/internal/blog/domain"
)

type tagsRepo struct {
	db *sql.DB
}

func (r *tagsRepo) CreateTag(ctx context.Context, t domain.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name) VALUES (?, ?)`, t.ID, t.Name)
	return mapConstraint(err)
}

func (r *tagsRepo) GetTagByID(ctx context.Context, id string) (domain.Tag, error) {
	var t domain.Tag
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name)
	if err != nil {
		return domain.Tag{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tagsRepo) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
