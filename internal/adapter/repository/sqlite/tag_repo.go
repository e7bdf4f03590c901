package sqlite

import (
	"context"
	"database/sql"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
)

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) FindAll(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name`)
	if err != nil {
		return nil, storeErr("find tags", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Name); err != nil {
			return nil, storeErr("scan tag", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate tags", err)
	}
	return tags, nil
}

// Seed inserts names that are not yet present.
func (r *TagRepository) Seed(ctx context.Context, names ...string) error {
	for _, n := range names {
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, n); err != nil {
			return storeErr("seed tag "+n, err)
		}
	}
	return nil
}
