package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type CoreSubjectRepo struct {
	pool *pgxpool.Pool
}

func NewCoreSubjectRepo(pool *pgxpool.Pool) *CoreSubjectRepo {
	return &CoreSubjectRepo{pool: pool}
}

func (r *CoreSubjectRepo) List(ctx context.Context) ([]*models.CoreSubject, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM core_subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := []*models.CoreSubject{}
	for rows.Next() {
		s := &models.CoreSubject{}
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// Upsert writes the subject under its slug. Re-creating an existing slug
// overwrites its display name.
func (r *CoreSubjectRepo) Upsert(ctx context.Context, s *models.CoreSubject) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO core_subjects (id, name, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		 RETURNING created_at`,
		s.ID, s.Name, time.Now().UTC(),
	).Scan(&s.CreatedAt)
}

func (r *CoreSubjectRepo) Rename(ctx context.Context, id, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE core_subjects SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CoreSubjectRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM core_subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
