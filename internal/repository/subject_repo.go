package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type SubjectRepo struct {
	pool *pgxpool.Pool
}

func NewSubjectRepo(pool *pgxpool.Pool) *SubjectRepo {
	return &SubjectRepo{pool: pool}
}

func (r *SubjectRepo) Create(ctx context.Context, s *models.Subject) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subjects (id, workspace_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.WorkspaceID, s.Name, s.CreatedAt,
	)
	return err
}

func (r *SubjectRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Subject, error) {
	s := &models.Subject{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, created_at FROM subjects WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (r *SubjectRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, created_at FROM subjects WHERE workspace_id = $1 ORDER BY created_at, name`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := []*models.Subject{}
	for rows.Next() {
		s := &models.Subject{}
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepo) Rename(ctx context.Context, workspaceID, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subjects SET name = $1 WHERE id = $2 AND workspace_id = $3`,
		name, id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubjectRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
