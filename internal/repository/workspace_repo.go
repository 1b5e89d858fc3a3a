package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepo(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

// Create inserts the workspace and its initial subjects atomically.
func (r *WorkspaceRepo) Create(ctx context.Context, w *models.Workspace, subjectNames []string) ([]*models.Subject, error) {
	w.ID = uuid.New()
	w.CreatedAt = time.Now().UTC()
	w.Role = "owner"

	subjects := make([]*models.Subject, 0, len(subjectNames))
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workspaces (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			w.ID, w.OwnerID, w.Name, w.CreatedAt,
		); err != nil {
			return err
		}

		for _, name := range subjectNames {
			s := &models.Subject{ID: uuid.New(), WorkspaceID: w.ID, Name: name, CreatedAt: w.CreatedAt}
			if _, err := tx.Exec(ctx,
				`INSERT INTO subjects (id, workspace_id, name, created_at) VALUES ($1, $2, $3, $4)`,
				s.ID, s.WorkspaceID, s.Name, s.CreatedAt,
			); err != nil {
				return err
			}
			subjects = append(subjects, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	w := &models.Workspace{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.OwnerID, &w.Name, &w.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

// ListForUser returns owned workspaces followed by joined ones.
func (r *WorkspaceRepo) ListForUser(ctx context.Context, userID string) ([]*models.Workspace, error) {
	query := `
		SELECT id, owner_id, name, created_at, 'owner' AS role
		FROM workspaces WHERE owner_id = $1
		UNION ALL
		SELECT w.id, w.owner_id, w.name, w.created_at, 'member' AS role
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1 AND w.owner_id <> $1
		ORDER BY role DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workspaces := []*models.Workspace{}
	for rows.Next() {
		w := &models.Workspace{}
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Name, &w.CreatedAt, &w.Role); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// AddMember is idempotent.
func (r *WorkspaceRepo) AddMember(ctx context.Context, workspaceID uuid.UUID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (workspace_id, user_id) DO NOTHING`,
		workspaceID, userID,
	)
	return err
}

func (r *WorkspaceRepo) IsMember(ctx context.Context, workspaceID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2)`,
		workspaceID, userID,
	).Scan(&exists)
	return exists, err
}
