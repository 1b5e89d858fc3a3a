package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

// Create writes a completed session. The ID is assigned by the caller when
// present so a retried save after an ambiguous failure cannot duplicate it.
func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_sessions (id, workspace_id, user_id, subject_id, lecture_id, duration_minutes, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, s.ID, s.WorkspaceID, s.UserID, s.SubjectID, s.LectureID, s.DurationMinutes, s.Date, s.CreatedAt)
	return err
}

func (r *StudySessionRepo) ListByUser(ctx context.Context, workspaceID uuid.UUID, userID string) ([]*models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, user_id, subject_id, lecture_id, duration_minutes, to_char(date, 'YYYY-MM-DD'), created_at
		FROM study_sessions
		WHERE workspace_id = $1 AND user_id = $2
		ORDER BY date
	`, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*models.StudySession{}
	for rows.Next() {
		s := &models.StudySession{}
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.UserID, &s.SubjectID, &s.LectureID,
			&s.DurationMinutes, &s.Date, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
