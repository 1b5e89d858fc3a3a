package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type QuizResultRepo struct {
	pool *pgxpool.Pool
}

func NewQuizResultRepo(pool *pgxpool.Pool) *QuizResultRepo {
	return &QuizResultRepo{pool: pool}
}

func (r *QuizResultRepo) Create(ctx context.Context, q *models.QuizResult) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO quiz_results (id, workspace_id, user_id, subject_id, lecture_id,
			correct_count, total_questions, score_percent, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, q.ID, q.WorkspaceID, q.UserID, q.SubjectID, q.LectureID,
		q.CorrectCount, q.TotalQuestions, q.ScorePercent, q.Date, q.CreatedAt)
	return err
}

func (r *QuizResultRepo) ListByUser(ctx context.Context, workspaceID uuid.UUID, userID string) ([]*models.QuizResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, user_id, subject_id, lecture_id, correct_count, total_questions,
			score_percent, to_char(date, 'YYYY-MM-DD'), created_at
		FROM quiz_results
		WHERE workspace_id = $1 AND user_id = $2
		ORDER BY created_at
	`, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*models.QuizResult{}
	for rows.Next() {
		q := &models.QuizResult{}
		if err := rows.Scan(&q.ID, &q.WorkspaceID, &q.UserID, &q.SubjectID, &q.LectureID,
			&q.CorrectCount, &q.TotalQuestions, &q.ScorePercent, &q.Date, &q.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}
