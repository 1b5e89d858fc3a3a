package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type LectureRepo struct {
	pool *pgxpool.Pool
}

func NewLectureRepo(pool *pgxpool.Pool) *LectureRepo {
	return &LectureRepo{pool: pool}
}

func (r *LectureRepo) Create(ctx context.Context, l *models.Lecture) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now().UTC()

	quizBytes, err := json.Marshal(l.Quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO lectures (id, workspace_id, subject_id, title, intro_en, intro_ar, quiz, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.WorkspaceID, l.SubjectID, l.Title, l.Intro.EN, l.Intro.AR, quizBytes, l.CreatedAt,
	)
	return err
}

func (r *LectureRepo) GetByID(ctx context.Context, subjectID, id uuid.UUID) (*models.Lecture, error) {
	l := &models.Lecture{}
	var quizBytes []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, subject_id, title, intro_en, intro_ar, quiz, created_at
		 FROM lectures WHERE id = $1 AND subject_id = $2`,
		id, subjectID,
	).Scan(&l.ID, &l.WorkspaceID, &l.SubjectID, &l.Title, &l.Intro.EN, &l.Intro.AR, &quizBytes, &l.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(quizBytes, &l.Quiz); err != nil {
		return nil, fmt.Errorf("decode quiz for lecture %s: %w", id, err)
	}
	return l, nil
}

// ListBySubject returns lecture headers; the quiz body is omitted.
func (r *LectureRepo) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*models.Lecture, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, subject_id, title, intro_en, intro_ar, created_at
		 FROM lectures WHERE subject_id = $1 ORDER BY created_at`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lectures := []*models.Lecture{}
	for rows.Next() {
		l := &models.Lecture{}
		if err := rows.Scan(&l.ID, &l.WorkspaceID, &l.SubjectID, &l.Title, &l.Intro.EN, &l.Intro.AR, &l.CreatedAt); err != nil {
			return nil, err
		}
		lectures = append(lectures, l)
	}
	return lectures, rows.Err()
}
