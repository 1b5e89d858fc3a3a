package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizResult is recorded when a quiz run reaches its results phase.
type QuizResult struct {
	ID             uuid.UUID `json:"id"`
	WorkspaceID    uuid.UUID `json:"workspace_id"`
	UserID         string    `json:"user_id"`
	SubjectID      uuid.UUID `json:"subject_id"`
	LectureID      uuid.UUID `json:"lecture_id"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	ScorePercent   int       `json:"score_percent"`
	Date           string    `json:"date"`
	CreatedAt      time.Time `json:"created_at"`
}

type ToggleOptionRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}
