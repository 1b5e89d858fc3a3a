package models

import (
	"time"

	"github.com/google/uuid"
)

// StudySession is one completed timed study interval. It is written once,
// when the timer is stopped, and never updated.
type StudySession struct {
	ID              uuid.UUID `json:"id"`
	WorkspaceID     uuid.UUID `json:"workspace_id"`
	UserID          string    `json:"user_id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	LectureID       uuid.UUID `json:"lecture_id"`
	DurationMinutes int       `json:"duration_minutes"`
	Date            string    `json:"date"`
	CreatedAt       time.Time `json:"created_at"`
}
