package models

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionSingle QuestionType = "single"
	QuestionMulti  QuestionType = "multi"
	QuestionCase   QuestionType = "case"
)

// QuizQuestion keeps the camelCase keys of the lecture import format so that
// stored quizzes round-trip with the authored JSON.
type QuizQuestion struct {
	Type           QuestionType `json:"type"`
	Question       string       `json:"question"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correctAnswers"`
	Explanation    string       `json:"explanation"`
}

type Intro struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

// LectureImport is the externally authored payload accepted by the importer.
type LectureImport struct {
	Title string         `json:"title"`
	Intro Intro          `json:"intro"`
	Quiz  []QuizQuestion `json:"quiz"`
}

type Lecture struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	SubjectID   uuid.UUID      `json:"subject_id"`
	Title       string         `json:"title"`
	Intro       Intro          `json:"intro"`
	Quiz        []QuizQuestion `json:"quiz"`
	CreatedAt   time.Time      `json:"created_at"`
}
