// Package quiz runs a linear pass over a lecture's fixed question list with
// exact-match scoring. A run's state serialises to JSON so it can be parked
// between requests.
package quiz

import (
	"errors"
	"math"
	"slices"

	"ofuq-backend/internal/models"
)

type Phase string

const (
	PhaseQuiz    Phase = "quiz"
	PhaseResults Phase = "results"
)

var (
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrEmptySelection   = errors.New("select at least one option before submitting")
	ErrNotSubmitted     = errors.New("submit the current question first")
	ErrAlreadySubmitted = errors.New("question already submitted")
	ErrFinished         = errors.New("quiz already finished")
)

type AnswerRecord struct {
	QuestionIndex int   `json:"question_index"`
	Selected      []int `json:"selected"`
	Correct       bool  `json:"correct"`
}

type Results struct {
	CorrectCount   int `json:"correct_count"`
	TotalQuestions int `json:"total_questions"`
	ScorePercent   int `json:"score_percent"`
}

// State is the serialisable part of an engine.
type State struct {
	Phase     Phase          `json:"phase"`
	Current   int            `json:"current"`
	Selected  []int          `json:"selected"`
	Submitted bool           `json:"submitted"`
	Records   []AnswerRecord `json:"records"`
}

type Engine struct {
	questions []models.QuizQuestion
	st        State
}

func New(questions []models.QuizQuestion) *Engine {
	e := &Engine{questions: questions}
	e.Restart()
	return e
}

// Restore rebuilds an engine from saved state. Out-of-bounds state is reset.
func Restore(questions []models.QuizQuestion, st State) *Engine {
	e := &Engine{questions: questions, st: st}
	if st.Current < 0 || (len(questions) > 0 && st.Current >= len(questions)) || len(st.Records) > len(questions) {
		e.Restart()
	}
	if e.st.Phase == "" {
		e.st.Phase = PhaseQuiz
	}
	return e
}

func (e *Engine) State() State {
	st := e.st
	st.Selected = slices.Clone(e.st.Selected)
	st.Records = slices.Clone(e.st.Records)
	return st
}

func (e *Engine) Phase() Phase { return e.st.Phase }

// Current returns the question being answered, or nil once finished.
func (e *Engine) Current() *models.QuizQuestion {
	if e.st.Phase != PhaseQuiz || e.st.Current >= len(e.questions) {
		return nil
	}
	return &e.questions[e.st.Current]
}

// ToggleOption changes the selection for the current question. Single and
// case questions hold one option; multi questions toggle membership. It is a
// no-op after submission.
func (e *Engine) ToggleOption(i int) error {
	q := e.Current()
	if q == nil {
		return ErrFinished
	}
	if e.st.Submitted {
		return nil
	}
	if i < 0 || i >= len(q.Options) {
		return ErrOptionOutOfRange
	}

	if q.Type != models.QuestionMulti {
		e.st.Selected = []int{i}
		return nil
	}

	if idx := slices.Index(e.st.Selected, i); idx >= 0 {
		e.st.Selected = slices.Delete(e.st.Selected, idx, idx+1)
	} else {
		e.st.Selected = append(e.st.Selected, i)
	}
	return nil
}

// Submit locks the current question and records whether the selection is
// exactly the set of correct answers.
func (e *Engine) Submit() (AnswerRecord, error) {
	q := e.Current()
	if q == nil {
		return AnswerRecord{}, ErrFinished
	}
	if e.st.Submitted {
		return AnswerRecord{}, ErrAlreadySubmitted
	}
	if len(e.st.Selected) == 0 {
		return AnswerRecord{}, ErrEmptySelection
	}

	rec := AnswerRecord{
		QuestionIndex: e.st.Current,
		Selected:      slices.Clone(e.st.Selected),
		Correct:       sameSet(e.st.Selected, q.CorrectAnswers),
	}
	e.st.Records = append(e.st.Records, rec)
	e.st.Submitted = true
	return rec, nil
}

// Next moves past a submitted question, entering results after the last one.
func (e *Engine) Next() error {
	if e.st.Phase != PhaseQuiz {
		return ErrFinished
	}
	if !e.st.Submitted {
		return ErrNotSubmitted
	}

	e.st.Selected = nil
	e.st.Submitted = false
	if e.st.Current+1 >= len(e.questions) {
		e.st.Phase = PhaseResults
		return nil
	}
	e.st.Current++
	return nil
}

func (e *Engine) Restart() {
	e.st = State{Phase: PhaseQuiz, Records: []AnswerRecord{}}
	if len(e.questions) == 0 {
		e.st.Phase = PhaseResults
	}
}

func (e *Engine) Results() Results {
	return Score(e.st.Records, len(e.questions))
}

// Score rounds half up; an empty quiz scores zero.
func Score(records []AnswerRecord, total int) Results {
	correct := 0
	for _, r := range records {
		if r.Correct {
			correct++
		}
	}
	res := Results{CorrectCount: correct, TotalQuestions: total}
	if total > 0 {
		res.ScorePercent = int(math.Floor(100*float64(correct)/float64(total) + 0.5))
	}
	return res
}

func sameSet(selected, correct []int) bool {
	a := dedupSorted(selected)
	b := dedupSorted(correct)
	return slices.Equal(a, b)
}

func dedupSorted(xs []int) []int {
	out := slices.Clone(xs)
	slices.Sort(out)
	return slices.Compact(out)
}
