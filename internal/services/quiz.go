package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/metrics"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/quiz"
)

type QuizRunStore interface {
	Load(ctx context.Context, userID string, lectureID uuid.UUID) (quiz.State, bool, error)
	Save(ctx context.Context, userID string, lectureID uuid.UUID, st quiz.State) error
	Delete(ctx context.Context, userID string, lectureID uuid.UUID) error
	Lock(ctx context.Context, userID string, lectureID uuid.UUID) (func(), error)
}

type QuizResultStore interface {
	Create(ctx context.Context, q *models.QuizResult) error
}

// QuestionView hides the answer key until the question is submitted.
type QuestionView struct {
	Type           models.QuestionType `json:"type"`
	Question       string              `json:"question"`
	Options        []string            `json:"options"`
	CorrectAnswers []int               `json:"correctAnswers,omitempty"`
	Explanation    string              `json:"explanation,omitempty"`
}

type QuizView struct {
	LectureID uuid.UUID          `json:"lecture_id"`
	Phase     quiz.Phase         `json:"phase"`
	Current   int                `json:"current"`
	Total     int                `json:"total"`
	Selected  []int              `json:"selected"`
	Submitted bool               `json:"submitted"`
	Question  *QuestionView      `json:"question,omitempty"`
	Last      *quiz.AnswerRecord `json:"last_answer,omitempty"`
	Results   *quiz.Results      `json:"results,omitempty"`
}

type QuizService struct {
	lectures  *LectureService
	runs      QuizRunStore
	results   QuizResultStore
	dashboard DashboardInvalidator
	now       func() time.Time
}

func NewQuizService(lectures *LectureService, runs QuizRunStore, results QuizResultStore, dashboard DashboardInvalidator) *QuizService {
	return &QuizService{
		lectures:  lectures,
		runs:      runs,
		results:   results,
		dashboard: dashboard,
		now:       time.Now,
	}
}

func view(lectureID uuid.UUID, e *quiz.Engine) *QuizView {
	st := e.State()
	v := &QuizView{
		LectureID: lectureID,
		Phase:     st.Phase,
		Current:   st.Current,
		Total:     e.Results().TotalQuestions,
		Selected:  st.Selected,
		Submitted: st.Submitted,
	}
	if v.Selected == nil {
		v.Selected = []int{}
	}

	if q := e.Current(); q != nil {
		qv := &QuestionView{Type: q.Type, Question: q.Question, Options: q.Options}
		if st.Submitted {
			qv.CorrectAnswers = q.CorrectAnswers
			qv.Explanation = q.Explanation
			if n := len(st.Records); n > 0 {
				last := st.Records[n-1]
				v.Last = &last
			}
		}
		v.Question = qv
	}

	if st.Phase == quiz.PhaseResults {
		res := e.Results()
		v.Results = &res
	}
	return v
}

// Start resumes the user's parked run for the lecture or begins a new one.
func (s *QuizService) Start(ctx context.Context, userID string, ref LectureRef) (*QuizView, error) {
	lec, err := s.lectures.Get(ctx, userID, ref.WorkspaceID, ref.SubjectID, ref.LectureID)
	if err != nil {
		return nil, err
	}

	release, err := s.runs.Lock(ctx, userID, lec.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, ok, err := s.runs.Load(ctx, userID, lec.ID)
	if err != nil {
		return nil, fmt.Errorf("load quiz run: %w", err)
	}

	var e *quiz.Engine
	if ok {
		e = quiz.Restore(lec.Quiz, st)
	} else {
		e = quiz.New(lec.Quiz)
	}
	if err := s.runs.Save(ctx, userID, lec.ID, e.State()); err != nil {
		return nil, fmt.Errorf("save quiz run: %w", err)
	}
	return view(lec.ID, e), nil
}

func (s *QuizService) State(ctx context.Context, userID string, ref LectureRef) (*QuizView, error) {
	lec, e, err := s.load(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	return view(lec.ID, e), nil
}

func (s *QuizService) ToggleOption(ctx context.Context, userID string, ref LectureRef, index int) (*QuizView, error) {
	return s.apply(ctx, userID, ref, func(_ *models.Lecture, e *quiz.Engine) error {
		return e.ToggleOption(index)
	})
}

func (s *QuizService) Submit(ctx context.Context, userID string, ref LectureRef) (*QuizView, error) {
	return s.apply(ctx, userID, ref, func(_ *models.Lecture, e *quiz.Engine) error {
		_, err := e.Submit()
		return err
	})
}

// Next advances the run. Entering results records a QuizResult; if that write
// fails the parked run is left on the last question so Next can be retried.
func (s *QuizService) Next(ctx context.Context, userID string, ref LectureRef) (*QuizView, error) {
	return s.apply(ctx, userID, ref, func(lec *models.Lecture, e *quiz.Engine) error {
		if err := e.Next(); err != nil {
			return err
		}
		if e.Phase() != quiz.PhaseResults {
			return nil
		}
		return s.recordResult(ctx, userID, lec, e.Results())
	})
}

func (s *QuizService) Restart(ctx context.Context, userID string, ref LectureRef) (*QuizView, error) {
	return s.apply(ctx, userID, ref, func(_ *models.Lecture, e *quiz.Engine) error {
		e.Restart()
		return nil
	})
}

func (s *QuizService) load(ctx context.Context, userID string, ref LectureRef) (*models.Lecture, *quiz.Engine, error) {
	lec, err := s.lectures.Get(ctx, userID, ref.WorkspaceID, ref.SubjectID, ref.LectureID)
	if err != nil {
		return nil, nil, err
	}
	e, err := s.restore(ctx, userID, lec)
	if err != nil {
		return nil, nil, err
	}
	return lec, e, nil
}

func (s *QuizService) restore(ctx context.Context, userID string, lec *models.Lecture) (*quiz.Engine, error) {
	st, ok, err := s.runs.Load(ctx, userID, lec.ID)
	if err != nil {
		return nil, fmt.Errorf("load quiz run: %w", err)
	}
	if !ok {
		return nil, &NotFoundError{Message: "No quiz in progress for this lecture"}
	}
	return quiz.Restore(lec.Quiz, st), nil
}

// apply runs op under the run lock so concurrent requests on the same run
// observe each other's writes.
func (s *QuizService) apply(ctx context.Context, userID string, ref LectureRef, op func(*models.Lecture, *quiz.Engine) error) (*QuizView, error) {
	lec, err := s.lectures.Get(ctx, userID, ref.WorkspaceID, ref.SubjectID, ref.LectureID)
	if err != nil {
		return nil, err
	}

	release, err := s.runs.Lock(ctx, userID, lec.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := s.restore(ctx, userID, lec)
	if err != nil {
		return nil, err
	}
	if err := op(lec, e); err != nil {
		return nil, err
	}
	if err := s.runs.Save(ctx, userID, lec.ID, e.State()); err != nil {
		return nil, fmt.Errorf("save quiz run: %w", err)
	}
	return view(lec.ID, e), nil
}

func (s *QuizService) recordResult(ctx context.Context, userID string, lec *models.Lecture, res quiz.Results) error {
	if res.TotalQuestions == 0 {
		return nil
	}
	now := s.now().UTC()
	qr := &models.QuizResult{
		ID:             uuid.New(),
		WorkspaceID:    lec.WorkspaceID,
		UserID:         userID,
		SubjectID:      lec.SubjectID,
		LectureID:      lec.ID,
		CorrectCount:   res.CorrectCount,
		TotalQuestions: res.TotalQuestions,
		ScorePercent:   res.ScorePercent,
		Date:           models.DayString(now),
		CreatedAt:      now,
	}
	if err := s.results.Create(ctx, qr); err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	metrics.QuizzesCompleted.Inc()
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx, lec.WorkspaceID, userID)
	}
	return nil
}
