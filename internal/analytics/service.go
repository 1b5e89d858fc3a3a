package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/models"
)

const cacheTTL = 10 * time.Minute

type SessionLister interface {
	ListByUser(ctx context.Context, workspaceID uuid.UUID, userID string) ([]*models.StudySession, error)
}

type QuizResultLister interface {
	ListByUser(ctx context.Context, workspaceID uuid.UUID, userID string) ([]*models.QuizResult, error)
}

type SubjectLister interface {
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Subject, error)
}

type Service struct {
	sessions    SessionLister
	quizResults QuizResultLister
	subjects    SubjectLister
	cache       cache.Store
	goalMinutes int
	now         func() time.Time
}

func NewService(sessions SessionLister, quizResults QuizResultLister, subjects SubjectLister, c cache.Store, goalMinutes int) *Service {
	return &Service{
		sessions:    sessions,
		quizResults: quizResults,
		subjects:    subjects,
		cache:       c,
		goalMinutes: goalMinutes,
		now:         time.Now,
	}
}

func cacheKey(workspaceID uuid.UUID, userID string, period Period) string {
	return fmt.Sprintf("dashboard:%s:%s:%s", workspaceID, userID, period)
}

type cachedDashboard struct {
	Today     string    `json:"today"`
	Dashboard Dashboard `json:"dashboard"`
}

// Dashboard returns the cached figures for today, computing them on a miss.
func (s *Service) Dashboard(ctx context.Context, workspaceID uuid.UUID, userID string, period Period) (*Dashboard, error) {
	today := models.DayString(s.now().UTC())
	key := cacheKey(workspaceID, userID, period)

	var cached cachedDashboard
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Printf("analytics: cache read failed: %v", err)
	} else if ok && cached.Today == today {
		return &cached.Dashboard, nil
	}

	sessions, err := s.sessions.ListByUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	results, err := s.quizResults.ListByUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	subjects, err := s.subjects.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	d := Build(Input{
		Sessions:    sessions,
		QuizResults: results,
		Subjects:    subjects,
		Today:       today,
		GoalMinutes: s.goalMinutes,
	}, period)

	if err := s.cache.Set(ctx, key, cachedDashboard{Today: today, Dashboard: d}, cacheTTL); err != nil {
		log.Printf("analytics: cache write failed: %v", err)
	}
	return &d, nil
}

// Invalidate drops every cached period for the user. Called after a session
// or quiz result is written.
func (s *Service) Invalidate(ctx context.Context, workspaceID uuid.UUID, userID string) {
	keys := []string{
		cacheKey(workspaceID, userID, Period7D),
		cacheKey(workspaceID, userID, Period30D),
		cacheKey(workspaceID, userID, Period90D),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("analytics: cache invalidation failed: %v", err)
	}
}
