package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/metrics"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/studytimer"
)

// EventPublisher delivers an event to one user's websocket connections.
type EventPublisher interface {
	PublishToUser(ctx context.Context, userID string, msg models.WSMessage) error
}

// DashboardInvalidator drops cached dashboards after new activity.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, workspaceID uuid.UUID, userID string)
}

const publishTimeout = 2 * time.Second

// LectureRef addresses a lecture through its workspace and subject.
type LectureRef struct {
	WorkspaceID uuid.UUID
	SubjectID   uuid.UUID
	LectureID   uuid.UUID
}

type StudyService struct {
	lectures  *LectureService
	registry  *studytimer.Registry
	saver     studytimer.SessionSaver
	events    EventPublisher
	dashboard DashboardInvalidator
	clock     studytimer.Clock
	tick      time.Duration
}

func NewStudyService(
	lectures *LectureService,
	registry *studytimer.Registry,
	saver studytimer.SessionSaver,
	events EventPublisher,
	dashboard DashboardInvalidator,
	tick time.Duration,
) *StudyService {
	return &StudyService{
		lectures:  lectures,
		registry:  registry,
		saver:     saver,
		events:    events,
		dashboard: dashboard,
		clock:     studytimer.SystemClock,
		tick:      tick,
	}
}

// WithClock replaces the time source. Tests only.
func (s *StudyService) WithClock(c studytimer.Clock) *StudyService {
	s.clock = c
	return s
}

func key(userID string, ref LectureRef) studytimer.Key {
	return studytimer.Key{UserID: userID, LectureID: ref.LectureID}
}

// Start opens a timer for the lecture and begins timing. A second start while
// an unsaved run exists is a conflict.
func (s *StudyService) Start(ctx context.Context, userID string, ref LectureRef) (studytimer.Snapshot, error) {
	lec, err := s.lectures.Get(ctx, userID, ref.WorkspaceID, ref.SubjectID, ref.LectureID)
	if err != nil {
		return studytimer.Snapshot{}, err
	}

	t, err := s.registry.Open(key(userID, ref), studytimer.Options{
		WorkspaceID: lec.WorkspaceID,
		UserID:      userID,
		SubjectID:   lec.SubjectID,
		LectureID:   lec.ID,
		Saver:       s.saver,
		Clock:       s.clock,
		Tick:        s.tick,
		OnTick:      s.onTick(userID, lec.ID),
		OnSaved:     s.onSaved,
	})
	if err != nil {
		if errors.Is(err, studytimer.ErrAlreadyActive) {
			return studytimer.Snapshot{}, &ConflictError{Message: "A study session is already running for this lecture"}
		}
		return studytimer.Snapshot{}, err
	}
	metrics.ActiveTimers.Set(float64(s.registry.Len()))

	if err := t.Start(); err != nil {
		return studytimer.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

func (s *StudyService) timer(userID string, ref LectureRef) (*studytimer.Timer, error) {
	t, ok := s.registry.Get(key(userID, ref))
	if !ok {
		return nil, &NotFoundError{Message: "No study session for this lecture"}
	}
	return t, nil
}

func (s *StudyService) Pause(userID string, ref LectureRef) (studytimer.Snapshot, error) {
	t, err := s.timer(userID, ref)
	if err != nil {
		return studytimer.Snapshot{}, err
	}
	if err := t.Pause(); err != nil {
		return studytimer.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

func (s *StudyService) Resume(userID string, ref LectureRef) (studytimer.Snapshot, error) {
	t, err := s.timer(userID, ref)
	if err != nil {
		return studytimer.Snapshot{}, err
	}
	if err := t.Resume(); err != nil {
		return studytimer.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Stop finishes the run and persists the session. On a save failure the
// snapshot is still returned, in completion with SaveStatus failed, together
// with a *studytimer.SaveError.
func (s *StudyService) Stop(ctx context.Context, userID string, ref LectureRef) (studytimer.Snapshot, error) {
	t, err := s.timer(userID, ref)
	if err != nil {
		return studytimer.Snapshot{}, err
	}
	_, err = t.Stop(ctx)
	return t.Snapshot(), s.saveOutcome(userID, ref, err)
}

// RetrySave re-attempts a failed save. The session keeps its ID, so a retry
// after an ambiguous failure cannot double count.
func (s *StudyService) RetrySave(ctx context.Context, userID string, ref LectureRef) (studytimer.Snapshot, error) {
	t, err := s.timer(userID, ref)
	if err != nil {
		return studytimer.Snapshot{}, err
	}
	_, err = t.RetrySave(ctx)
	return t.Snapshot(), s.saveOutcome(userID, ref, err)
}

func (s *StudyService) saveOutcome(userID string, ref LectureRef, err error) error {
	var se *studytimer.SaveError
	if errors.As(err, &se) {
		metrics.StudySessionsSaved.WithLabelValues("failure").Inc()
		log.Printf("study: save failed for user %s lecture %s: %v", userID, ref.LectureID, se.Err)
		s.publish(userID, models.WSMessage{
			Type:    models.EventSessionSaveError,
			Payload: map[string]any{"lecture_id": ref.LectureID, "message": "Could not save study session"},
		})
	}
	return err
}

func (s *StudyService) Snapshot(userID string, ref LectureRef) (studytimer.Snapshot, error) {
	t, err := s.timer(userID, ref)
	if err != nil {
		return studytimer.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Discard abandons the run. Nothing is persisted.
func (s *StudyService) Discard(userID string, ref LectureRef) error {
	if !s.registry.Discard(key(userID, ref)) {
		return &NotFoundError{Message: "No study session for this lecture"}
	}
	metrics.ActiveTimers.Set(float64(s.registry.Len()))
	return nil
}

func (s *StudyService) onTick(userID string, lectureID uuid.UUID) studytimer.TickFunc {
	return func(elapsed time.Duration) {
		s.publish(userID, models.WSMessage{
			Type:    models.EventSessionTick,
			Payload: models.SessionTick{LectureID: lectureID, ElapsedMs: elapsed.Milliseconds()},
		})
	}
}

func (s *StudyService) onSaved(session *models.StudySession) {
	metrics.StudySessionsSaved.WithLabelValues("success").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx, session.WorkspaceID, session.UserID)
	}
	s.publish(session.UserID, models.WSMessage{Type: models.EventSessionSaved, Payload: session})
}

func (s *StudyService) publish(userID string, msg models.WSMessage) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.events.PublishToUser(ctx, userID, msg); err != nil {
		log.Printf("study: publish %s to %s: %v", msg.Type, userID, err)
	}
}

// Shutdown stops every sampler.
func (s *StudyService) Shutdown() {
	s.registry.CloseAll()
	metrics.ActiveTimers.Set(0)
}
