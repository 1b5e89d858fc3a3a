// Package studytimer tracks a single timed study run for one user and one
// lecture, from the intro screen through completion, and persists the
// finished session exactly once.
package studytimer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/models"
)

type Step string

const (
	StepIntro      Step = "intro"
	StepTimer      Step = "timer"
	StepCompletion Step = "completion"
)

type RunState string

const (
	RunIdle    RunState = ""
	RunRunning RunState = "running"
	RunPaused  RunState = "paused"
)

type SaveStatus string

const (
	SaveNone   SaveStatus = ""
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveFailed SaveStatus = "failed"
)

const DefaultTick = 500 * time.Millisecond

var (
	ErrInvalidTransition = errors.New("invalid timer transition")
	ErrSaveInProgress    = errors.New("session save already in progress")
	ErrAlreadySaved      = errors.New("session already saved")
	ErrClosed            = errors.New("timer closed")
)

// SaveError reports that the finished session could not be persisted. The
// timer stays in completion and RetrySave may be called.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string { return fmt.Sprintf("save study session: %v", e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// SessionSaver persists a finished session.
type SessionSaver interface {
	Create(ctx context.Context, s *models.StudySession) error
}

// TickFunc receives elapsed time samples while the timer runs.
type TickFunc func(elapsed time.Duration)

type Options struct {
	WorkspaceID uuid.UUID
	UserID      string
	SubjectID   uuid.UUID
	LectureID   uuid.UUID

	Saver  SessionSaver
	Clock  Clock
	Tick   time.Duration
	OnTick TickFunc
	// OnSaved runs after a successful save, outside the timer lock.
	OnSaved func(s *models.StudySession)
}

// Snapshot is a point-in-time view of a timer.
type Snapshot struct {
	LectureID  uuid.UUID            `json:"lecture_id"`
	Step       Step                 `json:"step"`
	State      RunState             `json:"state,omitempty"`
	ElapsedMs  int64                `json:"elapsed_ms"`
	SaveStatus SaveStatus           `json:"save_status,omitempty"`
	SaveError  string               `json:"save_error,omitempty"`
	Session    *models.StudySession `json:"session,omitempty"`
}

type Timer struct {
	opts Options

	mu           sync.Mutex
	step         Step
	state        RunState
	accumulated  time.Duration
	segmentStart time.Time
	lastElapsed  time.Duration
	closed       bool

	cancelSampler context.CancelFunc
	samplerDone   chan struct{}

	session    *models.StudySession
	saveStatus SaveStatus
	saveErr    error
}

func New(opts Options) *Timer {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	return &Timer{opts: opts, step: StepIntro}
}

// Start leaves the intro and begins timing from zero.
func (t *Timer) Start() error {
	t.mu.Lock()
	if err := t.checkLocked(t.step == StepIntro); err != nil {
		t.mu.Unlock()
		return err
	}
	t.step = StepTimer
	t.state = RunRunning
	t.accumulated = 0
	t.lastElapsed = 0
	t.segmentStart = t.opts.Clock.Now()
	t.startSamplerLocked()
	t.mu.Unlock()
	return nil
}

func (t *Timer) Pause() error {
	t.mu.Lock()
	if err := t.checkLocked(t.step == StepTimer && t.state == RunRunning); err != nil {
		t.mu.Unlock()
		return err
	}
	t.accumulated = t.elapsedLocked()
	t.state = RunPaused
	done := t.stopSamplerLocked()
	t.mu.Unlock()

	wait(done)
	return nil
}

func (t *Timer) Resume() error {
	t.mu.Lock()
	if err := t.checkLocked(t.step == StepTimer && t.state == RunPaused); err != nil {
		t.mu.Unlock()
		return err
	}
	t.segmentStart = t.opts.Clock.Now()
	t.state = RunRunning
	t.startSamplerLocked()
	t.mu.Unlock()
	return nil
}

// Stop freezes the elapsed time, moves to completion and persists the
// session. A persistence failure is returned as *SaveError; the timer is in
// completion either way.
func (t *Timer) Stop(ctx context.Context) (*models.StudySession, error) {
	t.mu.Lock()
	if err := t.checkLocked(t.step == StepTimer); err != nil {
		t.mu.Unlock()
		return nil, err
	}

	now := t.opts.Clock.Now()
	final := t.elapsedAtLocked(now)
	done := t.stopSamplerLocked()
	t.accumulated = final
	t.step = StepCompletion
	t.state = RunIdle
	t.session = &models.StudySession{
		ID:              uuid.New(),
		WorkspaceID:     t.opts.WorkspaceID,
		UserID:          t.opts.UserID,
		SubjectID:       t.opts.SubjectID,
		LectureID:       t.opts.LectureID,
		DurationMinutes: DurationMinutes(final),
		Date:            models.DayString(now.UTC()),
		CreatedAt:       now.UTC(),
	}
	t.saveStatus = SaveSaving
	t.mu.Unlock()

	wait(done)
	return t.save(ctx)
}

// RetrySave re-attempts a failed save of the finished session.
func (t *Timer) RetrySave(ctx context.Context) (*models.StudySession, error) {
	t.mu.Lock()
	switch {
	case t.step != StepCompletion:
		t.mu.Unlock()
		return nil, ErrInvalidTransition
	case t.saveStatus == SaveSaving:
		t.mu.Unlock()
		return nil, ErrSaveInProgress
	case t.saveStatus == SaveSaved:
		t.mu.Unlock()
		return nil, ErrAlreadySaved
	}
	t.saveStatus = SaveSaving
	t.mu.Unlock()

	return t.save(ctx)
}

func (t *Timer) save(ctx context.Context) (*models.StudySession, error) {
	t.mu.Lock()
	session := *t.session
	t.mu.Unlock()

	err := t.opts.Saver.Create(ctx, &session)

	t.mu.Lock()
	if err != nil {
		t.saveStatus = SaveFailed
		t.saveErr = err
		t.mu.Unlock()
		return &session, &SaveError{Err: err}
	}
	t.saveStatus = SaveSaved
	t.saveErr = nil
	t.session = &session
	t.mu.Unlock()

	if t.opts.OnSaved != nil {
		t.opts.OnSaved(&session)
	}
	return &session, nil
}

// Elapsed is accumulated time plus the running segment, if any.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		LectureID:  t.opts.LectureID,
		Step:       t.step,
		State:      t.state,
		ElapsedMs:  t.elapsedLocked().Milliseconds(),
		SaveStatus: t.saveStatus,
	}
	if t.session != nil {
		s := *t.session
		snap.Session = &s
	}
	if t.saveErr != nil {
		snap.SaveError = t.saveErr.Error()
	}
	return snap
}

// Active reports whether the timer holds data that has not been persisted.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	return t.step != StepCompletion || t.saveStatus != SaveSaved
}

// Close cancels the sampler. Further transitions fail with ErrClosed.
func (t *Timer) Close() {
	t.mu.Lock()
	t.closed = true
	done := t.stopSamplerLocked()
	t.mu.Unlock()
	wait(done)
}

func (t *Timer) checkLocked(ok bool) error {
	if t.closed {
		return ErrClosed
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

func (t *Timer) elapsedLocked() time.Duration {
	return t.elapsedAtLocked(t.opts.Clock.Now())
}

func (t *Timer) elapsedAtLocked(now time.Time) time.Duration {
	elapsed := t.accumulated
	if t.step == StepTimer && t.state == RunRunning {
		if seg := now.Sub(t.segmentStart); seg > 0 {
			elapsed += seg
		}
	}
	// A wall clock stepping backwards must not make the display go back.
	if elapsed < t.lastElapsed {
		elapsed = t.lastElapsed
	}
	t.lastElapsed = elapsed
	return elapsed
}

func (t *Timer) startSamplerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancelSampler = cancel
	t.samplerDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.opts.Tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			t.mu.Lock()
			if ctx.Err() != nil {
				t.mu.Unlock()
				return
			}
			elapsed := t.elapsedLocked()
			t.mu.Unlock()

			if t.opts.OnTick != nil {
				t.opts.OnTick(elapsed)
			}
		}
	}()
}

// stopSamplerLocked cancels the sampler and returns a channel closed once the
// sampler goroutine has exited. Callers wait on it after releasing t.mu.
func (t *Timer) stopSamplerLocked() <-chan struct{} {
	if t.cancelSampler == nil {
		return nil
	}
	t.cancelSampler()
	done := t.samplerDone
	t.cancelSampler = nil
	t.samplerDone = nil
	return done
}

func wait(done <-chan struct{}) {
	if done != nil {
		<-done
	}
}

// DurationMinutes rounds elapsed to whole minutes, never below one.
func DurationMinutes(elapsed time.Duration) int {
	m := int(math.Round(float64(elapsed.Milliseconds()) / 60000))
	if m < 1 {
		return 1
	}
	return m
}
