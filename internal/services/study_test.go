package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofuq-backend/internal/models"
	"ofuq-backend/internal/studytimer"
)

type studyFixture struct {
	*fixture
	sessions  *fakeSessions
	events    *fakePublisher
	dashboard *fakeInvalidator
	clock     *studytimer.ManualClock
	svc       *StudyService
}

func newStudyFixture() *studyFixture {
	f := &studyFixture{
		fixture:   newFixture(),
		sessions:  newFakeSessions(),
		events:    &fakePublisher{},
		dashboard: &fakeInvalidator{},
		clock:     studytimer.NewManualClock(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)),
	}
	// A long tick keeps the sampler quiet; sampling is covered in studytimer.
	f.svc = NewStudyService(f.lectureSvc, studytimer.NewRegistry(), f.sessions, f.events, f.dashboard, time.Hour).
		WithClock(f.clock)
	return f
}

func TestStudyService_FullRun(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()
	ctx := context.Background()

	snap, err := f.svc.Start(ctx, "owner", f.ref())
	require.NoError(t, err)
	assert.Equal(t, studytimer.StepTimer, snap.Step)
	assert.Equal(t, studytimer.RunRunning, snap.State)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.Pause("owner", f.ref())
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.Resume("owner", f.ref())
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)

	snap, err = f.svc.Stop(ctx, "owner", f.ref())
	require.NoError(t, err)
	assert.Equal(t, studytimer.StepCompletion, snap.Step)
	assert.Equal(t, studytimer.SaveSaved, snap.SaveStatus)
	require.NotNil(t, snap.Session)
	assert.Equal(t, 30, snap.Session.DurationMinutes)
	assert.Equal(t, "2026-03-07", snap.Session.Date)
	assert.Equal(t, f.subject.ID, snap.Session.SubjectID)

	assert.Equal(t, 1, f.sessions.count())
	assert.Equal(t, 1, f.dashboard.count())
	assert.Contains(t, f.events.types(), models.EventSessionSaved)

	// A saved run can be replaced by a new one.
	_, err = f.svc.Start(ctx, "owner", f.ref())
	assert.NoError(t, err)
}

func TestStudyService_SecondStartConflicts(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "owner", f.ref())
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "owner", f.ref())
	assert.IsType(t, &ConflictError{}, err)

	// Another user on the same lecture is independent.
	_, err = f.workspaceSvc.Join(ctx, "student", f.ws.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "student", f.ref())
	assert.NoError(t, err)
}

func TestStudyService_SaveFailureThenRetry(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "owner", f.ref())
	require.NoError(t, err)
	f.clock.Advance(20 * time.Second)

	f.sessions.setErr(errStore)
	snap, err := f.svc.Stop(ctx, "owner", f.ref())
	var se *studytimer.SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, studytimer.StepCompletion, snap.Step)
	assert.Equal(t, studytimer.SaveFailed, snap.SaveStatus)
	assert.Contains(t, f.events.types(), models.EventSessionSaveError)
	assert.Equal(t, 0, f.dashboard.count())

	// Unsaved work blocks a fresh start.
	_, err = f.svc.Start(ctx, "owner", f.ref())
	assert.IsType(t, &ConflictError{}, err)

	f.sessions.setErr(nil)
	snap, err = f.svc.RetrySave(ctx, "owner", f.ref())
	require.NoError(t, err)
	assert.Equal(t, studytimer.SaveSaved, snap.SaveStatus)
	assert.Equal(t, 1, snap.Session.DurationMinutes)
	assert.Equal(t, 1, f.sessions.count())
}

func TestStudyService_UnknownRunAndDiscard(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()
	ctx := context.Background()

	_, err := f.svc.Pause("owner", f.ref())
	assert.IsType(t, &NotFoundError{}, err)

	_, err = f.svc.Start(ctx, "owner", f.ref())
	require.NoError(t, err)
	require.NoError(t, f.svc.Discard("owner", f.ref()))
	assert.IsType(t, &NotFoundError{}, f.svc.Discard("owner", f.ref()))
	assert.Equal(t, 0, f.sessions.count())
}

func TestStudyService_NonMemberCannotStart(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()

	_, err := f.svc.Start(context.Background(), "stranger", f.ref())
	assert.IsType(t, &ForbiddenError{}, err)
}

func TestStudyService_InvalidTransition(t *testing.T) {
	f := newStudyFixture()
	defer f.svc.Shutdown()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "owner", f.ref())
	require.NoError(t, err)
	_, err = f.svc.Resume("owner", f.ref())
	assert.ErrorIs(t, err, studytimer.ErrInvalidTransition)
}
