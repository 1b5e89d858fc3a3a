package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/lectureimport"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type fakeWorkspaces struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*models.Workspace
	members    map[uuid.UUID]map[string]bool
	subjects   *fakeSubjects
}

func newFakeWorkspaces(subjects *fakeSubjects) *fakeWorkspaces {
	return &fakeWorkspaces{
		workspaces: map[uuid.UUID]*models.Workspace{},
		members:    map[uuid.UUID]map[string]bool{},
		subjects:   subjects,
	}
}

func (f *fakeWorkspaces) Create(ctx context.Context, w *models.Workspace, names []string) ([]*models.Subject, error) {
	f.mu.Lock()
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	cp := *w
	f.workspaces[w.ID] = &cp
	f.mu.Unlock()

	subjects := []*models.Subject{}
	for _, n := range names {
		s := &models.Subject{WorkspaceID: w.ID, Name: n}
		if err := f.subjects.Create(ctx, s); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

func (f *fakeWorkspaces) GetByID(_ context.Context, id uuid.UUID) (*models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workspaces[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWorkspaces) ListForUser(_ context.Context, userID string) ([]*models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Workspace{}
	for id, w := range f.workspaces {
		switch {
		case w.OwnerID == userID:
			cp := *w
			cp.Role = "owner"
			out = append(out, &cp)
		case f.members[id][userID]:
			cp := *w
			cp.Role = "member"
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeWorkspaces) AddMember(_ context.Context, wid uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[wid] == nil {
		f.members[wid] = map[string]bool{}
	}
	f.members[wid][userID] = true
	return nil
}

func (f *fakeWorkspaces) IsMember(_ context.Context, wid uuid.UUID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[wid][userID], nil
}

type fakeSubjects struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]*models.Subject
}

func newFakeSubjects() *fakeSubjects {
	return &fakeSubjects{subjects: map[uuid.UUID]*models.Subject{}}
}

func (f *fakeSubjects) Create(_ context.Context, s *models.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	cp := *s
	f.subjects[s.ID] = &cp
	return nil
}

func (f *fakeSubjects) GetByID(_ context.Context, wid, id uuid.UUID) (*models.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[id]
	if !ok || s.WorkspaceID != wid {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubjects) ListByWorkspace(_ context.Context, wid uuid.UUID) ([]*models.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Subject{}
	for _, s := range f.subjects {
		if s.WorkspaceID == wid {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSubjects) Rename(_ context.Context, wid, id uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[id]
	if !ok || s.WorkspaceID != wid {
		return repository.ErrNotFound
	}
	s.Name = name
	return nil
}

func (f *fakeSubjects) Delete(_ context.Context, wid, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[id]
	if !ok || s.WorkspaceID != wid {
		return repository.ErrNotFound
	}
	delete(f.subjects, id)
	return nil
}

type fakeLectures struct {
	mu       sync.Mutex
	lectures map[uuid.UUID]*models.Lecture
}

func newFakeLectures() *fakeLectures {
	return &fakeLectures{lectures: map[uuid.UUID]*models.Lecture{}}
}

func (f *fakeLectures) Create(_ context.Context, l *models.Lecture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = uuid.New()
	cp := *l
	f.lectures[l.ID] = &cp
	return nil
}

func (f *fakeLectures) GetByID(_ context.Context, sid, id uuid.UUID) (*models.Lecture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lectures[id]
	if !ok || l.SubjectID != sid {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLectures) ListBySubject(_ context.Context, sid uuid.UUID) ([]*models.Lecture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Lecture{}
	for _, l := range f.lectures {
		if l.SubjectID == sid {
			cp := *l
			cp.Quiz = nil
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	err      error
	sessions map[uuid.UUID]*models.StudySession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[uuid.UUID]*models.StudySession{}}
}

func (f *fakeSessions) Create(_ context.Context, s *models.StudySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeQuizResults struct {
	mu      sync.Mutex
	err     error
	delay   time.Duration
	results []*models.QuizResult
}

func (f *fakeQuizResults) Create(_ context.Context, q *models.QuizResult) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *q
	f.results = append(f.results, &cp)
	return nil
}

type publishedEvent struct {
	userID string
	msg    models.WSMessage
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishToUser(_ context.Context, userID string, msg models.WSMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{userID: userID, msg: msg})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.msg.Type)
	}
	return out
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context, uuid.UUID, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errStore = errors.New("store unavailable")

// fixture wires the services over in-memory stores with one workspace owned
// by "owner", one subject and one two-question lecture.
type fixture struct {
	workspaces *fakeWorkspaces
	subjects   *fakeSubjects
	lectures   *fakeLectures

	workspaceSvc *WorkspaceService
	lectureSvc   *LectureService

	ws      *models.Workspace
	subject *models.Subject
	lecture *models.Lecture
}

func twoQuestions() []models.QuizQuestion {
	return []models.QuizQuestion{
		{Type: models.QuestionSingle, Question: "q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{1}, Explanation: "e1"},
		{Type: models.QuestionMulti, Question: "q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{0, 2}, Explanation: "e2"},
	}
}

func newFixture() *fixture {
	f := &fixture{subjects: newFakeSubjects(), lectures: newFakeLectures()}
	f.workspaces = newFakeWorkspaces(f.subjects)
	f.workspaceSvc = NewWorkspaceService(f.workspaces, f.subjects, "https://ofuq.test/")
	v, err := lectureimport.NewValidator()
	if err != nil {
		panic(err)
	}
	f.lectureSvc = NewLectureService(f.workspaceSvc, f.lectures, v)

	ctx := context.Background()
	created, err := f.workspaceSvc.Create(ctx, "owner", models.CreateWorkspaceRequest{Name: "Semester 1", Subjects: []string{"Physics"}})
	if err != nil {
		panic(err)
	}
	f.ws = created.Workspace
	f.subject = created.Subjects[0]

	f.lecture = &models.Lecture{
		WorkspaceID: f.ws.ID,
		SubjectID:   f.subject.ID,
		Title:       "Kinematics",
		Intro:       models.Intro{EN: "intro", AR: "مقدمة"},
		Quiz:        twoQuestions(),
	}
	f.lectures.Create(ctx, f.lecture)
	return f
}

func (f *fixture) ref() LectureRef {
	return LectureRef{WorkspaceID: f.ws.ID, SubjectID: f.subject.ID, LectureID: f.lecture.ID}
}
