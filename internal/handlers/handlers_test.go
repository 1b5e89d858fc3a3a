package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofuq-backend/internal/analytics"
	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/quiz"
	"ofuq-backend/internal/repository"
	"ofuq-backend/internal/services"
	"ofuq-backend/internal/studytimer"
)

// newRequest builds a request carrying chi URL params and an identity.
func newRequest(method, target string, body any, params map[string]string, id middleware.Identity) *http.Request {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithIdentity(ctx, id)
	return req.WithContext(ctx)
}

var student = middleware.Identity{UserID: "student-1"}
var admin = middleware.Identity{UserID: "admin-1", Role: middleware.RoleAdmin}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

// ─── Error mapping ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"name": "required"}}, 400, "VALIDATION_ERROR"},
		{"validation pointer", &services.ValidationError{Message: "too few", Pointer: "/quiz"}, 400, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "busy"}, 409, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "gone"}, 404, "NOT_FOUND"},
		{"forbidden", &services.ForbiddenError{Message: "no"}, 403, "FORBIDDEN"},
		{"timer transition", studytimer.ErrInvalidTransition, 409, "INVALID_STATE"},
		{"already saved", studytimer.ErrAlreadySaved, 409, "INVALID_STATE"},
		{"quiz not submitted", fmt.Errorf("wrap: %w", quiz.ErrNotSubmitted), 409, "INVALID_STATE"},
		{"quiz option", quiz.ErrOptionOutOfRange, 400, "VALIDATION_ERROR"},
		{"repo not found", repository.ErrNotFound, 404, "NOT_FOUND"},
		{"unknown", errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodGet, "/", nil, nil, student)
			rr := httptest.NewRecorder()
			handleServiceError(rr, req, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestHandleServiceError_PointerIsReported(t *testing.T) {
	req := newRequest(http.MethodPost, "/", nil, nil, student)
	rr := httptest.NewRecorder()
	handleServiceError(rr, req, &services.ValidationError{Message: "Each question needs 4 or 5 options", Pointer: "/quiz/3/options"})

	apiErr := decodeError(t, rr)
	assert.Equal(t, "/quiz/3/options", apiErr.Pointer)
	assert.Equal(t, "Each question needs 4 or 5 options", apiErr.Message)
}

// ─── Workspace Handler Tests ───

type stubWorkspaces struct {
	WorkspaceService
	created   *models.CreateWorkspaceRequest
	authorize func(userID string, wid uuid.UUID) (*models.Workspace, error)
}

func (s *stubWorkspaces) Create(_ context.Context, userID string, req models.CreateWorkspaceRequest) (*services.WorkspaceWithSubjects, error) {
	s.created = &req
	return &services.WorkspaceWithSubjects{
		Workspace: &models.Workspace{ID: uuid.New(), OwnerID: userID, Name: req.Name, Role: "owner"},
		Subjects:  []*models.Subject{},
	}, nil
}

func (s *stubWorkspaces) Authorize(_ context.Context, userID string, wid uuid.UUID) (*models.Workspace, error) {
	return s.authorize(userID, wid)
}

func TestWorkspaceHandler_Create(t *testing.T) {
	stub := &stubWorkspaces{}
	h := NewWorkspaceHandler(stub)

	req := newRequest(http.MethodPost, "/api/v1/workspaces", map[string]any{
		"name":     "Semester 1",
		"subjects": []string{"Physics"},
	}, nil, student)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, stub.created)
	assert.Equal(t, []string{"Physics"}, stub.created.Subjects)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "student-1", body["owner_id"])
}

func TestWorkspaceHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  any
		code  string
		field string
	}{
		{"missing name", map[string]any{"subjects": []string{}}, "VALIDATION_ERROR", "name"},
		{"blank name", map[string]any{"name": "   "}, "VALIDATION_ERROR", "name"},
		{"name too long", map[string]any{"name": string(bytes.Repeat([]byte("a"), 51))}, "VALIDATION_ERROR", "name"},
		{"blank subject", map[string]any{"name": "ok", "subjects": []string{"x", ""}}, "VALIDATION_ERROR", "subjects[1]"},
		{"bad json", "{not json", "INVALID_JSON", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubWorkspaces{}
			req := newRequest(http.MethodPost, "/api/v1/workspaces", tt.body, nil, student)
			rr := httptest.NewRecorder()
			NewWorkspaceHandler(stub).Create(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			apiErr := decodeError(t, rr)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.field != "" {
				assert.Contains(t, apiErr.Fields, tt.field)
			}
			assert.Nil(t, stub.created)
		})
	}
}

func TestWorkspaceHandler_InvalidID(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/workspaces/nope", nil, map[string]string{"wid": "nope"}, student)
	rr := httptest.NewRecorder()
	NewWorkspaceHandler(&stubWorkspaces{}).Get(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, rr).Code)
}

// ─── Dashboard Handler Tests ───

type stubDashboards struct {
	period analytics.Period
}

func (s *stubDashboards) Dashboard(_ context.Context, _ uuid.UUID, _ string, p analytics.Period) (*analytics.Dashboard, error) {
	s.period = p
	return &analytics.Dashboard{Period: p}, nil
}

func TestDashboardHandler(t *testing.T) {
	wid := uuid.New()
	allowed := &stubWorkspaces{authorize: func(string, uuid.UUID) (*models.Workspace, error) {
		return &models.Workspace{ID: wid}, nil
	}}
	denied := &stubWorkspaces{authorize: func(string, uuid.UUID) (*models.Workspace, error) {
		return nil, &services.ForbiddenError{Message: "You are not a member of this workspace"}
	}}

	tests := []struct {
		name       string
		workspaces *stubWorkspaces
		query      string
		status     int
		period     analytics.Period
	}{
		{"default period", allowed, "", 200, analytics.Period7D},
		{"30 days", allowed, "?period=30D", 200, analytics.Period30D},
		{"bad period", allowed, "?period=1Y", 400, ""},
		{"not a member", denied, "?period=7D", 403, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &stubDashboards{}
			h := NewDashboardHandler(tt.workspaces, dash)
			req := newRequest(http.MethodGet, "/api/v1/workspaces/"+wid.String()+"/dashboard"+tt.query, nil,
				map[string]string{"wid": wid.String()}, student)
			rr := httptest.NewRecorder()
			h.Get(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.period, dash.period)
		})
	}
}

// ─── Session Handler Tests ───

type stubStudy struct {
	StudyService
	stopErr error
}

func (s *stubStudy) Stop(context.Context, string, services.LectureRef) (studytimer.Snapshot, error) {
	return studytimer.Snapshot{Step: studytimer.StepCompletion, SaveStatus: studytimer.SaveFailed}, s.stopErr
}

func (s *stubStudy) Pause(string, services.LectureRef) (studytimer.Snapshot, error) {
	return studytimer.Snapshot{}, studytimer.ErrInvalidTransition
}

func lectureParams() map[string]string {
	return map[string]string{
		"wid": uuid.NewString(),
		"sid": uuid.NewString(),
		"lid": uuid.NewString(),
	}
}

func TestSessionHandler_StopSaveFailureKeepsSnapshot(t *testing.T) {
	h := NewSessionHandler(&stubStudy{stopErr: &studytimer.SaveError{Err: errors.New("db down")}})
	req := newRequest(http.MethodPost, "/stop", nil, lectureParams(), student)
	rr := httptest.NewRecorder()
	h.Stop(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body struct {
		Error   models.APIError     `json:"error"`
		Session studytimer.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "SESSION_SAVE_FAILED", body.Error.Code)
	assert.Equal(t, studytimer.StepCompletion, body.Session.Step)
	assert.Equal(t, studytimer.SaveFailed, body.Session.SaveStatus)
}

func TestSessionHandler_InvalidTransition(t *testing.T) {
	h := NewSessionHandler(&stubStudy{})
	req := newRequest(http.MethodPost, "/pause", nil, lectureParams(), student)
	rr := httptest.NewRecorder()
	h.Pause(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rr).Code)
}

// ─── Quiz Handler Tests ───

type stubQuiz struct {
	QuizService
	toggled []int
}

func (s *stubQuiz) ToggleOption(_ context.Context, _ string, _ services.LectureRef, index int) (*services.QuizView, error) {
	s.toggled = append(s.toggled, index)
	return &services.QuizView{Phase: quiz.PhaseQuiz, Selected: []int{index}}, nil
}

func TestQuizHandler_Toggle(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		calls  int
	}{
		{"index zero is valid", map[string]any{"index": 0}, 200, 1},
		{"missing index", map[string]any{}, 400, 0},
		{"negative index", map[string]any{"index": -1}, 400, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubQuiz{}
			req := newRequest(http.MethodPost, "/toggle", tt.body, lectureParams(), student)
			rr := httptest.NewRecorder()
			NewQuizHandler(stub).Toggle(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			assert.Len(t, stub.toggled, tt.calls)
		})
	}
}

// ─── Lecture Handler Tests ───

type stubLectures struct {
	LectureService
	err error
}

func (s *stubLectures) Validate([]byte) (*models.LectureImport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.LectureImport{Title: "Waves", Quiz: make([]models.QuizQuestion, 20)}, nil
}

func TestLectureHandler_Validate(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/lectures/validate", "{}", nil, student)
	rr := httptest.NewRecorder()
	NewLectureHandler(&stubLectures{}).Validate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(20), body["questions"])

	rr = httptest.NewRecorder()
	stub := &stubLectures{err: &services.ValidationError{Message: "Lecture title is required", Pointer: "/title"}}
	NewLectureHandler(stub).Validate(rr, newRequest(http.MethodPost, "/", "{}", nil, student))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "/title", decodeError(t, rr).Pointer)
}

// ─── Insight Handler Tests ───

type stubInsights struct {
	insight *models.DailyInsight
}

func (s *stubInsights) Today() string { return "2026-03-07" }

func (s *stubInsights) GetForDay(context.Context, string) (*models.DailyInsight, error) {
	if s.insight == nil {
		return nil, repository.ErrNotFound
	}
	return s.insight, nil
}

func (s *stubInsights) MarkPublished(_ context.Context, id string) error {
	if s.insight == nil || s.insight.ID != id {
		return repository.ErrNotFound
	}
	s.insight.IsPublished = true
	return nil
}

type stubJobs struct {
	submitted int
}

func (s *stubJobs) SubmitInsightGeneration(_ context.Context, userID string) (*models.Job, error) {
	s.submitted++
	return &models.Job{ID: uuid.New(), UserID: userID, Status: "pending"}, nil
}

func (s *stubJobs) Get(context.Context, string, bool, uuid.UUID) (*models.Job, error) {
	return nil, &services.NotFoundError{Message: "Job not found"}
}

func TestInsightHandler_TodayQueuesOneJobWhenMissing(t *testing.T) {
	jobs := &stubJobs{}
	h := NewInsightHandler(&stubInsights{}, jobs, cache.NewMemory())

	var first, second pendingJob
	rr := httptest.NewRecorder()
	h.Today(rr, newRequest(http.MethodGet, "/api/v1/insights/today", nil, nil, student))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

	rr = httptest.NewRecorder()
	h.Today(rr, newRequest(http.MethodGet, "/api/v1/insights/today", nil, nil, student))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))

	assert.Equal(t, 1, jobs.submitted)
	assert.Equal(t, first.JobID, second.JobID)
}

func TestInsightHandler_TodayVisibility(t *testing.T) {
	in := &models.DailyInsight{ID: "2026-03-07", SurahNumber: 2, AyahNumber: 255, StoryContent: "…"}
	h := NewInsightHandler(&stubInsights{insight: in}, &stubJobs{}, cache.NewMemory())

	rr := httptest.NewRecorder()
	h.Today(rr, newRequest(http.MethodGet, "/", nil, nil, student))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.Today(rr, newRequest(http.MethodGet, "/", nil, nil, admin))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Publish(rr, newRequest(http.MethodPut, "/", nil, map[string]string{"id": "2026-03-07"}, admin))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Today(rr, newRequest(http.MethodGet, "/", nil, nil, student))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestInsightHandler_PublishRejectsBadID(t *testing.T) {
	h := NewInsightHandler(&stubInsights{}, &stubJobs{}, cache.NewMemory())

	rr := httptest.NewRecorder()
	h.Publish(rr, newRequest(http.MethodPut, "/", nil, map[string]string{"id": "today"}, admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.Publish(rr, newRequest(http.MethodPut, "/", nil, map[string]string{"id": "2026-01-01"}, admin))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ─── Health Handler Tests ───

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	rr := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": ok}).Get(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": down}).Get(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "down", body.Dependencies["redis"])
}
