package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type InsightService interface {
	Today() string
	GetForDay(ctx context.Context, day string) (*models.DailyInsight, error)
	MarkPublished(ctx context.Context, id string) error
}

type JobService interface {
	SubmitInsightGeneration(ctx context.Context, userID string) (*models.Job, error)
	Get(ctx context.Context, userID string, isAdmin bool, id uuid.UUID) (*models.Job, error)
}

// A missing insight triggers at most one queued job per day per window.
const pendingJobTTL = 10 * time.Minute

type InsightHandler struct {
	insights InsightService
	jobs     JobService
	cache    cache.Store
}

func NewInsightHandler(insights InsightService, jobs JobService, c cache.Store) *InsightHandler {
	return &InsightHandler{insights: insights, jobs: jobs, cache: c}
}

type pendingJob struct {
	JobID uuid.UUID `json:"job_id"`
}

// Today returns today's reflection. When none exists yet a generation job is
// queued and 202 is returned with its ID.
func (h *InsightHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := h.insights.Today()

	in, err := h.insights.GetForDay(ctx, day)
	if err == nil {
		if in.IsPublished || middleware.GetRole(ctx) == middleware.RoleAdmin {
			writeJSON(w, http.StatusOK, in)
			return
		}
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Today's insight is not published yet", r))
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		handleServiceError(w, r, err)
		return
	}

	key := "insight_job:" + day
	var pending pendingJob
	if ok, cerr := h.cache.Get(ctx, key, &pending); cerr == nil && ok {
		writeJSON(w, http.StatusAccepted, pending)
		return
	}

	job, err := h.jobs.SubmitInsightGeneration(ctx, middleware.GetUserID(ctx))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	pending = pendingJob{JobID: job.ID}
	if err := h.cache.Set(ctx, key, pending, pendingJobTTL); err != nil {
		log.Printf("handlers: remember pending insight job: %v", err)
	}
	writeJSON(w, http.StatusAccepted, pending)
}

// Generate queues a weekly generation. Admin only.
func (h *InsightHandler) Generate(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.SubmitInsightGeneration(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID, "status": job.Status})
}

// Publish marks a day's insight visible. Admin only.
func (h *InsightHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := time.Parse(models.DayLayout, id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_ID", "Insight id must be a YYYY-MM-DD day", r))
		return
	}
	if err := h.insights.MarkPublished(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_published": true})
}

type JobHandler struct {
	jobs JobService
}

func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	job, err := h.jobs.Get(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx) == middleware.RoleAdmin, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
