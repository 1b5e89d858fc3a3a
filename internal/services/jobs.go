package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
}

// EnqueueFunc hands a persisted job to the worker queue.
type EnqueueFunc func(ctx context.Context, job *models.Job) error

type JobService struct {
	jobs    JobStore
	enqueue EnqueueFunc
}

func NewJobService(jobs JobStore, enqueue EnqueueFunc) *JobService {
	return &JobService{jobs: jobs, enqueue: enqueue}
}

// SubmitInsightGeneration records a pending job and queues it.
func (s *JobService) SubmitInsightGeneration(ctx context.Context, userID string) (*models.Job, error) {
	job := &models.Job{UserID: userID, Type: models.JobTypeInsightGeneration}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.enqueue(ctx, job); err != nil {
		s.jobs.UpdateError(ctx, job.ID, err.Error())
		s.jobs.UpdateStatus(ctx, job.ID, "failed")
		return nil, err
	}
	return job, nil
}

// Get returns a job to its submitter or an admin.
func (s *JobService) Get(ctx context.Context, userID string, isAdmin bool, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Job not found"}
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.UserID != userID && !isAdmin {
		return nil, &NotFoundError{Message: "Job not found"}
	}
	return job, nil
}
