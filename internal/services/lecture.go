package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ofuq-backend/internal/lectureimport"
	"ofuq-backend/internal/metrics"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type LectureStore interface {
	Create(ctx context.Context, l *models.Lecture) error
	GetByID(ctx context.Context, subjectID, id uuid.UUID) (*models.Lecture, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*models.Lecture, error)
}

type LectureService struct {
	workspaces *WorkspaceService
	lectures   LectureStore
	validator  *lectureimport.Validator
}

func NewLectureService(workspaces *WorkspaceService, lectures LectureStore, validator *lectureimport.Validator) *LectureService {
	return &LectureService{workspaces: workspaces, lectures: lectures, validator: validator}
}

// Validate checks an import payload without storing it.
func (s *LectureService) Validate(raw []byte) (*models.LectureImport, error) {
	lec, err := s.validator.Validate(raw)
	if err != nil {
		var ie *lectureimport.Error
		if errors.As(err, &ie) {
			return nil, &ValidationError{Message: ie.Message, Pointer: ie.Pointer}
		}
		return nil, err
	}
	return lec, nil
}

// Import validates raw and stores it under the subject. Owner only.
func (s *LectureService) Import(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID, raw []byte) (*models.Lecture, error) {
	if _, err := s.workspaces.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.workspaces.subject(ctx, workspaceID, subjectID); err != nil {
		return nil, err
	}

	imp, err := s.Validate(raw)
	if err != nil {
		metrics.LectureImports.WithLabelValues("rejected").Inc()
		return nil, err
	}

	lec := &models.Lecture{
		WorkspaceID: workspaceID,
		SubjectID:   subjectID,
		Title:       imp.Title,
		Intro:       imp.Intro,
		Quiz:        imp.Quiz,
	}
	if err := s.lectures.Create(ctx, lec); err != nil {
		return nil, fmt.Errorf("store lecture: %w", err)
	}
	metrics.LectureImports.WithLabelValues("accepted").Inc()
	return lec, nil
}

func (s *LectureService) List(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID) ([]*models.Lecture, error) {
	if _, err := s.workspaces.GetSubject(ctx, userID, workspaceID, subjectID); err != nil {
		return nil, err
	}
	return s.lectures.ListBySubject(ctx, subjectID)
}

// Get checks membership and returns the full lecture with its quiz.
func (s *LectureService) Get(ctx context.Context, userID string, workspaceID, subjectID, lectureID uuid.UUID) (*models.Lecture, error) {
	if _, err := s.workspaces.GetSubject(ctx, userID, workspaceID, subjectID); err != nil {
		return nil, err
	}
	lec, err := s.lectures.GetByID(ctx, subjectID, lectureID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Lecture not found"}
		}
		return nil, fmt.Errorf("get lecture: %w", err)
	}
	return lec, nil
}
