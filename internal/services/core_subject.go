package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type CoreSubjectStore interface {
	List(ctx context.Context) ([]*models.CoreSubject, error)
	Upsert(ctx context.Context, s *models.CoreSubject) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug lower-cases name and joins its words with "-".
func Slug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

type CoreSubjectService struct {
	store CoreSubjectStore
}

func NewCoreSubjectService(store CoreSubjectStore) *CoreSubjectService {
	return &CoreSubjectService{store: store}
}

func (s *CoreSubjectService) List(ctx context.Context) ([]*models.CoreSubject, error) {
	return s.store.List(ctx)
}

// Create is keyed by slug, so creating "Data Science" twice keeps one entry.
func (s *CoreSubjectService) Create(ctx context.Context, name string) (*models.CoreSubject, error) {
	name = strings.TrimSpace(name)
	cs := &models.CoreSubject{ID: Slug(name), Name: name}
	if err := s.store.Upsert(ctx, cs); err != nil {
		return nil, fmt.Errorf("create core subject: %w", err)
	}
	return cs, nil
}

func (s *CoreSubjectService) Rename(ctx context.Context, id, name string) (*models.CoreSubject, error) {
	name = strings.TrimSpace(name)
	if err := s.store.Rename(ctx, id, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Core subject not found"}
		}
		return nil, fmt.Errorf("rename core subject: %w", err)
	}
	return &models.CoreSubject{ID: id, Name: name}, nil
}

func (s *CoreSubjectService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Message: "Core subject not found"}
		}
		return fmt.Errorf("delete core subject: %w", err)
	}
	return nil
}
