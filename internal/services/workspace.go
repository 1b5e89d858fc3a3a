package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type WorkspaceStore interface {
	Create(ctx context.Context, w *models.Workspace, subjectNames []string) ([]*models.Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Workspace, error)
	AddMember(ctx context.Context, workspaceID uuid.UUID, userID string) error
	IsMember(ctx context.Context, workspaceID uuid.UUID, userID string) (bool, error)
}

type SubjectStore interface {
	Create(ctx context.Context, s *models.Subject) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Subject, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Subject, error)
	Rename(ctx context.Context, workspaceID, id uuid.UUID, name string) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}

// WorkspaceService owns workspaces, their subjects and access rules: owners
// write, members read and study.
type WorkspaceService struct {
	workspaces  WorkspaceStore
	subjects    SubjectStore
	frontendURL string
}

func NewWorkspaceService(workspaces WorkspaceStore, subjects SubjectStore, frontendURL string) *WorkspaceService {
	return &WorkspaceService{
		workspaces:  workspaces,
		subjects:    subjects,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type WorkspaceWithSubjects struct {
	*models.Workspace
	Subjects []*models.Subject `json:"subjects"`
}

func (s *WorkspaceService) Create(ctx context.Context, userID string, req models.CreateWorkspaceRequest) (*WorkspaceWithSubjects, error) {
	names := make([]string, 0, len(req.Subjects))
	seen := make(map[string]bool, len(req.Subjects))
	for _, n := range req.Subjects {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, n)
	}

	w := &models.Workspace{OwnerID: userID, Name: strings.TrimSpace(req.Name)}
	subjects, err := s.workspaces.Create(ctx, w, names)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w.Role = "owner"
	return &WorkspaceWithSubjects{Workspace: w, Subjects: subjects}, nil
}

func (s *WorkspaceService) List(ctx context.Context, userID string) ([]*models.Workspace, error) {
	return s.workspaces.ListForUser(ctx, userID)
}

// Authorize loads the workspace and resolves the caller's role. Non-members
// get a ForbiddenError.
func (s *WorkspaceService) Authorize(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error) {
	w, err := s.load(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID == userID {
		w.Role = "owner"
		return w, nil
	}

	member, err := s.workspaces.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, &ForbiddenError{Message: "You are not a member of this workspace"}
	}
	w.Role = "member"
	return w, nil
}

// AuthorizeOwner is Authorize restricted to the owner.
func (s *WorkspaceService) AuthorizeOwner(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error) {
	w, err := s.Authorize(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if w.Role != "owner" {
		return nil, &ForbiddenError{Message: "Only the workspace owner can do this"}
	}
	return w, nil
}

func (s *WorkspaceService) load(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error) {
	w, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Workspace not found"}
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

// Join adds the caller as a read-only member. Joining twice, or joining an
// owned workspace, changes nothing.
func (s *WorkspaceService) Join(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error) {
	w, err := s.load(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID == userID {
		w.Role = "owner"
		return w, nil
	}
	if err := s.workspaces.AddMember(ctx, workspaceID, userID); err != nil {
		return nil, fmt.Errorf("join workspace: %w", err)
	}
	w.Role = "member"
	return w, nil
}

func (s *WorkspaceService) ShareLink(ctx context.Context, userID string, workspaceID uuid.UUID) (string, error) {
	if _, err := s.Authorize(ctx, userID, workspaceID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/workspaces/join/%s", s.frontendURL, workspaceID), nil
}

// Subjects

func (s *WorkspaceService) ListSubjects(ctx context.Context, userID string, workspaceID uuid.UUID) ([]*models.Subject, error) {
	if _, err := s.Authorize(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.subjects.ListByWorkspace(ctx, workspaceID)
}

// GetSubject checks membership and that the subject belongs to the workspace.
func (s *WorkspaceService) GetSubject(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID) (*models.Subject, error) {
	if _, err := s.Authorize(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.subject(ctx, workspaceID, subjectID)
}

func (s *WorkspaceService) subject(ctx context.Context, workspaceID, subjectID uuid.UUID) (*models.Subject, error) {
	sub, err := s.subjects.GetByID(ctx, workspaceID, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Subject not found"}
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return sub, nil
}

func (s *WorkspaceService) CreateSubject(ctx context.Context, userID string, workspaceID uuid.UUID, name string) (*models.Subject, error) {
	if _, err := s.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	sub := &models.Subject{WorkspaceID: workspaceID, Name: strings.TrimSpace(name)}
	if err := s.subjects.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return sub, nil
}

func (s *WorkspaceService) RenameSubject(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID, name string) (*models.Subject, error) {
	if _, err := s.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	if err := s.subjects.Rename(ctx, workspaceID, subjectID, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Subject not found"}
		}
		return nil, fmt.Errorf("rename subject: %w", err)
	}
	return s.subject(ctx, workspaceID, subjectID)
}

func (s *WorkspaceService) DeleteSubject(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID) error {
	if _, err := s.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return err
	}
	if err := s.subjects.Delete(ctx, workspaceID, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Message: "Subject not found"}
		}
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
