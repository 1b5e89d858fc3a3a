package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/services"
)

type WorkspaceService interface {
	Create(ctx context.Context, userID string, req models.CreateWorkspaceRequest) (*services.WorkspaceWithSubjects, error)
	List(ctx context.Context, userID string) ([]*models.Workspace, error)
	Authorize(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error)
	Join(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error)
	ShareLink(ctx context.Context, userID string, workspaceID uuid.UUID) (string, error)
	ListSubjects(ctx context.Context, userID string, workspaceID uuid.UUID) ([]*models.Subject, error)
	CreateSubject(ctx context.Context, userID string, workspaceID uuid.UUID, name string) (*models.Subject, error)
	RenameSubject(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID, name string) (*models.Subject, error)
	DeleteSubject(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID) error
}

type WorkspaceHandler struct {
	workspaces WorkspaceService
}

func NewWorkspaceHandler(workspaces WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWorkspaceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ws, err := h.workspaces.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.workspaces.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": list})
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	ws, err := h.workspaces.Authorize(r.Context(), middleware.GetUserID(r.Context()), wid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Join(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	ws, err := h.workspaces.Join(r.Context(), middleware.GetUserID(r.Context()), wid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Share(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	link, err := h.workspaces.ShareLink(r.Context(), middleware.GetUserID(r.Context()), wid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *WorkspaceHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	subjects, err := h.workspaces.ListSubjects(r.Context(), middleware.GetUserID(r.Context()), wid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

func (h *WorkspaceHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.workspaces.CreateSubject(r.Context(), middleware.GetUserID(r.Context()), wid, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *WorkspaceHandler) RenameSubject(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	sid, ok := uuidParam(w, r, "sid")
	if !ok {
		return
	}
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.workspaces.RenameSubject(r.Context(), middleware.GetUserID(r.Context()), wid, sid, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *WorkspaceHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	sid, ok := uuidParam(w, r, "sid")
	if !ok {
		return
	}
	if err := h.workspaces.DeleteSubject(r.Context(), middleware.GetUserID(r.Context()), wid, sid); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
