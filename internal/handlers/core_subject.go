package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ofuq-backend/internal/models"
)

type CoreSubjectService interface {
	List(ctx context.Context) ([]*models.CoreSubject, error)
	Create(ctx context.Context, name string) (*models.CoreSubject, error)
	Rename(ctx context.Context, id, name string) (*models.CoreSubject, error)
	Delete(ctx context.Context, id string) error
}

type CoreSubjectHandler struct {
	subjects CoreSubjectService
}

func NewCoreSubjectHandler(subjects CoreSubjectService) *CoreSubjectHandler {
	return &CoreSubjectHandler{subjects: subjects}
}

func (h *CoreSubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.subjects.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": list})
}

func (h *CoreSubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.subjects.Create(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *CoreSubjectHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.subjects.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CoreSubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.subjects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
