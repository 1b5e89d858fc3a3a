package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
)

type LectureService interface {
	Validate(raw []byte) (*models.LectureImport, error)
	Import(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID, raw []byte) (*models.Lecture, error)
	List(ctx context.Context, userID string, workspaceID, subjectID uuid.UUID) ([]*models.Lecture, error)
	Get(ctx context.Context, userID string, workspaceID, subjectID, lectureID uuid.UUID) (*models.Lecture, error)
}

type LectureHandler struct {
	lectures LectureService
}

func NewLectureHandler(lectures LectureService) *LectureHandler {
	return &LectureHandler{lectures: lectures}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("BODY_TOO_LARGE", "Request body is too large", r))
		return nil, false
	}
	return raw, true
}

// Validate checks a lecture JSON document without storing it.
func (h *LectureHandler) Validate(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	lec, err := h.lectures.Validate(raw)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     true,
		"title":     lec.Title,
		"questions": len(lec.Quiz),
	})
}

func (h *LectureHandler) Import(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	sid, ok := uuidParam(w, r, "sid")
	if !ok {
		return
	}
	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	lec, err := h.lectures.Import(r.Context(), middleware.GetUserID(r.Context()), wid, sid, raw)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lec)
}

func (h *LectureHandler) List(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	sid, ok := uuidParam(w, r, "sid")
	if !ok {
		return
	}

	list, err := h.lectures.List(r.Context(), middleware.GetUserID(r.Context()), wid, sid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lectures": list})
}

func (h *LectureHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}

	lec, err := h.lectures.Get(r.Context(), middleware.GetUserID(r.Context()), ref.WorkspaceID, ref.SubjectID, ref.LectureID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lec)
}
