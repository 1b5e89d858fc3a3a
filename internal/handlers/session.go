package handlers

import (
	"context"
	"errors"
	"net/http"

	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/services"
	"ofuq-backend/internal/studytimer"
)

type StudyService interface {
	Start(ctx context.Context, userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	Pause(userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	Resume(userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	Stop(ctx context.Context, userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	RetrySave(ctx context.Context, userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	Snapshot(userID string, ref services.LectureRef) (studytimer.Snapshot, error)
	Discard(userID string, ref services.LectureRef) error
}

type SessionHandler struct {
	study StudyService
}

func NewSessionHandler(study StudyService) *SessionHandler {
	return &SessionHandler{study: study}
}

// saveFailedResponse carries the completed snapshot alongside the error so
// the client can offer a retry.
type saveFailedResponse struct {
	models.ErrorResponse
	Session studytimer.Snapshot `json:"session"`
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, snap studytimer.Snapshot, err error) {
	var se *studytimer.SaveError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusServiceUnavailable, saveFailedResponse{
			ErrorResponse: errorResp("SESSION_SAVE_FAILED", "Your study session could not be saved. Please try again.", r),
			Session:       snap,
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.Start(r.Context(), middleware.GetUserID(r.Context()), ref)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.Pause(middleware.GetUserID(r.Context()), ref)
	h.respond(w, r, snap, err)
}

func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.Resume(middleware.GetUserID(r.Context()), ref)
	h.respond(w, r, snap, err)
}

func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.Stop(r.Context(), middleware.GetUserID(r.Context()), ref)
	h.respond(w, r, snap, err)
}

func (h *SessionHandler) RetrySave(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.RetrySave(r.Context(), middleware.GetUserID(r.Context()), ref)
	h.respond(w, r, snap, err)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	snap, err := h.study.Snapshot(middleware.GetUserID(r.Context()), ref)
	h.respond(w, r, snap, err)
}

func (h *SessionHandler) Discard(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	if err := h.study.Discard(middleware.GetUserID(r.Context()), ref); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
