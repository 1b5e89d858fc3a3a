package handlers

import (
	"context"
	"net/http"

	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/services"
)

type QuizService interface {
	Start(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)
	State(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)
	ToggleOption(ctx context.Context, userID string, ref services.LectureRef, index int) (*services.QuizView, error)
	Submit(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)
	Next(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)
	Restart(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)
}

type QuizHandler struct {
	quizzes QuizService
}

func NewQuizHandler(quizzes QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

type quizOp func(ctx context.Context, userID string, ref services.LectureRef) (*services.QuizView, error)

func (h *QuizHandler) run(w http.ResponseWriter, r *http.Request, op quizOp) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	v, err := op(r.Context(), middleware.GetUserID(r.Context()), ref)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request)   { h.run(w, r, h.quizzes.Start) }
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request)     { h.run(w, r, h.quizzes.State) }
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request)  { h.run(w, r, h.quizzes.Submit) }
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request)    { h.run(w, r, h.quizzes.Next) }
func (h *QuizHandler) Restart(w http.ResponseWriter, r *http.Request) { h.run(w, r, h.quizzes.Restart) }

func (h *QuizHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ref, ok := lectureRef(w, r)
	if !ok {
		return
	}
	var req models.ToggleOptionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	v, err := h.quizzes.ToggleOption(r.Context(), middleware.GetUserID(r.Context()), ref, *req.Index)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
