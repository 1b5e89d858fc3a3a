package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/quiz"
	"ofuq-backend/internal/repository"
	"ofuq-backend/internal/services"
	"ofuq-backend/internal/studytimer"
	"ofuq-backend/internal/validation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func errorRespWithPointer(code, message, pointer string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Pointer = pointer
	return resp
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		if e.Pointer != "" || len(e.Fields) == 0 {
			writeJSON(w, http.StatusBadRequest, errorRespWithPointer("VALIDATION_ERROR", e.Error(), e.Pointer, r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
		return
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
		return
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
		return
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
		return
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
		return
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.Message, r))
		return
	}

	switch {
	case errors.Is(err, quiz.ErrOptionOutOfRange):
		writeJSON(w, http.StatusBadRequest, errorRespWithPointer("VALIDATION_ERROR", err.Error(), "/index", r))
	case errors.Is(err, studytimer.ErrInvalidTransition),
		errors.Is(err, studytimer.ErrSaveInProgress),
		errors.Is(err, studytimer.ErrAlreadySaved),
		errors.Is(err, studytimer.ErrClosed),
		errors.Is(err, quiz.ErrEmptySelection),
		errors.Is(err, quiz.ErrNotSubmitted),
		errors.Is(err, quiz.ErrAlreadySubmitted),
		errors.Is(err, quiz.ErrFinished),
		errors.Is(err, quiz.ErrRunBusy):
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", err.Error(), r))
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Resource not found", r))
	default:
		log.Printf("handlers: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_JSON", "Request body must be valid JSON", r))
		return false
	}
	if fields := validation.Struct(dst); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return false
	}
	return true
}

// uuidParam parses a chi URL param, writing a 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_ID", "Invalid "+name, r))
		return uuid.Nil, false
	}
	return id, true
}

func lectureRef(w http.ResponseWriter, r *http.Request) (services.LectureRef, bool) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return services.LectureRef{}, false
	}
	sid, ok := uuidParam(w, r, "sid")
	if !ok {
		return services.LectureRef{}, false
	}
	lid, ok := uuidParam(w, r, "lid")
	if !ok {
		return services.LectureRef{}, false
	}
	return services.LectureRef{WorkspaceID: wid, SubjectID: sid, LectureID: lid}, true
}
