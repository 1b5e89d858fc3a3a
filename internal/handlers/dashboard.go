package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ofuq-backend/internal/analytics"
	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
)

type WorkspaceAuthorizer interface {
	Authorize(ctx context.Context, userID string, workspaceID uuid.UUID) (*models.Workspace, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, workspaceID uuid.UUID, userID string, period analytics.Period) (*analytics.Dashboard, error)
}

type DashboardHandler struct {
	workspaces WorkspaceAuthorizer
	dashboards DashboardService
}

func NewDashboardHandler(workspaces WorkspaceAuthorizer, dashboards DashboardService) *DashboardHandler {
	return &DashboardHandler{workspaces: workspaces, dashboards: dashboards}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	wid, ok := uuidParam(w, r, "wid")
	if !ok {
		return
	}
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"period": "period must be one of 7D, 30D, 90D"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if _, err := h.workspaces.Authorize(r.Context(), userID, wid); err != nil {
		handleServiceError(w, r, err)
		return
	}

	d, err := h.dashboards.Dashboard(r.Context(), wid, userID, period)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
