package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/FajarFE/Waterm-sub001/api/middleware"
	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// MonitoringHandlers encapsulates the monitoring-device HTTP handlers
type MonitoringHandlers struct {
	service *service.Service
}

func (h *MonitoringHandlers) CreateMonitoring(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, ok := middleware.UserID(r)
	if !ok {
		respondWithError(w, errors.NewAuthError("no user context", nil).WithRequestID(requestID))
		return
	}

	var monitoring models.Monitoring
	if err := json.NewDecoder(r.Body).Decode(&monitoring); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if monitoring.Name == "" || monitoring.DeviceCode == "" {
		respondWithError(w, errors.NewValidationError("name and device_code are required", nil).WithRequestID(requestID))
		return
	}

	monitoring.UserID = userID
	if err := h.service.CreateMonitoring(r.Context(), &monitoring); err != nil {
		respondWithError(w, errors.NewInternalError("failed to create monitoring", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, monitoring)
}

func (h *MonitoringHandlers) ListMonitorings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, ok := middleware.UserID(r)
	if !ok {
		respondWithError(w, errors.NewAuthError("no user context", nil).WithRequestID(requestID))
		return
	}

	offset, limit := parsePagination(r)
	monitorings, err := h.service.ListMonitorings(r.Context(), userID, offset, limit)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list monitorings", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, monitorings)
}

func (h *MonitoringHandlers) GetMonitoring(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	monitoring, ok := h.ownedMonitoring(w, r, requestID)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, monitoring)
}

func (h *MonitoringHandlers) UpdateMonitoring(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	existing, ok := h.ownedMonitoring(w, r, requestID)
	if !ok {
		return
	}

	var update models.Monitoring
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	update.ID = existing.ID
	update.UserID = existing.UserID
	if err := h.service.UpdateMonitoring(r.Context(), &update); err != nil {
		respondWithError(w, errors.NewInternalError("failed to update monitoring", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, update)
}

func (h *MonitoringHandlers) DeleteMonitoring(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	monitoring, ok := h.ownedMonitoring(w, r, requestID)
	if !ok {
		return
	}

	if err := h.service.DeleteMonitoring(r.Context(), monitoring.ID); err != nil {
		respondWithError(w, errors.NewInternalError("failed to delete monitoring", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedMonitoring loads the monitoring record from the path and checks it
// belongs to the authenticated user
func (h *MonitoringHandlers) ownedMonitoring(w http.ResponseWriter, r *http.Request, requestID string) (*models.Monitoring, bool) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondWithError(w, errors.NewAuthError("no user context", nil).WithRequestID(requestID))
		return nil, false
	}

	id := mux.Vars(r)["id"]
	monitoring, err := h.service.GetMonitoring(r.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("monitoring not found", err).WithRequestID(requestID))
		} else {
			respondWithError(w, errors.NewInternalError("failed to get monitoring", err).WithRequestID(requestID))
		}
		return nil, false
	}
	if monitoring.UserID != userID {
		respondWithError(w, errors.NewAuthorizationError("monitoring belongs to another user", nil).WithRequestID(requestID))
		return nil, false
	}
	return monitoring, true
}

func parsePagination(r *http.Request) (offset, limit int) {
	query := r.URL.Query()
	offset, _ = strconv.Atoi(query.Get("offset"))
	limit, _ = strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
