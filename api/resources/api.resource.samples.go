package resources

import (
	"net/http"
	"time"

	"github.com/FajarFE/Waterm-sub001/api/middleware"
	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// SampleHandlers encapsulates the persisted-sample HTTP handlers
type SampleHandlers struct {
	service *service.Service
}

// ListSamples returns persisted samples for a monitoring device, newest
// first, within an optional time range
func (h *SampleHandlers) ListSamples(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, ok := middleware.UserID(r)
	if !ok {
		respondWithError(w, errors.NewAuthError("no user context", nil).WithRequestID(requestID))
		return
	}

	id := mux.Vars(r)["id"]
	monitoring, err := h.service.GetMonitoring(r.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("monitoring not found", err).WithRequestID(requestID))
		} else {
			respondWithError(w, errors.NewInternalError("failed to get monitoring", err).WithRequestID(requestID))
		}
		return
	}
	if monitoring.UserID != userID {
		respondWithError(w, errors.NewAuthorizationError("monitoring belongs to another user", nil).WithRequestID(requestID))
		return
	}

	var filters models.SampleFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	start, end := parseSampleRange(filters)
	limit := filters.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	samples, err := h.service.ListSamples(r.Context(), id, start, end, limit)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list samples", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, samples)
}

func parseSampleRange(filters models.SampleFilters) (start, end time.Time) {
	now := time.Now()

	start = now.Add(-24 * time.Hour) // Default to last 24 hours
	if filters.Start != "" {
		if parsed, err := time.Parse(time.RFC3339, filters.Start); err == nil {
			start = parsed
		}
	}

	end = now
	if filters.End != "" {
		if parsed, err := time.Parse(time.RFC3339, filters.End); err == nil {
			end = parsed
		}
	}

	return start, end
}
