// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/monitoring"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Monitorings *MonitoringHandlers
	Samples     *SampleHandlers
	Tokens      *TokenHandlers

	service *service.Service
	metrics *monitoring.Service
}

// NewResources creates a new Resources instance
func NewResources(svc *service.Service, metrics *monitoring.Service) *Resources {
	return &Resources{
		Monitorings: &MonitoringHandlers{service: svc},
		Samples:     &SampleHandlers{service: svc},
		Tokens:      &TokenHandlers{service: svc},
		service:     svc,
		metrics:     metrics,
	}
}

// HealthCheck reports liveness of the service and its backing stores
func (r *Resources) HealthCheck(w http.ResponseWriter, req *http.Request) {
	if err := r.service.HealthCheck(req.Context()); err != nil {
		respondWithError(w, errors.NewInternalError("unhealthy", err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": nuts.GetVersion(),
	})
}

// Metrics exposes the in-process gateway event counters
func (r *Resources) Metrics(w http.ResponseWriter, req *http.Request) {
	respondWithJSON(w, http.StatusOK, r.metrics.Counts())
}

// Helper functions

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
