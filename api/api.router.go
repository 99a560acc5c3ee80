package api

import (
	"net/http"

	"github.com/FajarFE/Waterm-sub001/api/middleware"
	"github.com/FajarFE/Waterm-sub001/api/resources"
	"github.com/FajarFE/Waterm-sub001/internal/gateway"
	"github.com/FajarFE/Waterm-sub001/internal/monitoring"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	"github.com/FajarFE/Waterm-sub001/internal/token"
	"github.com/gorilla/mux"
)

type Router struct {
	router      *mux.Router
	auth        *middleware.TokenMiddleware
	resources   *resources.Resources
	gateway     *gateway.Gateway
	internalKey string
}

func NewRouter(svc *service.Service, metrics *monitoring.Service, gw *gateway.Gateway, issuer *token.Issuer, internalKey string) *Router {
	r := &Router{
		router:      mux.NewRouter(),
		auth:        middleware.NewTokenMiddleware(issuer),
		resources:   resources.NewResources(svc, metrics),
		gateway:     gw,
		internalKey: internalKey,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// The gateway socket endpoint; role and credentials are query parameters
	r.router.HandleFunc("/ws", r.gateway.ServeWS)

	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)

	// Internal routes (web tier only)
	internal := api.PathPrefix("/tokens").Subrouter()
	internal.Use(middleware.RequireInternalKey(r.internalKey))
	internal.HandleFunc("", r.resources.Tokens.IssueToken).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Monitoring devices
	monitorings := protected.PathPrefix("/monitorings").Subrouter()
	monitorings.HandleFunc("", r.resources.Monitorings.ListMonitorings).Methods(http.MethodGet)
	monitorings.HandleFunc("", r.resources.Monitorings.CreateMonitoring).Methods(http.MethodPost)
	monitorings.HandleFunc("/{id}", r.resources.Monitorings.GetMonitoring).Methods(http.MethodGet)
	monitorings.HandleFunc("/{id}", r.resources.Monitorings.UpdateMonitoring).Methods(http.MethodPut)
	monitorings.HandleFunc("/{id}", r.resources.Monitorings.DeleteMonitoring).Methods(http.MethodDelete)
	monitorings.HandleFunc("/{id}/samples", r.resources.Samples.ListSamples).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
