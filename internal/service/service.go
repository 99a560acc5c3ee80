package service

import (
	"context"

	"github.com/FajarFE/Waterm-sub001/internal/database"
	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/registry"
	"github.com/FajarFE/Waterm-sub001/internal/repository"
	"github.com/FajarFE/Waterm-sub001/internal/token"
	"github.com/redis/go-redis/v9"
)

// Service contains all repositories and service-wide dependencies
type Service struct {
	monitorings repository.MonitoringRepository
	samples     repository.SampleRepository
	registry    *registry.CachedRegistry
	issuer      *token.Issuer
	db          database.DB
	rdb         *redis.Client
}

// New creates a new service instance. registry may be nil when no redis cache
// is wired; invalidation is then a no-op.
func New(
	monitorings repository.MonitoringRepository,
	samples repository.SampleRepository,
	reg *registry.CachedRegistry,
	issuer *token.Issuer,
	db database.DB,
	rdb *redis.Client,
) *Service {
	return &Service{
		monitorings: monitorings,
		samples:     samples,
		registry:    reg,
		issuer:      issuer,
		db:          db,
		rdb:         rdb,
	}
}

// Validate checks if all required dependencies are initialized
func (s *Service) Validate() error {
	if s.monitorings == nil {
		return ErrMissingDependency("monitorings")
	}
	if s.samples == nil {
		return ErrMissingDependency("samples")
	}
	if s.issuer == nil {
		return ErrMissingDependency("issuer")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}

// HealthCheck pings the service's backing stores
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return errors.NewDatabaseError("postgres unreachable", err)
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return errors.NewInternalError("redis unreachable", err)
		}
	}
	return nil
}

// IssueSocketToken mints a short-lived socket token for the given user
func (s *Service) IssueSocketToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.NewValidationError("userId is required", nil)
	}
	return s.issuer.Issue(userID)
}
