package service

import (
	"context"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// CreateMonitoring registers a new monitoring device record
func (s *Service) CreateMonitoring(ctx context.Context, monitoring *models.Monitoring) error {
	return s.monitorings.Create(ctx, monitoring)
}

// GetMonitoring returns a monitoring record by id
func (s *Service) GetMonitoring(ctx context.Context, id string) (*models.Monitoring, error) {
	return s.monitorings.Get(ctx, id)
}

// ListMonitorings returns a user's monitoring records
func (s *Service) ListMonitorings(ctx context.Context, userID string, offset, limit int) ([]*models.Monitoring, error) {
	return s.monitorings.List(ctx, userID, offset, limit)
}

// UpdateMonitoring updates a monitoring record and drops any cached device
// code resolution, since the code may have changed
func (s *Service) UpdateMonitoring(ctx context.Context, monitoring *models.Monitoring) error {
	previous, err := s.monitorings.Get(ctx, monitoring.ID)
	if err != nil {
		return err
	}

	if err := s.monitorings.Update(ctx, monitoring); err != nil {
		return err
	}

	if s.registry != nil {
		s.registry.Invalidate(ctx, previous.DeviceCode)
		if monitoring.DeviceCode != previous.DeviceCode {
			s.registry.Invalidate(ctx, monitoring.DeviceCode)
		}
	}
	return nil
}

// DeleteMonitoring removes a monitoring record together with its persisted
// samples
func (s *Service) DeleteMonitoring(ctx context.Context, id string) error {
	monitoring, err := s.monitorings.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.samples.DeleteByMonitoringID(ctx, id); err != nil {
		return err
	}
	if err := s.monitorings.Delete(ctx, id); err != nil {
		return err
	}

	if s.registry != nil {
		s.registry.Invalidate(ctx, monitoring.DeviceCode)
	}
	return nil
}

// ListSamples returns persisted samples for a monitoring record
func (s *Service) ListSamples(ctx context.Context, monitoringID string, start, end time.Time, limit int) ([]*models.Sample, error) {
	// Monitoring must exist; surfaces not_found instead of an empty list
	if _, err := s.monitorings.Get(ctx, monitoringID); err != nil {
		return nil, err
	}
	return s.samples.ListByMonitoring(ctx, monitoringID, start, end, limit)
}

// PruneSamples deletes samples older than the retention cutoff
func (s *Service) PruneSamples(ctx context.Context, before time.Time) error {
	err := s.samples.DeleteOldSamples(ctx, before)
	if err != nil {
		nuts.L.Errorf("[Service] Sample retention sweep failed: %v", err)
	}
	return err
}
