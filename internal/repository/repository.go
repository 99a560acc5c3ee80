// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/database"
	"github.com/FajarFE/Waterm-sub001/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// MonitoringRepository defines the interface for monitoring device records
type MonitoringRepository interface {
	database.Repository
	Create(ctx context.Context, monitoring *models.Monitoring) error
	Get(ctx context.Context, id string) (*models.Monitoring, error)
	GetByDeviceCode(ctx context.Context, deviceCode string) (*models.Monitoring, error)
	Update(ctx context.Context, monitoring *models.Monitoring) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, userID string, offset, limit int) ([]*models.Monitoring, error)
}

// SampleRepository defines the interface for persisted water-quality samples
type SampleRepository interface {
	database.Repository
	InsertSample(ctx context.Context, sample *models.Sample) error
	ListByMonitoring(ctx context.Context, monitoringID string, start, end time.Time, limit int) ([]*models.Sample, error)
	GetLatestByMonitoring(ctx context.Context, monitoringID string) (*models.Sample, error)
	DeleteOldSamples(ctx context.Context, before time.Time) error
	DeleteByMonitoringID(ctx context.Context, monitoringID string) error
}
