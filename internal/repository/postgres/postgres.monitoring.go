// FilePath: internal/repository/postgres/postgres.monitoring.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/database"
	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type MonitoringRepo struct {
	PostgresBaseRepo
}

func NewMonitoringRepository(db database.DB) (*MonitoringRepo, error) {
	repo := &MonitoringRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MonitoringRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS monitorings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			device_code TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monitorings_device_code
			ON monitorings(device_code)`,
		`CREATE INDEX IF NOT EXISTS idx_monitorings_user
			ON monitorings(user_id, created_at DESC)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize monitorings schema", err)
		}
	}
	return nil
}

func (r *MonitoringRepo) Create(ctx context.Context, monitoring *models.Monitoring) error {
	if monitoring.ID == "" {
		monitoring.ID = nuts.NID("mon", 12)
	}
	now := time.Now()
	monitoring.CreatedAt = now
	monitoring.UpdatedAt = now

	query := `
		INSERT INTO monitorings (
			id, user_id, name, device_code, location, created_at, updated_at
		) VALUES (
			:id, :user_id, :name, :device_code, :location, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, monitoring)
	if err != nil {
		return errors.NewDatabaseError("failed to create monitoring", err)
	}
	return nil
}

func (r *MonitoringRepo) Get(ctx context.Context, id string) (*models.Monitoring, error) {
	monitoring := &models.Monitoring{}
	query := `SELECT * FROM monitorings WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, monitoring, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("monitoring not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get monitoring", err)
	}
	return monitoring, nil
}

func (r *MonitoringRepo) GetByDeviceCode(ctx context.Context, deviceCode string) (*models.Monitoring, error) {
	monitoring := &models.Monitoring{}
	query := `SELECT * FROM monitorings WHERE device_code = $1 ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, monitoring, query, deviceCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("monitoring not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get monitoring by device code", err)
	}
	return monitoring, nil
}

func (r *MonitoringRepo) Update(ctx context.Context, monitoring *models.Monitoring) error {
	monitoring.UpdatedAt = time.Now()
	query := `
		UPDATE monitorings SET
			name = :name,
			device_code = :device_code,
			location = :location,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, monitoring)
	if err != nil {
		return errors.NewDatabaseError("failed to update monitoring", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("monitoring not found", nil)
	}

	return nil
}

func (r *MonitoringRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM monitorings WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete monitoring", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("monitoring not found", nil)
	}

	return nil
}

func (r *MonitoringRepo) List(ctx context.Context, userID string, offset, limit int) ([]*models.Monitoring, error) {
	monitorings := []*models.Monitoring{}
	query := `
		SELECT * FROM monitorings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.GetDB().SelectContext(ctx, &monitorings, query, userID, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list monitorings", err)
	}

	return monitorings, nil
}
