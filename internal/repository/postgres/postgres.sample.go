// FilePath: internal/repository/postgres/postgres.sample.go
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

type SampleRepo struct {
	PostgresBaseRepo
}

func NewSampleRepository(db database.DB) (*SampleRepo, error) {
	repo := &SampleRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SampleRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id TEXT PRIMARY KEY,
			monitoring_id TEXT NOT NULL,
			temperature_water DOUBLE PRECISION NOT NULL,
			ph_water DOUBLE PRECISION NOT NULL,
			turbidity_water DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_monitoring_created
			ON samples(monitoring_id, created_at DESC)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize samples schema", err)
		}
	}
	return nil
}

func (r *SampleRepo) InsertSample(ctx context.Context, sample *models.Sample) error {
	if sample.ID == "" {
		sample.ID = nuts.NID("smp", 12)
	}
	query := `
		INSERT INTO samples (
			id, monitoring_id, temperature_water, ph_water, turbidity_water, created_at
		) VALUES (
			:id, :monitoring_id, :temperature_water, :ph_water, :turbidity_water, :created_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, sample)
	if err != nil {
		return errors.NewDatabaseError("failed to insert sample", err)
	}
	return nil
}

func (r *SampleRepo) ListByMonitoring(ctx context.Context, monitoringID string, start, end time.Time, limit int) ([]*models.Sample, error) {
	samples := []*models.Sample{}
	query := `
		SELECT * FROM samples
		WHERE monitoring_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT $4`

	err := r.db.GetDB().SelectContext(ctx, &samples, query, monitoringID, start, end, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list samples", err)
	}
	return samples, nil
}

func (r *SampleRepo) GetLatestByMonitoring(ctx context.Context, monitoringID string) (*models.Sample, error) {
	sample := &models.Sample{}
	query := `
		SELECT * FROM samples
		WHERE monitoring_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, sample, query, monitoringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no samples for monitoring", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest sample", err)
	}
	return sample, nil
}

func (r *SampleRepo) DeleteOldSamples(ctx context.Context, before time.Time) error {
	query := `DELETE FROM samples WHERE created_at < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return errors.NewDatabaseError("failed to delete old samples", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[SampleRepo] Deleted %d samples older than %v", rows, before)
	return nil
}

func (r *SampleRepo) DeleteByMonitoringID(ctx context.Context, monitoringID string) error {
	query := `DELETE FROM samples WHERE monitoring_id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, monitoringID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete samples", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[SampleRepo] Deleted %d samples for monitoring %s", rows, monitoringID)
	return nil
}
