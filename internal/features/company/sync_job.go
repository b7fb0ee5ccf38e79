package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/pkg/registry"
)

// SyncBatchSize caps how many companies one RegistrySyncJob run refreshes.
const SyncBatchSize = 50

// RegistrySyncJob refreshes stored companies whose registry data is missing or stale.
type RegistrySyncJob struct {
	db       *gorm.DB
	registry RegistryLookup
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistrySyncJob creates the job. Records synced within maxAge are skipped.
func NewRegistrySyncJob(db *gorm.DB, lookup RegistryLookup, maxAge time.Duration, logger *slog.Logger) *RegistrySyncJob {
	return &RegistrySyncJob{
		db:       db,
		registry: lookup,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}
}

// Name returns the job name.
func (j *RegistrySyncJob) Name() string {
	return "registry_sync"
}

// Execute refreshes one batch of stale companies.
func (j *RegistrySyncJob) Execute(ctx context.Context) error {
	db := j.db.WithContext(ctx)
	now := j.now()

	companies, err := ListStale(db, now.Add(-j.maxAge), SyncBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale companies: %w", err)
	}
	if len(companies) == 0 {
		return nil
	}

	var synced, missing, failed int
	for _, company := range companies {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		record, err := j.registry.Refresh(ctx, company.TaxID)
		switch {
		case err == nil:
			if _, err := ApplyRegistry(db, company.ID, record, now); err != nil {
				return fmt.Errorf("failed to apply registry data for %s: %w", company.ID, err)
			}
			synced++
		case errors.Is(err, registry.ErrNotFound):
			if err := TouchSynced(db, company.ID, now); err != nil {
				return fmt.Errorf("failed to record sync for %s: %w", company.ID, err)
			}
			missing++
		default:
			j.logger.Warn("registry sync skipped company",
				slog.String("company_id", company.ID.String()),
				slog.String("tax_id", company.TaxID),
				slog.String("error", err.Error()),
			)
			failed++
		}
	}

	j.logger.Info("registry sync completed",
		slog.Int("synced", synced),
		slog.Int("not_found", missing),
		slog.Int("failed", failed),
	)
	return nil
}
