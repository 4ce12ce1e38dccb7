package jobs

import (
	"context"
	"log"

	"github.com/mementolab/recall/internal/telemetry"
)

// CleanupService deletes records older than the given age in days.
type CleanupService interface {
	Cleanup(ctx context.Context, maxAgeDays int) (int64, error)
}

// RetentionSweeper enforces the store's retention window: each sweep deletes
// records older than maxAgeDays.
type RetentionSweeper struct {
	service    CleanupService
	maxAgeDays int
}

// NewRetentionSweeper creates a new RetentionSweeper instance
func NewRetentionSweeper(service CleanupService, maxAgeDays int) *RetentionSweeper {
	return &RetentionSweeper{
		service:    service,
		maxAgeDays: maxAgeDays,
	}
}

// Sweep implements the Sweeper interface
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	deleted, err := s.service.Cleanup(ctx, s.maxAgeDays)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		return err
	}
	if deleted > 0 {
		log.Printf("retention_sweep: deleted %d records older than %d days", deleted, s.maxAgeDays)
	}
	return nil
}
