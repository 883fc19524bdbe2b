package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

// StartSnapshotScheduler runs a background loop that writes the daily
// snapshot for the given company once its configured hour passes, then
// purges history past the retention window. The snapshot itself is
// idempotent per day, so the loop can check generously often. It blocks
// until the context is cancelled; launch it in its own goroutine.
func (s *Service) StartSnapshotScheduler(ctx context.Context, companyID string) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	s.logger.Infof("Snapshot scheduler started (hour %02d:00, company %s)", s.snapshotHour, companyID)

	// Guards against a slow run overlapping the next tick
	running := atomic.NewBool(false)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Snapshot scheduler stopped")
			return
		case <-ticker.C:
			if s.now().Hour() < s.snapshotHour {
				continue
			}
			if !running.CAS(false, true) {
				continue
			}
			if err := s.runScheduledSnapshot(ctx, companyID); err != nil {
				s.logger.WithError(err).Error("Scheduled snapshot run failed")
			}
			running.Store(false)
		}
	}
}

func (s *Service) runScheduledSnapshot(ctx context.Context, companyID string) error {
	var errs *multierror.Error

	if result := s.CreateDailySnapshot(ctx, companyID); !result.Success {
		errs = multierror.Append(errs, result.Err())
	}

	if _, err := s.CleanupOldSnapshots(ctx, companyID, s.retentionDays); err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}
