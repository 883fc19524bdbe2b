package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulseapp/pulse/internal/metrics"
	"github.com/pulseapp/pulse/internal/models"
)

// SnapshotResult reports the outcome of one daily snapshot run
type SnapshotResult struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Errors  []OpError `json:"errors,omitempty"`
}

// Err folds the result's errors into one error, or nil on success
func (r SnapshotResult) Err() error {
	return combine(r.Errors)
}

// dayOf truncates an instant to its calendar day
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateDailySnapshot copies every member's current score and status into
// the history table for today. Uniqueness is enforced by the storage layer
// (one row per member per day), so repeated or concurrent runs for the same
// day report the existing batch instead of duplicating it.
func (s *Service) CreateDailySnapshot(ctx context.Context, companyID string) SnapshotResult {
	if companyID == "" {
		return SnapshotResult{Errors: []OpError{{
			Type:    ErrTypeValidation,
			Message: "company ID is required",
		}}}
	}

	log := s.logger.WithField("company_id", companyID)

	members, err := s.Members.GetByCompany(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch members for snapshot")
		metrics.SnapshotsTotal.WithLabelValues("storage_error").Inc()
		return SnapshotResult{Errors: []OpError{{
			Type:    ErrTypeStorage,
			Message: err.Error(),
		}}}
	}

	if len(members) == 0 {
		log.Info("No members to snapshot")
		metrics.SnapshotsTotal.WithLabelValues("success").Inc()
		return SnapshotResult{Success: true}
	}

	now := s.now()
	day := dayOf(now)

	snapshots := make([]*models.HistorySnapshot, len(members))
	for i, m := range members {
		snapshots[i] = &models.HistorySnapshot{
			CompanyID:       companyID,
			MemberID:        m.MemberID,
			EngagementScore: m.ActivityScore,
			Status:          m.Status,
			SnapshotDay:     day,
			RecordedAt:      now,
		}
	}

	count, err := s.History.InsertSnapshotBatch(ctx, snapshots)
	if err != nil {
		log.WithError(err).Error("Failed to insert snapshot batch")
		metrics.SnapshotsTotal.WithLabelValues("storage_error").Inc()
		return SnapshotResult{Errors: []OpError{{
			Type:    ErrTypeStorage,
			Message: err.Error(),
		}}}
	}

	log.Infof("Snapshot recorded: %d members for %s", count, day.Format("2006-01-02"))
	metrics.SnapshotsTotal.WithLabelValues("success").Inc()

	return SnapshotResult{Success: true, Count: count}
}

// GetHistoricalData returns the trailing window of day-grouped engagement
// aggregates, oldest first. An empty result is valid: callers fall back to
// placeholder visualization until history accumulates.
func (s *Service) GetHistoricalData(ctx context.Context, companyID string, days int) ([]*models.TrendPoint, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company ID is required")
	}

	since := dayOf(s.now()).AddDate(0, 0, -days)
	points, err := s.History.GetDailyTrends(ctx, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical data: %w", err)
	}

	if points == nil {
		points = []*models.TrendPoint{}
	}
	return points, nil
}

// GetComparisonData compares the live member table against the snapshot
// batch recorded seven days ago. With no snapshot for that day the previous
// side equals the current one and every delta is zero: no regression signal
// is reported without enough history.
func (s *Service) GetComparisonData(ctx context.Context, companyID string) (*models.ComparisonData, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company ID is required")
	}

	members, err := s.Members.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current members: %w", err)
	}

	current := models.StatusBreakdown{Total: len(members)}
	scoreSum := 0
	for _, m := range members {
		switch m.Status {
		case models.StatusActive:
			current.Active++
		case models.StatusAtRisk:
			current.AtRisk++
		case models.StatusInactive:
			current.Inactive++
		}
		scoreSum += m.ActivityScore
	}
	if current.Total > 0 {
		current.AvgScore = float64(scoreSum) / float64(current.Total)
	}

	weekAgo := dayOf(s.now()).AddDate(0, 0, -7)
	snapshots, err := s.History.GetDaySnapshot(ctx, companyID, weekAgo)
	if err != nil {
		s.logger.WithError(err).Warn("Could not read week-ago snapshot, reporting no change")
		snapshots = nil
	}

	if len(snapshots) == 0 {
		return &models.ComparisonData{
			Current:  current,
			Previous: current,
			Changes:  models.StatusBreakdown{},
		}, nil
	}

	previous := models.StatusBreakdown{Total: len(snapshots)}
	prevSum := 0
	for _, snap := range snapshots {
		switch snap.Status {
		case models.StatusActive:
			previous.Active++
		case models.StatusAtRisk:
			previous.AtRisk++
		case models.StatusInactive:
			previous.Inactive++
		}
		prevSum += snap.EngagementScore
	}
	previous.AvgScore = float64(prevSum) / float64(previous.Total)

	return &models.ComparisonData{
		Current:  current,
		Previous: previous,
		Changes:  current.Sub(previous),
	}, nil
}

// CleanupOldSnapshots purges history rows past the retention window
func (s *Service) CleanupOldSnapshots(ctx context.Context, companyID string, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = s.retentionDays
	}

	cutoff := dayOf(s.now()).AddDate(0, 0, -daysToKeep)
	deleted, err := s.History.DeleteOlderThan(ctx, companyID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up snapshots: %w", err)
	}

	if deleted > 0 {
		s.logger.Infof("Purged %d history rows older than %s for company %s",
			deleted, cutoff.Format("2006-01-02"), companyID)
	}
	return deleted, nil
}
