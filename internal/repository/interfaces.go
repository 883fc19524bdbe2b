package repository

import (
	"context"
	"time"

	"github.com/pulseapp/pulse/internal/models"
)

// MemberRepository defines the interface for member activity data operations
type MemberRepository interface {
	// UpsertBatch writes members keyed on (company_id, member_id),
	// fully overwriting existing rows. Returns the number written.
	UpsertBatch(ctx context.Context, members []*models.Member) (int, error)

	// Upsert writes one member, falling back to the existing row's
	// identity fields when the new record omits them. Used by the
	// single-record webhook path.
	Upsert(ctx context.Context, member *models.Member) (*models.Member, error)

	Get(ctx context.Context, companyID, memberID string) (*models.Member, error)
	GetByCompany(ctx context.Context, companyID string) ([]*models.Member, error)

	// MarkInvalid retains the row but zeroes its engagement
	MarkInvalid(ctx context.Context, companyID, memberID string) error

	// TouchLogin bumps last_login and updated_at, best effort
	TouchLogin(ctx context.Context, companyID, memberID string, at time.Time) error

	Stats(ctx context.Context, companyID string) (*models.MemberStats, error)
}

// HistoryRepository defines the interface for engagement history snapshots
type HistoryRepository interface {
	// InsertSnapshotBatch inserts one snapshot row per member for the
	// given calendar day. Rows that already exist for that day are left
	// untouched; the returned count is the day's total row count after
	// the insert, so a repeat call reports the existing batch.
	InsertSnapshotBatch(ctx context.Context, snapshots []*models.HistorySnapshot) (int, error)

	CountForDay(ctx context.Context, companyID string, day time.Time) (int, error)

	// GetDaySnapshot returns the snapshot batch recorded on the given day
	GetDaySnapshot(ctx context.Context, companyID string, day time.Time) ([]*models.HistorySnapshot, error)

	// GetDailyTrends returns day-grouped aggregates for the trailing
	// window, oldest first
	GetDailyTrends(ctx context.Context, companyID string, since time.Time) ([]*models.TrendPoint, error)

	// DeleteOlderThan purges snapshots past the retention window and
	// returns the number removed
	DeleteOlderThan(ctx context.Context, companyID string, cutoff time.Time) (int64, error)
}
