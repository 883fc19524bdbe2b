package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pulseapp/pulse/internal/models"
	"github.com/pulseapp/pulse/internal/repository"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new engagement history repository
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

// InsertSnapshotBatch inserts the day's snapshot rows. The unique index on
// (company_id, member_id, snapshot_day) makes the operation
// insert-or-get-existing: conflicting rows are skipped and the count
// reported is the day's total after the insert, so two concurrent snapshot
// runs for the same day cannot duplicate a batch.
func (r *historyRepository) InsertSnapshotBatch(ctx context.Context, snapshots []*models.HistorySnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO member_history (
			company_id, member_id, engagement_score, status, snapshot_day, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, member_id, snapshot_day) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err := stmt.ExecContext(ctx,
			s.CompanyID,
			s.MemberID,
			s.EngagementScore,
			s.Status,
			s.SnapshotDay,
			s.RecordedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert snapshot for member %s: %w", s.MemberID, err)
		}
	}

	countQuery := `
		SELECT COUNT(*)
		FROM member_history
		WHERE company_id = $1 AND snapshot_day = $2`

	var count int
	if err := tx.QueryRowContext(ctx, countQuery, snapshots[0].CompanyID, snapshots[0].SnapshotDay).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count day snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot batch: %w", err)
	}

	return count, nil
}

func (r *historyRepository) CountForDay(ctx context.Context, companyID string, day time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM member_history
		WHERE company_id = $1 AND snapshot_day = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, companyID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots for %s: %w", day.Format("2006-01-02"), err)
	}

	return count, nil
}

func (r *historyRepository) GetDaySnapshot(ctx context.Context, companyID string, day time.Time) ([]*models.HistorySnapshot, error) {
	query := `
		SELECT id, company_id, member_id, engagement_score, status, snapshot_day, recorded_at
		FROM member_history
		WHERE company_id = $1 AND snapshot_day = $2
		ORDER BY member_id`

	rows, err := r.db.QueryContext(ctx, query, companyID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get day snapshot: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.HistorySnapshot
	for rows.Next() {
		s := &models.HistorySnapshot{}
		err := rows.Scan(
			&s.ID,
			&s.CompanyID,
			&s.MemberID,
			&s.EngagementScore,
			&s.Status,
			&s.SnapshotDay,
			&s.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

// GetDailyTrends reads the daily_engagement_trends view, which groups
// member_history by snapshot_day.
func (r *historyRepository) GetDailyTrends(ctx context.Context, companyID string, since time.Time) ([]*models.TrendPoint, error) {
	query := `
		SELECT date, avg_score, total_members, active_count, at_risk_count, inactive_count
		FROM daily_engagement_trends
		WHERE company_id = $1 AND date >= $2
		ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily trends: %w", err)
	}
	defer rows.Close()

	var points []*models.TrendPoint
	for rows.Next() {
		p := &models.TrendPoint{}
		var date time.Time
		err := rows.Scan(
			&date,
			&p.AvgScore,
			&p.TotalMembers,
			&p.ActiveCount,
			&p.AtRiskCount,
			&p.InactiveCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		p.Date = date.Format("2006-01-02")
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trend rows: %w", err)
	}

	return points, nil
}

func (r *historyRepository) DeleteOlderThan(ctx context.Context, companyID string, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM member_history
		WHERE company_id = $1 AND snapshot_day < $2`

	result, err := r.db.ExecContext(ctx, query, companyID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
