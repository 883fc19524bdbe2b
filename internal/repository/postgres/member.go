package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pulseapp/pulse/internal/models"
	"github.com/pulseapp/pulse/internal/repository"
)

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member activity repository
func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, company_id, member_id, member_email, member_username, member_name,
	last_active, status, activity_score, total_sessions, last_login, days_since_active,
	created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(
		&m.ID,
		&m.CompanyID,
		&m.MemberID,
		&m.Email,
		&m.Username,
		&m.Name,
		&m.LastActive,
		&m.Status,
		&m.ActivityScore,
		&m.TotalSessions,
		&m.LastLogin,
		&m.DaysSinceActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) UpsertBatch(ctx context.Context, members []*models.Member) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO member_activity (
			company_id, member_id, member_email, member_username, member_name,
			last_active, status, activity_score, total_sessions, last_login,
			days_since_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (company_id, member_id) DO UPDATE SET
			member_email = EXCLUDED.member_email,
			member_username = EXCLUDED.member_username,
			member_name = EXCLUDED.member_name,
			last_active = EXCLUDED.last_active,
			status = EXCLUDED.status,
			activity_score = EXCLUDED.activity_score,
			total_sessions = EXCLUDED.total_sessions,
			last_login = EXCLUDED.last_login,
			days_since_active = EXCLUDED.days_since_active,
			updated_at = EXCLUDED.updated_at`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare member upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	count := 0
	for _, m := range members {
		_, err := stmt.ExecContext(ctx,
			m.CompanyID,
			m.MemberID,
			m.Email,
			m.Username,
			m.Name,
			m.LastActive,
			m.Status,
			m.ActivityScore,
			m.TotalSessions,
			m.LastLogin,
			m.DaysSinceActive,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert member %s: %w", m.MemberID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit member upsert: %w", err)
	}

	return count, nil
}

func (r *memberRepository) Upsert(ctx context.Context, member *models.Member) (*models.Member, error) {
	// COALESCE keeps the stored identity fields when the incoming event
	// omits them, so a sparse webhook payload cannot blank out a profile.
	query := `
		INSERT INTO member_activity (
			company_id, member_id, member_email, member_username, member_name,
			last_active, status, activity_score, total_sessions, last_login,
			days_since_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (company_id, member_id) DO UPDATE SET
			member_email = COALESCE(EXCLUDED.member_email, member_activity.member_email),
			member_username = COALESCE(EXCLUDED.member_username, member_activity.member_username),
			member_name = COALESCE(EXCLUDED.member_name, member_activity.member_name),
			last_active = EXCLUDED.last_active,
			status = EXCLUDED.status,
			activity_score = EXCLUDED.activity_score,
			total_sessions = EXCLUDED.total_sessions,
			last_login = EXCLUDED.last_login,
			days_since_active = EXCLUDED.days_since_active,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + memberColumns

	now := time.Now()
	m, err := scanMember(r.db.QueryRowContext(ctx, query,
		member.CompanyID,
		member.MemberID,
		member.Email,
		member.Username,
		member.Name,
		member.LastActive,
		member.Status,
		member.ActivityScore,
		member.TotalSessions,
		member.LastLogin,
		member.DaysSinceActive,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert member %s: %w", member.MemberID, err)
	}

	return m, nil
}

func (r *memberRepository) Get(ctx context.Context, companyID, memberID string) (*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM member_activity
		WHERE company_id = $1 AND member_id = $2`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, companyID, memberID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member %s: %w", memberID, err)
	}

	return m, nil
}

func (r *memberRepository) GetByCompany(ctx context.Context, companyID string) ([]*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM member_activity
		WHERE company_id = $1
		ORDER BY activity_score DESC, member_id`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members for company %s: %w", companyID, err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member rows: %w", err)
	}

	return members, nil
}

func (r *memberRepository) MarkInvalid(ctx context.Context, companyID, memberID string) error {
	query := `
		UPDATE member_activity
		SET status = $3, activity_score = 0, days_since_active = $4, updated_at = $5
		WHERE company_id = $1 AND member_id = $2`

	// A member we never synced has nothing to retain; zero rows is fine.
	_, err := r.db.ExecContext(ctx, query,
		companyID, memberID, models.StatusInactive, models.NeverActiveDays, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark member %s invalid: %w", memberID, err)
	}

	return nil
}

func (r *memberRepository) TouchLogin(ctx context.Context, companyID, memberID string, at time.Time) error {
	query := `
		UPDATE member_activity
		SET last_login = $3, updated_at = $3
		WHERE company_id = $1 AND member_id = $2`

	if _, err := r.db.ExecContext(ctx, query, companyID, memberID, at); err != nil {
		return fmt.Errorf("failed to touch login for member %s: %w", memberID, err)
	}

	return nil
}

func (r *memberRepository) Stats(ctx context.Context, companyID string) (*models.MemberStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(AVG(activity_score), 0),
			MAX(updated_at)
		FROM member_activity
		WHERE company_id = $1`

	stats := &models.MemberStats{}
	var lastSynced pq.NullTime
	err := r.db.QueryRowContext(ctx, query,
		companyID, models.StatusActive, models.StatusAtRisk, models.StatusInactive,
	).Scan(
		&stats.Total,
		&stats.Active,
		&stats.AtRisk,
		&stats.Inactive,
		&stats.AvgScore,
		&lastSynced,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for company %s: %w", companyID, err)
	}

	if lastSynced.Valid {
		stats.LastSynced = &lastSynced.Time
	}

	return stats, nil
}
