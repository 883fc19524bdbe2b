package models

import "time"

// EngagementStatus categorizes a member by how recently they were active
type EngagementStatus string

const (
	StatusActive   EngagementStatus = "active"
	StatusAtRisk   EngagementStatus = "at_risk"
	StatusInactive EngagementStatus = "inactive"
)

// NeverActiveDays is the days_since_active sentinel stored for members with
// no recorded activity. The value survives a Postgres INTEGER column, unlike
// the in-memory sentinel the score engine reports.
const NeverActiveDays = 999

// Member represents one member of a community, with cached engagement fields
type Member struct {
	ID              int64            `json:"id" db:"id"`
	CompanyID       string           `json:"company_id" db:"company_id"`
	MemberID        string           `json:"member_id" db:"member_id"`
	Email           *string          `json:"member_email" db:"member_email"`
	Username        *string          `json:"member_username" db:"member_username"`
	Name            *string          `json:"member_name" db:"member_name"`
	LastActive      *time.Time       `json:"last_active" db:"last_active"`
	Status          EngagementStatus `json:"status" db:"status"`
	ActivityScore   int              `json:"activity_score" db:"activity_score"`
	TotalSessions   int              `json:"total_sessions" db:"total_sessions"`
	LastLogin       *time.Time       `json:"last_login" db:"last_login"`
	DaysSinceActive int              `json:"days_since_active" db:"days_since_active"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the best display name for the member
func (m *Member) DisplayName() string {
	if m.Name != nil && *m.Name != "" {
		return *m.Name
	}
	if m.Username != nil && *m.Username != "" {
		return *m.Username
	}
	return "User " + m.MemberID
}

// MemberStats summarizes the live member table for one company
type MemberStats struct {
	Total      int        `json:"total"`
	Active     int        `json:"active"`
	AtRisk     int        `json:"at_risk"`
	Inactive   int        `json:"inactive"`
	AvgScore   float64    `json:"avg_score"`
	LastSynced *time.Time `json:"last_synced"`
}
