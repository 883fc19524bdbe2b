package models

import "time"

// HistorySnapshot is one immutable copy of a member's engagement score,
// taken once per calendar day. SnapshotDay carries the uniqueness: the
// database enforces at most one row per (company, member, day).
type HistorySnapshot struct {
	ID              int64            `json:"id" db:"id"`
	CompanyID       string           `json:"company_id" db:"company_id"`
	MemberID        string           `json:"member_id" db:"member_id"`
	EngagementScore int              `json:"engagement_score" db:"engagement_score"`
	Status          EngagementStatus `json:"status" db:"status"`
	SnapshotDay     time.Time        `json:"snapshot_day" db:"snapshot_day"`
	RecordedAt      time.Time        `json:"recorded_at" db:"recorded_at"`
}

// TrendPoint is one day's aggregate over the history table, shaped for the
// engagement chart. Not persisted; produced by the daily_engagement_trends
// view.
type TrendPoint struct {
	Date          string  `json:"date"`
	AvgScore      float64 `json:"avg_score"`
	TotalMembers  int     `json:"total_members"`
	ActiveCount   int     `json:"active_count"`
	AtRiskCount   int     `json:"at_risk_count"`
	InactiveCount int     `json:"inactive_count"`
}

// StatusBreakdown aggregates a set of members by engagement status
type StatusBreakdown struct {
	Total    int     `json:"total"`
	Active   int     `json:"active"`
	AtRisk   int     `json:"at_risk"`
	Inactive int     `json:"inactive"`
	AvgScore float64 `json:"avg_score"`
}

// ComparisonData holds current vs. week-ago aggregates with field-wise deltas
type ComparisonData struct {
	Current  StatusBreakdown `json:"current"`
	Previous StatusBreakdown `json:"previous"`
	Changes  StatusBreakdown `json:"changes"`
}

// Sub returns the field-wise difference b - other
func (b StatusBreakdown) Sub(other StatusBreakdown) StatusBreakdown {
	return StatusBreakdown{
		Total:    b.Total - other.Total,
		Active:   b.Active - other.Active,
		AtRisk:   b.AtRisk - other.AtRisk,
		Inactive: b.Inactive - other.Inactive,
		AvgScore: b.AvgScore - other.AvgScore,
	}
}
