// Package engagement computes recency-based engagement scores for community
// members. The score is a piecewise linear decay over whole days since the
// member was last active:
//
//	0-7 days    active    100 (day 0) down to 80 (day 7)
//	8-30 days   at_risk   79 (day 8) down to 40 (day 30)
//	31+ days    inactive  39 (day 31) down to 0 (day 60 and beyond)
//
// Status follows the day band, never the resulting score, so the band edges
// are unambiguous.
package engagement

import (
	"math"
	"time"

	"github.com/pulseapp/pulse/internal/models"
)

// NeverActive is the DaysSinceActive sentinel returned for members with no
// last-active timestamp.
const NeverActive = math.MaxInt32

// Result is the outcome of a score calculation
type Result struct {
	Score           int                     `json:"score"`
	Status          models.EngagementStatus `json:"status"`
	DaysSinceActive int                     `json:"daysSinceActive"`
}

// ScoreAt computes the engagement score for a member last active at
// lastActive, evaluated at the instant now. A nil timestamp means the member
// was never active. It never fails; malformed inputs degrade to the
// never-active case.
func ScoreAt(lastActive *time.Time, now time.Time) Result {
	if lastActive == nil || lastActive.IsZero() {
		return Result{Score: 0, Status: models.StatusInactive, DaysSinceActive: NeverActive}
	}

	days := DaysSince(*lastActive, now)
	score, status := ScoreForDays(days)
	return Result{Score: score, Status: status, DaysSinceActive: days}
}

// Score is ScoreAt evaluated against the wall clock
func Score(lastActive *time.Time) Result {
	return ScoreAt(lastActive, time.Now())
}

// DaysSince returns the whole days elapsed from t to now, floored. A
// timestamp in the future counts as zero days.
func DaysSince(t, now time.Time) int {
	diff := now.Sub(t)
	if diff < 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}

// ScoreForDays maps whole days since last active to a score and status band
func ScoreForDays(days int) (int, models.EngagementStatus) {
	switch {
	case days <= 7:
		// linear decay 100 -> 80
		return int(math.Round(100 - float64(days)*(20.0/7.0))), models.StatusActive
	case days <= 30:
		// linear decay 79 -> 40
		return int(math.Round(79 - float64(days-8)*(39.0/22.0))), models.StatusAtRisk
	default:
		// linear decay 39 -> 0, floored at 0
		score := int(math.Round(39 - float64(days-31)*(39.0/29.0)))
		if score < 0 {
			score = 0
		}
		return score, models.StatusInactive
	}
}

// StatusFromScore classifies a bare score when the day count is unavailable
func StatusFromScore(score int) models.EngagementStatus {
	switch {
	case score >= 80:
		return models.StatusActive
	case score >= 40:
		return models.StatusAtRisk
	default:
		return models.StatusInactive
	}
}

// ScoreAll computes results for a batch of last-active timestamps
func ScoreAll(lastActives []*time.Time, now time.Time) []Result {
	results := make([]Result, len(lastActives))
	for i, la := range lastActives {
		results[i] = ScoreAt(la, now)
	}
	return results
}
