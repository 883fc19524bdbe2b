package engagement

import (
	"testing"
	"time"

	"github.com/pulseapp/pulse/internal/models"
)

func TestScoreBandBoundaries(t *testing.T) {
	cases := []struct {
		days  int
		score int
	}{
		{0, 100},
		{7, 80},
		{8, 79},
		{30, 40},
		{31, 39},
		{60, 0},
		{61, 0},
		{365, 0},
	}

	for _, tc := range cases {
		score, _ := ScoreForDays(tc.days)
		if score != tc.score {
			t.Errorf("ScoreForDays(%d) = %d, want %d", tc.days, score, tc.score)
		}
	}
}

func TestScoreStatusBands(t *testing.T) {
	for d := 0; d <= 120; d++ {
		_, status := ScoreForDays(d)

		var want models.EngagementStatus
		switch {
		case d <= 7:
			want = models.StatusActive
		case d <= 30:
			want = models.StatusAtRisk
		default:
			want = models.StatusInactive
		}

		if status != want {
			t.Errorf("ScoreForDays(%d) status = %s, want %s", d, status, want)
		}
	}
}

func TestScoreMonotonicWithinBands(t *testing.T) {
	prevScore, prevStatus := ScoreForDays(0)
	for d := 1; d <= 120; d++ {
		score, status := ScoreForDays(d)
		if status == prevStatus && score > prevScore {
			t.Errorf("score increased within band: day %d score %d > day %d score %d",
				d, score, d-1, prevScore)
		}
		prevScore, prevStatus = score, status
	}
}

func TestScoreBounded(t *testing.T) {
	for d := 0; d <= 1000; d++ {
		score, _ := ScoreForDays(d)
		if score < 0 || score > 100 {
			t.Errorf("ScoreForDays(%d) = %d, out of [0,100]", d, score)
		}
	}
}

func TestScoreNeverActive(t *testing.T) {
	got := ScoreAt(nil, time.Now())
	if got.Score != 0 {
		t.Errorf("nil timestamp score = %d, want 0", got.Score)
	}
	if got.Status != models.StatusInactive {
		t.Errorf("nil timestamp status = %s, want inactive", got.Status)
	}
	if got.DaysSinceActive != NeverActive {
		t.Errorf("nil timestamp days = %d, want sentinel %d", got.DaysSinceActive, NeverActive)
	}

	var zero time.Time
	if got := ScoreAt(&zero, time.Now()); got.DaysSinceActive != NeverActive {
		t.Errorf("zero timestamp days = %d, want sentinel", got.DaysSinceActive)
	}
}

func TestScoreAtThreeDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	lastActive := now.AddDate(0, 0, -3)

	got := ScoreAt(&lastActive, now)
	if got.Score != 91 {
		t.Errorf("score at 3 days = %d, want 91", got.Score)
	}
	if got.Status != models.StatusActive {
		t.Errorf("status at 3 days = %s, want active", got.Status)
	}
	if got.DaysSinceActive != 3 {
		t.Errorf("days = %d, want 3", got.DaysSinceActive)
	}
}

func TestDaysSinceFloorsPartialDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	if d := DaysSince(now.Add(-47*time.Hour), now); d != 1 {
		t.Errorf("47h elapsed = %d days, want 1", d)
	}
	if d := DaysSince(now.Add(-48*time.Hour), now); d != 2 {
		t.Errorf("48h elapsed = %d days, want 2", d)
	}
	if d := DaysSince(now.Add(time.Hour), now); d != 0 {
		t.Errorf("future timestamp = %d days, want 0", d)
	}
}

func TestStatusFromScore(t *testing.T) {
	cases := []struct {
		score int
		want  models.EngagementStatus
	}{
		{100, models.StatusActive},
		{80, models.StatusActive},
		{79, models.StatusAtRisk},
		{40, models.StatusAtRisk},
		{39, models.StatusInactive},
		{0, models.StatusInactive},
	}
	for _, tc := range cases {
		if got := StatusFromScore(tc.score); got != tc.want {
			t.Errorf("StatusFromScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestFormatDaysSince(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, "Active today"},
		{1, "1 day ago"},
		{3, "3 days ago"},
		{7, "1 week ago"},
		{21, "3 weeks ago"},
		{30, "1 month ago"},
		{59, "1 month ago"},
		{60, "Over 2 months ago"},
		{400, "Over 2 months ago"},
	}
	for _, tc := range cases {
		if got := FormatDaysSince(tc.days); got != tc.want {
			t.Errorf("FormatDaysSince(%d) = %q, want %q", tc.days, got, tc.want)
		}
	}
}
