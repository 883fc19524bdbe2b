package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulseapp/pulse/internal/models"
	"github.com/pulseapp/pulse/internal/whop"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fixedClock pins the service clock for deterministic tests
func withClock(s *Service, t time.Time) *Service {
	s.now = func() time.Time { return t }
	return s
}

type fakeLister struct {
	memberships []whop.Membership
	err         error
}

func (f *fakeLister) ListMemberships(_ context.Context, _ string) ([]whop.Membership, error) {
	return f.memberships, f.err
}

type fakeMemberRepo struct {
	members    map[string]*models.Member
	failUpsert bool
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string]*models.Member)}
}

func memberKey(companyID, memberID string) string {
	return companyID + "|" + memberID
}

func (f *fakeMemberRepo) UpsertBatch(_ context.Context, members []*models.Member) (int, error) {
	if f.failUpsert {
		return 0, errors.New("upsert failed")
	}
	for _, m := range members {
		copied := *m
		f.members[memberKey(m.CompanyID, m.MemberID)] = &copied
	}
	return len(members), nil
}

func (f *fakeMemberRepo) Upsert(_ context.Context, m *models.Member) (*models.Member, error) {
	if f.failUpsert {
		return nil, errors.New("upsert failed")
	}
	copied := *m
	if existing, ok := f.members[memberKey(m.CompanyID, m.MemberID)]; ok {
		if copied.Email == nil {
			copied.Email = existing.Email
		}
		if copied.Username == nil {
			copied.Username = existing.Username
		}
		if copied.Name == nil {
			copied.Name = existing.Name
		}
	}
	f.members[memberKey(m.CompanyID, m.MemberID)] = &copied
	return &copied, nil
}

func (f *fakeMemberRepo) Get(_ context.Context, companyID, memberID string) (*models.Member, error) {
	m, ok := f.members[memberKey(companyID, memberID)]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMemberRepo) GetByCompany(_ context.Context, companyID string) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range f.members {
		if m.CompanyID == companyID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (f *fakeMemberRepo) MarkInvalid(_ context.Context, companyID, memberID string) error {
	if m, ok := f.members[memberKey(companyID, memberID)]; ok {
		m.Status = models.StatusInactive
		m.ActivityScore = 0
		m.DaysSinceActive = models.NeverActiveDays
	}
	return nil
}

func (f *fakeMemberRepo) TouchLogin(_ context.Context, companyID, memberID string, at time.Time) error {
	if m, ok := f.members[memberKey(companyID, memberID)]; ok {
		m.LastLogin = &at
		m.UpdatedAt = at
	}
	return nil
}

func (f *fakeMemberRepo) Stats(ctx context.Context, companyID string) (*models.MemberStats, error) {
	members, _ := f.GetByCompany(ctx, companyID)
	stats := &models.MemberStats{Total: len(members)}
	sum := 0
	for _, m := range members {
		switch m.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusAtRisk:
			stats.AtRisk++
		case models.StatusInactive:
			stats.Inactive++
		}
		sum += m.ActivityScore
	}
	if stats.Total > 0 {
		stats.AvgScore = float64(sum) / float64(stats.Total)
	}
	return stats, nil
}

// fakeHistoryRepo mirrors the Postgres unique index on
// (company_id, member_id, snapshot_day): duplicate inserts are dropped and
// the batch insert reports the day's row count afterwards.
type fakeHistoryRepo struct {
	rows     []*models.HistorySnapshot
	failRead bool
}

func (f *fakeHistoryRepo) InsertSnapshotBatch(_ context.Context, snapshots []*models.HistorySnapshot) (int, error) {
	for _, s := range snapshots {
		if f.exists(s.CompanyID, s.MemberID, s.SnapshotDay) {
			continue
		}
		copied := *s
		f.rows = append(f.rows, &copied)
	}
	count := 0
	for _, r := range f.rows {
		if r.CompanyID == snapshots[0].CompanyID && r.SnapshotDay.Equal(snapshots[0].SnapshotDay) {
			count++
		}
	}
	return count, nil
}

func (f *fakeHistoryRepo) exists(companyID, memberID string, day time.Time) bool {
	for _, r := range f.rows {
		if r.CompanyID == companyID && r.MemberID == memberID && r.SnapshotDay.Equal(day) {
			return true
		}
	}
	return false
}

func (f *fakeHistoryRepo) CountForDay(_ context.Context, companyID string, day time.Time) (int, error) {
	count := 0
	for _, r := range f.rows {
		if r.CompanyID == companyID && r.SnapshotDay.Equal(day) {
			count++
		}
	}
	return count, nil
}

func (f *fakeHistoryRepo) GetDaySnapshot(_ context.Context, companyID string, day time.Time) ([]*models.HistorySnapshot, error) {
	if f.failRead {
		return nil, errors.New("read failed")
	}
	var out []*models.HistorySnapshot
	for _, r := range f.rows {
		if r.CompanyID == companyID && r.SnapshotDay.Equal(day) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) GetDailyTrends(_ context.Context, companyID string, since time.Time) ([]*models.TrendPoint, error) {
	if f.failRead {
		return nil, errors.New("read failed")
	}

	type agg struct {
		sum, total, active, atRisk, inactive int
	}
	byDay := make(map[string]*agg)
	for _, r := range f.rows {
		if r.CompanyID != companyID || r.SnapshotDay.Before(since) {
			continue
		}
		key := r.SnapshotDay.Format("2006-01-02")
		a := byDay[key]
		if a == nil {
			a = &agg{}
			byDay[key] = a
		}
		a.sum += r.EngagementScore
		a.total++
		switch r.Status {
		case models.StatusActive:
			a.active++
		case models.StatusAtRisk:
			a.atRisk++
		case models.StatusInactive:
			a.inactive++
		}
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	var points []*models.TrendPoint
	for _, d := range days {
		a := byDay[d]
		points = append(points, &models.TrendPoint{
			Date:          d,
			AvgScore:      float64(a.sum) / float64(a.total),
			TotalMembers:  a.total,
			ActiveCount:   a.active,
			AtRiskCount:   a.atRisk,
			InactiveCount: a.inactive,
		})
	}
	return points, nil
}

func (f *fakeHistoryRepo) DeleteOlderThan(_ context.Context, companyID string, cutoff time.Time) (int64, error) {
	var kept []*models.HistorySnapshot
	var deleted int64
	for _, r := range f.rows {
		if r.CompanyID == companyID && r.SnapshotDay.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}
