package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/pulseapp/pulse/internal/engagement"
	"github.com/pulseapp/pulse/internal/models"
	"github.com/pulseapp/pulse/internal/whop"
)

// The platform reports the same fact in different fields depending on the
// endpoint and API version. Each concern is resolved through an ordered
// chain of total extractor functions: the first one returning a value wins,
// which keeps the precedence auditable and testable per extractor.

type timestampExtractor func(m whop.Membership) *time.Time

var lastActiveExtractors = []timestampExtractor{
	func(m whop.Membership) *time.Time { return parseTimestamp(m.LastActiveAt) },
	func(m whop.Membership) *time.Time {
		if m.AccessPass == nil {
			return nil
		}
		return parseTimestamp(m.AccessPass.LastAccessedAt)
	},
	func(m whop.Membership) *time.Time { return parseTimestamp(m.CreatedAt) },
	func(m whop.Membership) *time.Time { return parseTimestamp(m.ValidFrom) },
}

type stringExtractor func(m whop.Membership) string

var memberIDExtractors = []stringExtractor{
	func(m whop.Membership) string { return m.ID },
	func(m whop.Membership) string { return m.UserID },
	func(m whop.Membership) string { return m.MemberID },
}

var emailExtractors = []stringExtractor{
	func(m whop.Membership) string { return m.Email },
	func(m whop.Membership) string {
		if m.User == nil {
			return ""
		}
		return m.User.Email
	},
}

var usernameExtractors = []stringExtractor{
	func(m whop.Membership) string { return m.Username },
	func(m whop.Membership) string {
		if m.User == nil {
			return ""
		}
		return m.User.Username
	},
	func(m whop.Membership) string { return m.DiscordUsername },
}

var nameExtractors = []stringExtractor{
	func(m whop.Membership) string { return m.Name },
	func(m whop.Membership) string {
		if m.User == nil {
			return ""
		}
		return m.User.Name
	},
	func(m whop.Membership) string { return m.FullName },
}

func firstString(m whop.Membership, chain []stringExtractor) string {
	for _, extract := range chain {
		if v := strings.TrimSpace(extract(m)); v != "" {
			return v
		}
	}
	return ""
}

func extractLastActive(m whop.Membership) *time.Time {
	for _, extract := range lastActiveExtractors {
		if t := extract(m); t != nil {
			return t
		}
	}
	return nil
}

// parseTimestamp parses a platform timestamp. Unparseable values degrade to
// nil rather than failing the record.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TransformMembership maps one raw platform record into the member schema,
// computing the engagement fields at the instant now. It fails only when the
// record carries no member identifier.
func TransformMembership(m whop.Membership, companyID string, now time.Time) (*models.Member, error) {
	memberID := firstString(m, memberIDExtractors)
	if memberID == "" {
		return nil, fmt.Errorf("membership record has no member identifier")
	}

	lastActive := extractLastActive(m)
	result := engagement.ScoreAt(lastActive, now)

	days := result.DaysSinceActive
	if days == engagement.NeverActive {
		days = models.NeverActiveDays
	}

	email := firstString(m, emailExtractors)
	username := firstString(m, usernameExtractors)
	name := firstString(m, nameExtractors)
	if name == "" {
		name = username
	}
	if name == "" && email != "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if name == "" {
		name = "User " + memberID
	}

	lastLogin := parseTimestamp(m.LastLoginAt)
	if lastLogin == nil {
		lastLogin = lastActive
	}

	totalSessions := m.TotalSessions
	if totalSessions == 0 {
		totalSessions = m.LoginCount
	}

	return &models.Member{
		CompanyID:       companyID,
		MemberID:        memberID,
		Email:           optional(email),
		Username:        optional(username),
		Name:            optional(name),
		LastActive:      lastActive,
		Status:          result.Status,
		ActivityScore:   result.Score,
		TotalSessions:   totalSessions,
		LastLogin:       lastLogin,
		DaysSinceActive: days,
	}, nil
}
