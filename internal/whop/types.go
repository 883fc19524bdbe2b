// Package whop is a minimal client for the Whop platform REST API. It covers
// the three calls Pulse needs: listing a company's memberships, resolving a
// user token, and checking company access.
package whop

// MembershipUser is the nested user object some API responses carry
type MembershipUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AccessPass is the nested access-pass object on a membership
type AccessPass struct {
	ID             string `json:"id"`
	LastAccessedAt string `json:"last_accessed_at"`
}

// Membership is a raw member record as returned by the platform. Response
// shapes vary between endpoints and API versions, so identity and activity
// fields each appear in several alternative places; the sync transformer
// resolves them through ordered extractor chains.
type Membership struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	MemberID        string          `json:"member_id"`
	CompanyID       string          `json:"company_id"`
	Email           string          `json:"email"`
	Username        string          `json:"username"`
	DiscordUsername string          `json:"discord_username"`
	Name            string          `json:"name"`
	FullName        string          `json:"full_name"`
	User            *MembershipUser `json:"user"`
	AccessPass      *AccessPass     `json:"access_pass"`
	LastActiveAt    string          `json:"last_active_at"`
	LastLoginAt     string          `json:"last_login_at"`
	CreatedAt       string          `json:"created_at"`
	ValidFrom       string          `json:"valid_from"`
	TotalSessions   int             `json:"total_sessions"`
	LoginCount      int             `json:"login_count"`
}

// WebhookEvent is the envelope of a webhook delivery
type WebhookEvent struct {
	Action string     `json:"action"`
	Data   Membership `json:"data"`
}

// Webhook actions Pulse handles
const (
	EventMembershipWentValid   = "membership.went_valid"
	EventMembershipAccessed    = "membership.accessed"
	EventMembershipWentInvalid = "membership.went_invalid"
)
