package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseapp/pulse/internal/whop"
)

func newTestService(members *fakeMemberRepo, history *fakeHistoryRepo, lister MembershipLister) *Service {
	if members == nil {
		members = newFakeMemberRepo()
	}
	if history == nil {
		history = &fakeHistoryRepo{}
	}
	if lister == nil {
		lister = &fakeLister{}
	}
	return New(testLogger(), members, history, lister, 3, 90)
}

func TestSyncSkipCounting(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{memberships: []whop.Membership{
		{ID: "u1", LastActiveAt: ts(now.AddDate(0, 0, -1))},
		{Email: "no-id@example.com"}, // no identifier, skipped
		{ID: "u2"},
		{}, // no identifier, skipped
		{UserID: "u3", CreatedAt: ts(now.AddDate(0, 0, -45))},
	}}
	members := newFakeMemberRepo()
	s := withClock(newTestService(members, nil, lister), now)

	result := s.SyncMembers(context.Background(), "biz_1")

	if !result.Success {
		t.Fatalf("sync failed: %+v", result.Errors)
	}
	if result.Count+result.Skipped != 5 {
		t.Errorf("count %d + skipped %d != 5 records", result.Count, result.Skipped)
	}
	if result.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", result.Skipped)
	}
	if len(members.members) != 3 {
		t.Errorf("stored %d members, want 3", len(members.members))
	}
	if _, ok := members.members[memberKey("biz_1", "")]; ok {
		t.Error("skipped record should never reach storage")
	}
}

func TestSyncEmptyCompanyID(t *testing.T) {
	s := newTestService(nil, nil, nil)

	result := s.SyncMembers(context.Background(), "")
	if result.Success {
		t.Error("sync with empty company ID should fail")
	}
	if len(result.Errors) == 0 || result.Errors[0].Type != ErrTypeValidation {
		t.Errorf("errors = %+v, want validation error", result.Errors)
	}
}

func TestSyncPlatformError(t *testing.T) {
	lister := &fakeLister{err: errors.New("upstream down")}
	s := newTestService(nil, nil, lister)

	result := s.SyncMembers(context.Background(), "biz_1")
	if result.Success {
		t.Error("sync should fail on platform error")
	}
	if result.Count != 0 {
		t.Errorf("count = %d, want 0", result.Count)
	}
	if len(result.Errors) != 1 || result.Errors[0].Type != ErrTypePlatform {
		t.Errorf("errors = %+v, want one platform error", result.Errors)
	}
}

func TestSyncStorageErrorDiscardsCount(t *testing.T) {
	lister := &fakeLister{memberships: []whop.Membership{{ID: "u1"}, {ID: "u2"}, {}}}
	members := newFakeMemberRepo()
	members.failUpsert = true
	s := newTestService(members, nil, lister)

	result := s.SyncMembers(context.Background(), "biz_1")
	if result.Success {
		t.Error("sync should fail on storage error")
	}
	if result.Count != 0 {
		t.Errorf("count = %d, want 0 after storage failure", result.Count)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(result.Errors) != 1 || result.Errors[0].Type != ErrTypeStorage {
		t.Errorf("errors = %+v, want one storage error", result.Errors)
	}
	if result.Err() == nil {
		t.Error("Err() should surface the storage failure")
	}
}

func TestSyncEmptyMembershipList(t *testing.T) {
	s := newTestService(nil, nil, &fakeLister{})

	result := s.SyncMembers(context.Background(), "biz_1")
	if !result.Success {
		t.Error("empty membership list is a valid outcome")
	}
	if result.Count != 0 || result.Skipped != 0 {
		t.Errorf("count = %d skipped = %d, want zeros", result.Count, result.Skipped)
	}
}

func TestWebhookMemberJoined(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	members := newFakeMemberRepo()
	s := withClock(newTestService(members, nil, nil), now)

	err := s.HandleWebhookEvent(context.Background(), whop.WebhookEvent{
		Action: whop.EventMembershipWentValid,
		Data:   whop.Membership{UserID: "u1", CompanyID: "biz_1", Email: "a@example.com"},
	}, "")
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	m := members.members[memberKey("biz_1", "u1")]
	if m == nil {
		t.Fatal("member not stored")
	}
	if m.ActivityScore != 100 {
		t.Errorf("new member score = %d, want 100", m.ActivityScore)
	}
	if m.TotalSessions != 1 {
		t.Errorf("sessions = %d, want 1", m.TotalSessions)
	}
}

func TestWebhookAccessedIncrementsSessionsAndKeepsIdentity(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	members := newFakeMemberRepo()
	s := withClock(newTestService(members, nil, nil), now)
	ctx := context.Background()

	seed := whop.WebhookEvent{
		Action: whop.EventMembershipWentValid,
		Data:   whop.Membership{UserID: "u1", CompanyID: "biz_1", Email: "a@example.com", Name: "Alice"},
	}
	if err := s.HandleWebhookEvent(ctx, seed, ""); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Sparse access event without identity fields
	accessed := whop.WebhookEvent{
		Action: whop.EventMembershipAccessed,
		Data:   whop.Membership{UserID: "u1", CompanyID: "biz_1"},
	}
	if err := s.HandleWebhookEvent(ctx, accessed, ""); err != nil {
		t.Fatalf("access event failed: %v", err)
	}

	m := members.members[memberKey("biz_1", "u1")]
	if m.TotalSessions != 2 {
		t.Errorf("sessions = %d, want 2", m.TotalSessions)
	}
	if m.Email == nil || *m.Email != "a@example.com" {
		t.Errorf("email = %v, sparse event should keep stored identity", m.Email)
	}
	if m.Name == nil || *m.Name != "Alice" {
		t.Errorf("name = %v, sparse event should keep stored identity", m.Name)
	}
}

func TestWebhookWentInvalidRetainsRow(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	members := newFakeMemberRepo()
	s := withClock(newTestService(members, nil, nil), now)
	ctx := context.Background()

	join := whop.WebhookEvent{
		Action: whop.EventMembershipWentValid,
		Data:   whop.Membership{UserID: "u1", CompanyID: "biz_1"},
	}
	if err := s.HandleWebhookEvent(ctx, join, ""); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	invalid := whop.WebhookEvent{
		Action: whop.EventMembershipWentInvalid,
		Data:   whop.Membership{UserID: "u1", CompanyID: "biz_1"},
	}
	if err := s.HandleWebhookEvent(ctx, invalid, ""); err != nil {
		t.Fatalf("invalid event failed: %v", err)
	}

	m := members.members[memberKey("biz_1", "u1")]
	if m == nil {
		t.Fatal("expired member must be retained")
	}
	if m.Status != "inactive" || m.ActivityScore != 0 {
		t.Errorf("expired member status=%s score=%d, want inactive/0", m.Status, m.ActivityScore)
	}
}

func TestWebhookMissingIdentifiers(t *testing.T) {
	s := newTestService(nil, nil, nil)

	err := s.HandleWebhookEvent(context.Background(), whop.WebhookEvent{
		Action: whop.EventMembershipAccessed,
		Data:   whop.Membership{},
	}, "")
	if err == nil {
		t.Error("expected error for event without identifiers")
	}

	// Default company fills in when the payload omits it
	members := newFakeMemberRepo()
	s = newTestService(members, nil, nil)
	err = s.HandleWebhookEvent(context.Background(), whop.WebhookEvent{
		Action: whop.EventMembershipWentValid,
		Data:   whop.Membership{UserID: "u1"},
	}, "biz_default")
	if err != nil {
		t.Fatalf("webhook with default company failed: %v", err)
	}
	if members.members[memberKey("biz_default", "u1")] == nil {
		t.Error("member should be stored under the default company")
	}
}
