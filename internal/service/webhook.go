package service

import (
	"context"
	"fmt"

	"github.com/pulseapp/pulse/internal/engagement"
	"github.com/pulseapp/pulse/internal/metrics"
	"github.com/pulseapp/pulse/internal/models"
	"github.com/pulseapp/pulse/internal/whop"
)

// HandleWebhookEvent applies one platform membership event to the member
// table. Unknown actions are ignored. defaultCompanyID fills in when the
// event payload omits the company.
func (s *Service) HandleWebhookEvent(ctx context.Context, event whop.WebhookEvent, defaultCompanyID string) error {
	memberID := firstString(event.Data, memberIDExtractors)
	companyID := event.Data.CompanyID
	if companyID == "" {
		companyID = defaultCompanyID
	}
	if memberID == "" || companyID == "" {
		return fmt.Errorf("webhook event %s missing member or company identifier", event.Action)
	}

	metrics.WebhookEvents.WithLabelValues(event.Action).Inc()

	log := s.logger.WithFields(map[string]any{
		"action":     event.Action,
		"company_id": companyID,
		"member_id":  memberID,
	})

	switch event.Action {
	case whop.EventMembershipWentValid:
		return s.handleMemberJoined(ctx, event.Data, companyID, memberID)
	case whop.EventMembershipAccessed:
		return s.handleMemberAccessed(ctx, event.Data, companyID, memberID)
	case whop.EventMembershipWentInvalid:
		log.Info("Marking member inactive")
		return s.Members.MarkInvalid(ctx, companyID, memberID)
	default:
		log.Debug("Ignoring unhandled webhook action")
		return nil
	}
}

// handleMemberJoined records a brand-new member at full engagement
func (s *Service) handleMemberJoined(ctx context.Context, data whop.Membership, companyID, memberID string) error {
	now := s.now()
	score, status := engagement.ScoreForDays(0)

	name := firstString(data, nameExtractors)
	if name == "" {
		name = firstString(data, usernameExtractors)
	}
	if name == "" {
		name = "User " + memberID
	}

	member := &models.Member{
		CompanyID:       companyID,
		MemberID:        memberID,
		Email:           optional(firstString(data, emailExtractors)),
		Username:        optional(firstString(data, usernameExtractors)),
		Name:            &name,
		LastActive:      &now,
		Status:          status,
		ActivityScore:   score,
		TotalSessions:   1,
		LastLogin:       &now,
		DaysSinceActive: 0,
	}

	if _, err := s.Members.Upsert(ctx, member); err != nil {
		return fmt.Errorf("failed to record new member: %w", err)
	}

	s.logger.Infof("New member added: %s (company %s)", memberID, companyID)
	return nil
}

// handleMemberAccessed resets the member's recency clock and bumps their
// session counter. Identity fields absent from the payload fall back to the
// stored row's values through the repository's merge semantics.
func (s *Service) handleMemberAccessed(ctx context.Context, data whop.Membership, companyID, memberID string) error {
	now := s.now()
	score, status := engagement.ScoreForDays(0)

	current, err := s.Members.Get(ctx, companyID, memberID)
	if err != nil {
		return fmt.Errorf("failed to look up member: %w", err)
	}

	totalSessions := 1
	if current != nil {
		totalSessions = current.TotalSessions + 1
	}

	name := optional(firstString(data, nameExtractors))
	if name == nil && current == nil {
		placeholder := "User " + memberID
		name = &placeholder
	}

	member := &models.Member{
		CompanyID:       companyID,
		MemberID:        memberID,
		Email:           optional(firstString(data, emailExtractors)),
		Username:        optional(firstString(data, usernameExtractors)),
		Name:            name,
		LastActive:      &now,
		Status:          status,
		ActivityScore:   score,
		TotalSessions:   totalSessions,
		LastLogin:       &now,
		DaysSinceActive: 0,
	}

	updated, err := s.Members.Upsert(ctx, member)
	if err != nil {
		return fmt.Errorf("failed to update member activity: %w", err)
	}

	s.logger.Infof("Member activity updated: %s (score: %d)", updated.MemberID, updated.ActivityScore)
	return nil
}
