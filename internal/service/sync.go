package service

import (
	"context"
	"fmt"

	"github.com/pulseapp/pulse/internal/metrics"
	"github.com/pulseapp/pulse/internal/models"
)

// SyncResult reports the outcome of one member sync run
type SyncResult struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Skipped int       `json:"skipped"`
	Errors  []OpError `json:"errors,omitempty"`
}

// Err folds the result's errors into one error, or nil on success
func (r SyncResult) Err() error {
	return combine(r.Errors)
}

// SyncMembers fetches all membership records for a company from the
// platform, transforms them through the score engine, and upserts them into
// the member table. Records without a member identifier are skipped and
// counted; a storage failure discards the whole batch's count.
func (s *Service) SyncMembers(ctx context.Context, companyID string) SyncResult {
	if companyID == "" {
		return SyncResult{Errors: []OpError{{
			Type:    ErrTypeValidation,
			Message: "company ID is required",
		}}}
	}

	log := s.logger.WithField("company_id", companyID)
	log.Info("Starting member sync")

	raw, err := s.platform.ListMemberships(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch memberships")
		metrics.SyncsTotal.WithLabelValues("platform_error").Inc()
		return SyncResult{Errors: []OpError{{
			Type:    ErrTypePlatform,
			Message: err.Error(),
		}}}
	}

	if len(raw) == 0 {
		log.Info("No memberships found")
		metrics.SyncsTotal.WithLabelValues("success").Inc()
		return SyncResult{Success: true}
	}

	now := s.now()
	members := make([]*models.Member, 0, len(raw))
	skipped := 0

	for _, record := range raw {
		member, err := TransformMembership(record, companyID, now)
		if err != nil {
			log.WithError(err).Warn("Skipping untransformable membership record")
			skipped++
			continue
		}
		members = append(members, member)
	}

	count := 0
	if len(members) > 0 {
		count, err = s.Members.UpsertBatch(ctx, members)
		if err != nil {
			log.WithError(err).Error("Failed to upsert members")
			metrics.SyncsTotal.WithLabelValues("storage_error").Inc()
			return SyncResult{
				Skipped: skipped,
				Errors: []OpError{{
					Type:    ErrTypeStorage,
					Message: err.Error(),
				}},
			}
		}
	}

	log.Infof("Synced %d members (%d skipped)", count, skipped)
	metrics.SyncsTotal.WithLabelValues("success").Inc()
	metrics.MembersSynced.Add(float64(count))
	metrics.MembersSkipped.Add(float64(skipped))

	return SyncResult{Success: true, Count: count, Skipped: skipped}
}

// Stats summarizes the live member table for a company
func (s *Service) Stats(ctx context.Context, companyID string) (*models.MemberStats, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company ID is required")
	}
	return s.Members.Stats(ctx, companyID)
}

// TrackActivity bumps a member's last_login when they visit the dashboard.
// Best effort: failures are logged, never propagated, since tracking must
// not break the page that triggered it.
func (s *Service) TrackActivity(ctx context.Context, companyID, memberID string) {
	if companyID == "" || memberID == "" {
		return
	}
	if err := s.Members.TouchLogin(ctx, companyID, memberID, s.now()); err != nil {
		s.logger.WithError(err).WithFields(map[string]any{
			"company_id": companyID,
			"member_id":  memberID,
		}).Warn("Could not track member activity")
	}
}
