package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/pulseapp/pulse/internal/repository"
	"github.com/pulseapp/pulse/internal/whop"
)

// MembershipLister fetches raw membership records from the platform
type MembershipLister interface {
	ListMemberships(ctx context.Context, companyID string) ([]whop.Membership, error)
}

// Service is the central business logic layer: it syncs members, writes
// daily snapshots, and serves history and comparison aggregates.
type Service struct {
	logger        *logrus.Logger
	Members       repository.MemberRepository
	History       repository.HistoryRepository
	platform      MembershipLister
	snapshotHour  int
	retentionDays int

	// now is swapped for a fixed clock in tests
	now func() time.Time
}

// New creates a new Service with all required dependencies
func New(logger *logrus.Logger,
	members repository.MemberRepository,
	history repository.HistoryRepository,
	platform MembershipLister,
	snapshotHour, retentionDays int,
) *Service {
	return &Service{
		logger:        logger,
		Members:       members,
		History:       history,
		platform:      platform,
		snapshotHour:  snapshotHour,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Error types carried in operation results
const (
	ErrTypePlatform   = "whop_api_error"
	ErrTypeStorage    = "storage_error"
	ErrTypeValidation = "validation_error"
)

// OpError is one failure inside a batch operation
type OpError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e OpError) Error() string {
	return e.Type + ": " + e.Message
}

// combine folds a list of OpErrors into a single error, or nil
func combine(errs []OpError) error {
	var result *multierror.Error
	for _, e := range errs {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}
