package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/models"
)

// The stores return nil, nil on a lookup miss; handlers translate that
// to a 404 at the API boundary. Handlers and the reconciler depend on
// these interfaces so tests can substitute in-memory fakes.

// CommunityStore defines the contract for community data operations.
type CommunityStore interface {
	// Create inserts a new community.
	Create(ctx context.Context, community *models.Community) error

	// GetBySlug returns a community by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)

	// GetByID returns a community by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error)

	// List returns all communities, newest first.
	List(ctx context.Context) ([]*models.Community, error)

	// SlugExists reports whether a slug is already taken.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Update applies an already allow-listed column map and returns the
	// updated record.
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Community, error)

	// AddMembers adjusts the denormalized member counter by delta.
	AddMembers(ctx context.Context, id uuid.UUID, delta int64) error

	// AddReports adjusts the denormalized report counter by delta.
	AddReports(ctx context.Context, id uuid.UUID, delta int64) error

	// SetCounters overwrites both denormalized counters with recounted values.
	SetCounters(ctx context.Context, id uuid.UUID, memberCount, reportCount int64) error
}

// MembershipStore defines the contract for community membership operations.
type MembershipStore interface {
	// Get returns a membership row, or nil, nil when the user has not joined.
	Get(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error)

	// Create inserts a membership. Idempotent: an existing
	// (community_id, user_id) pair is left untouched.
	Create(ctx context.Context, membership *models.Membership) error

	// Delete removes a membership. No-op if not a member.
	Delete(ctx context.Context, communityID, userID uuid.UUID) error

	// ListByCommunity returns all memberships of a community.
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Membership, error)

	// CountByCommunity counts memberships of a community.
	CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error)
}

// ReportStore defines the contract for report data operations.
type ReportStore interface {
	// Create inserts a new report.
	Create(ctx context.Context, report *models.Report) error

	// GetByID returns a report by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)

	// GetInCommunity returns a report only if it belongs to the community.
	GetInCommunity(ctx context.Context, communityID, reportID uuid.UUID) (*models.Report, error)

	// ListByCommunity returns a community's reports, newest first.
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Report, error)

	// ListAll returns all reports, newest first.
	ListAll(ctx context.Context) ([]*models.Report, error)

	// Update applies an already allow-listed column map and returns the
	// updated record.
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Report, error)

	// Delete hard-deletes a report.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByCommunity counts a community's reports.
	CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error)

	// AddViews adds n buffered views to a report's view counter.
	AddViews(ctx context.Context, id uuid.UUID, n int64) error
}
