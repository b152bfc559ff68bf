package reconciler

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/db"
	"github.com/civichub/civichub/internal/models"
	"github.com/civichub/civichub/pkg/config"
)

// The fakes embed the store interfaces and implement only what the
// reconciler touches.

type fakeCommunities struct {
	db.CommunityStore
	communities []*models.Community
	set         map[uuid.UUID][2]int64
}

func (f *fakeCommunities) List(ctx context.Context) ([]*models.Community, error) {
	return f.communities, nil
}

func (f *fakeCommunities) SetCounters(ctx context.Context, id uuid.UUID, memberCount, reportCount int64) error {
	if f.set == nil {
		f.set = make(map[uuid.UUID][2]int64)
	}
	f.set[id] = [2]int64{memberCount, reportCount}
	return nil
}

type fakeMemberships struct {
	db.MembershipStore
	counts map[uuid.UUID]int64
}

func (f *fakeMemberships) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	return f.counts[communityID], nil
}

type fakeReports struct {
	db.ReportStore
	counts map[uuid.UUID]int64
	views  map[uuid.UUID]int64
}

func (f *fakeReports) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	return f.counts[communityID], nil
}

func (f *fakeReports) AddViews(ctx context.Context, id uuid.UUID, n int64) error {
	if f.views == nil {
		f.views = make(map[uuid.UUID]int64)
	}
	f.views[id] += n
	return nil
}

func TestRepairCounters(t *testing.T) {
	drifted := &models.Community{ID: uuid.New(), Slug: "drifted", MemberCount: 5, ReportCount: 1}
	accurate := &models.Community{ID: uuid.New(), Slug: "accurate", MemberCount: 2, ReportCount: 3}

	communities := &fakeCommunities{communities: []*models.Community{drifted, accurate}}
	memberships := &fakeMemberships{counts: map[uuid.UUID]int64{
		drifted.ID:  3,
		accurate.ID: 2,
	}}
	reports := &fakeReports{counts: map[uuid.UUID]int64{
		drifted.ID:  4,
		accurate.ID: 3,
	}}

	r := New(&config.Config{}, communities, memberships, reports, nil)
	r.RunOnce(context.Background())

	set, ok := communities.set[drifted.ID]
	if !ok {
		t.Fatal("Expected drifted community counters to be rewritten")
	}
	if set[0] != 3 || set[1] != 4 {
		t.Errorf("SetCounters = %v, want [3 4]", set)
	}

	if _, ok := communities.set[accurate.ID]; ok {
		t.Error("Accurate counters must not be rewritten")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	communities := &fakeCommunities{}
	memberships := &fakeMemberships{}
	reports := &fakeReports{}

	r := New(&config.Config{Reconciler: config.ReconcilerConfig{IntervalSeconds: 1}}, communities, memberships, reports, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); err != context.Canceled {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
}
