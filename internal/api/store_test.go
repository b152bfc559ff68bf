package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/models"
)

// memStore is a shared in-memory backing store for the fake
// repositories used in handler tests.
type memStore struct {
	mu          sync.Mutex
	communities []*models.Community
	memberships map[string]*models.Membership
	reports     []*models.Report

	// column maps from the most recent Update calls, for asserting
	// what the handlers let through
	lastCommunityUpdate map[string]interface{}
	lastReportUpdate    map[string]interface{}
}

func newMemStore() *memStore {
	return &memStore{
		memberships: make(map[string]*models.Membership),
	}
}

func memberKey(communityID, userID uuid.UUID) string {
	return communityID.String() + "/" + userID.String()
}

type fakeCommunities struct{ *memStore }
type fakeMemberships struct{ *memStore }
type fakeReports struct{ *memStore }

func (s *fakeCommunities) Create(ctx context.Context, community *models.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communities = append(s.communities, community)
	return nil
}

func (s *fakeCommunities) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, community := range s.communities {
		if community.Slug == slug {
			return community, nil
		}
	}
	return nil, nil
}

func (s *fakeCommunities) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCommunity(id), nil
}

func (s *fakeCommunities) List(ctx context.Context) ([]*models.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Community, 0, len(s.communities))
	for i := len(s.communities) - 1; i >= 0; i-- {
		out = append(out, s.communities[i])
	}
	return out, nil
}

func (s *fakeCommunities) SlugExists(ctx context.Context, slug string) (bool, error) {
	community, _ := s.GetBySlug(ctx, slug)
	return community != nil, nil
}

func (s *fakeCommunities) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCommunityUpdate = updates

	community := s.findCommunity(id)
	if community == nil {
		return nil, nil
	}
	for column, value := range updates {
		switch column {
		case "name":
			community.Name = value.(string)
		case "description":
			community.Description = value.(string)
		case "category":
			community.Category = value.(string)
		case "center_lat":
			community.CenterLat = value.(float64)
		case "center_lng":
			community.CenterLng = value.(float64)
		case "location":
			community.Location = value.(string)
		case "address":
			community.Address = value.(string)
		case "radius_km":
			community.RadiusKm = value.(float64)
		case "icon_url":
			community.IconURL = value.(string)
		case "banner_url":
			community.BannerURL = value.(string)
		case "is_active":
			community.IsActive = value.(bool)
		case "updated_at":
			community.UpdatedAt = value.(time.Time)
		}
	}
	return community, nil
}

func (s *fakeCommunities) AddMembers(ctx context.Context, id uuid.UUID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if community := s.findCommunity(id); community != nil {
		community.MemberCount += delta
	}
	return nil
}

func (s *fakeCommunities) AddReports(ctx context.Context, id uuid.UUID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if community := s.findCommunity(id); community != nil {
		community.ReportCount += delta
	}
	return nil
}

func (s *fakeCommunities) SetCounters(ctx context.Context, id uuid.UUID, memberCount, reportCount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if community := s.findCommunity(id); community != nil {
		community.MemberCount = memberCount
		community.ReportCount = reportCount
	}
	return nil
}

func (s *memStore) findCommunity(id uuid.UUID) *models.Community {
	for _, community := range s.communities {
		if community.ID == id {
			return community
		}
	}
	return nil
}

func (s *fakeMemberships) Get(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberships[memberKey(communityID, userID)], nil
}

func (s *fakeMemberships) Create(ctx context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(membership.CommunityID, membership.UserID)
	if _, exists := s.memberships[key]; exists {
		return nil
	}
	s.memberships[key] = membership
	return nil
}

func (s *fakeMemberships) Delete(ctx context.Context, communityID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, memberKey(communityID, userID))
	return nil
}

func (s *fakeMemberships) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Membership
	for _, membership := range s.memberships {
		if membership.CommunityID == communityID {
			out = append(out, membership)
		}
	}
	return out, nil
}

func (s *fakeMemberships) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	memberships, _ := s.ListByCommunity(ctx, communityID)
	return int64(len(memberships)), nil
}

func (s *fakeReports) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *fakeReports) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findReport(id), nil
}

func (s *fakeReports) GetInCommunity(ctx context.Context, communityID, reportID uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.findReport(reportID)
	if report == nil || report.CommunityID == nil || *report.CommunityID != communityID {
		return nil, nil
	}
	return report, nil
}

func (s *fakeReports) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Report
	for i := len(s.reports) - 1; i >= 0; i-- {
		report := s.reports[i]
		if report.CommunityID != nil && *report.CommunityID == communityID {
			out = append(out, report)
		}
	}
	return out, nil
}

func (s *fakeReports) ListAll(ctx context.Context) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Report, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		out = append(out, s.reports[i])
	}
	return out, nil
}

func (s *fakeReports) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReportUpdate = updates

	report := s.findReport(id)
	if report == nil {
		return nil, nil
	}
	for column, value := range updates {
		switch column {
		case "title":
			report.Title = value.(string)
		case "description":
			report.Description = value.(string)
		case "category":
			report.Category = value.(string)
		case "status":
			report.Status = value.(string)
		case "priority":
			report.Priority = value.(string)
		case "lat":
			report.Lat = value.(float64)
		case "lng":
			report.Lng = value.(float64)
		case "location":
			report.Location = value.(string)
		case "address":
			report.Address = value.(string)
		case "image_url":
			report.ImageURL = value.(string)
		case "resolution_notes":
			report.ResolutionNotes = value.(string)
		case "resolved_at":
			resolvedAt := value.(time.Time)
			report.ResolvedAt = &resolvedAt
		case "updated_at":
			report.UpdatedAt = value.(time.Time)
		}
	}
	return report, nil
}

func (s *fakeReports) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, report := range s.reports {
		if report.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeReports) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	reports, _ := s.ListByCommunity(ctx, communityID)
	return int64(len(reports)), nil
}

func (s *fakeReports) AddViews(ctx context.Context, id uuid.UUID, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report := s.findReport(id); report != nil {
		report.ViewCount += n
	}
	return nil
}

func (s *memStore) findReport(id uuid.UUID) *models.Report {
	for _, report := range s.reports {
		if report.ID == id {
			return report
		}
	}
	return nil
}
