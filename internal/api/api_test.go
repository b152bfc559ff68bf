package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/auth"
	"github.com/civichub/civichub/internal/models"
)

// testEnv wires the handlers to in-memory fakes behind the same route
// table the real router uses. Sessions are injected from the
// X-Test-User header so each request can act as a different user.
type testEnv struct {
	store  *memStore
	engine *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	communityStore := &fakeCommunities{store}
	membershipStore := &fakeMemberships{store}
	reportStore := &fakeReports{store}

	communityHandler := NewCommunityHandler(communityStore, membershipStore, nil)
	reportHandler := NewReportHandler(reportStore, communityStore, membershipStore, nil)

	engine := gin.New()
	engine.Use(testSession())
	required := requireTestSession()

	communities := engine.Group("/communities")
	{
		communities.GET("", communityHandler.List)
		communities.POST("", required, communityHandler.Create)
		communities.GET("/:slug", communityHandler.Get)
		communities.PATCH("/:slug", required, communityHandler.Update)
		communities.POST("/:slug/join", required, communityHandler.Join)
		communities.POST("/:slug/leave", required, communityHandler.Leave)
		communities.GET("/:slug/members", communityHandler.ListMembers)

		communities.GET("/:slug/reports", reportHandler.ListByCommunity)
		communities.POST("/:slug/reports", required, reportHandler.CreateInCommunity)
		communities.GET("/:slug/reports/:id", reportHandler.GetInCommunity)
		communities.PATCH("/:slug/reports/:id", required, reportHandler.UpdateInCommunity)
		communities.DELETE("/:slug/reports/:id", required, reportHandler.DeleteInCommunity)
	}

	reports := engine.Group("/reports")
	{
		reports.GET("", reportHandler.ListAll)
		reports.POST("", required, reportHandler.Create)
		reports.GET("/:id", reportHandler.Get)
		reports.PATCH("/:id", required, reportHandler.Update)
		reports.DELETE("/:id", required, reportHandler.Delete)
	}

	return &testEnv{store: store, engine: engine}
}

func testSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(ContextKeySession, &auth.Session{UserID: id, Email: "resident@example.com"})
			}
		}
		c.Next()
	}
}

func requireTestSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// do performs a request as the given user; a nil user is anonymous
func (env *testEnv) do(t *testing.T, method, path string, user *uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", user.String())
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

// seedCommunity inserts a community owned by admin, with the owner
// enrolled the way Create does it
func (env *testEnv) seedCommunity(t *testing.T, admin uuid.UUID, slug string) *models.Community {
	t.Helper()

	now := time.Now().UTC()
	community := &models.Community{
		ID:          uuid.New(),
		Name:        slug,
		Slug:        slug,
		Category:    models.CategoryCity,
		CenterLat:   40.7,
		CenterLng:   -74.0,
		Location:    models.Point(40.7, -74.0),
		AdminID:     admin,
		MemberCount: 1,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	env.store.communities = append(env.store.communities, community)
	env.store.memberships[memberKey(community.ID, admin)] = &models.Membership{
		CommunityID: community.ID,
		UserID:      admin,
		Role:        models.RoleAdmin,
		CreatedAt:   now,
	}
	return community
}

// seedMember inserts a membership row and bumps the counter
func (env *testEnv) seedMember(t *testing.T, community *models.Community, user uuid.UUID, role string) {
	t.Helper()

	env.store.memberships[memberKey(community.ID, user)] = &models.Membership{
		CommunityID: community.ID,
		UserID:      user,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	community.MemberCount++
}

// seedReport inserts a report filed by user, optionally inside a community
func (env *testEnv) seedReport(t *testing.T, user uuid.UUID, community *models.Community) *models.Report {
	t.Helper()

	now := time.Now().UTC()
	report := &models.Report{
		ID:        uuid.New(),
		Title:     "Broken streetlight",
		Category:  "lighting",
		Status:    models.StatusPending,
		Priority:  models.PriorityMedium,
		Lat:       40.71,
		Lng:       -74.01,
		Location:  models.Point(40.71, -74.01),
		UserID:    user,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if community != nil {
		report.CommunityID = &community.ID
		community.ReportCount++
	}
	env.store.reports = append(env.store.reports, report)
	return report
}
