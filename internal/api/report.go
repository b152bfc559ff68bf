package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civichub/civichub/internal/authz"
	"github.com/civichub/civichub/internal/cache"
	"github.com/civichub/civichub/internal/db"
	"github.com/civichub/civichub/internal/models"
	"github.com/civichub/civichub/pkg/logging"
)

// reportUpdateColumns is the allow-list of client-updatable columns.
// resolved_at, user_id, community_id and the counters are never
// accepted from the client.
var reportUpdateColumns = map[string]bool{
	"title":            true,
	"description":      true,
	"category":         true,
	"status":           true,
	"priority":         true,
	"lat":              true,
	"lng":              true,
	"address":          true,
	"image_url":        true,
	"resolution_notes": true,
}

// ReportHandler serves the report endpoints, both community-scoped and
// global
type ReportHandler struct {
	reports     db.ReportStore
	communities db.CommunityStore
	members     db.MembershipStore
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewReportHandler creates a report handler
func NewReportHandler(reports db.ReportStore, communities db.CommunityStore, members db.MembershipStore, redisCache *cache.Cache) *ReportHandler {
	return &ReportHandler{
		reports:     reports,
		communities: communities,
		members:     members,
		cache:       redisCache,
		logger:      logging.GetLogger().With(zap.String("component", "report_handler")),
	}
}

type createReportRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Address     string   `json:"address"`
	ImageURL    string   `json:"image_url"`
}

func (req *createReportRequest) validate() *Error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Category == "" || req.Lat == nil || req.Lng == nil {
		return NewValidationError("Missing required fields: title, category, lat, lng")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(req.Priority) {
		return NewValidationError("Invalid priority")
	}
	return nil
}

func (req *createReportRequest) toReport(userID uuid.UUID, communityID *uuid.UUID) *models.Report {
	now := time.Now().UTC()
	return &models.Report{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      models.StatusPending,
		Priority:    req.Priority,
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		Location:    models.Point(*req.Lat, *req.Lng),
		Address:     req.Address,
		ImageURL:    req.ImageURL,
		CommunityID: communityID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ListAll returns all reports across communities, newest first
func (h *ReportHandler) ListAll(c *gin.Context) {
	reports, err := h.reports.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ListByCommunity returns a community's reports, newest first
func (h *ReportHandler) ListByCommunity(c *gin.Context) {
	ctx := c.Request.Context()

	community, err := h.loadCommunity(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	reports, err := h.reports.ListByCommunity(ctx, community.ID)
	if err != nil {
		h.logger.Error("Failed to list reports",
			zap.String("slug", community.Slug), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Create files a report outside any community
func (h *ReportHandler) Create(c *gin.Context) {
	h.create(c, nil)
}

// CreateInCommunity files a report within a community
func (h *ReportHandler) CreateInCommunity(c *gin.Context) {
	ctx := c.Request.Context()

	community, err := h.loadCommunity(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.create(c, community)
}

func (h *ReportHandler) create(c *gin.Context, community *models.Community) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewValidationError("Invalid request body"))
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		respondError(c, apiErr)
		return
	}

	var communityID *uuid.UUID
	if community != nil {
		communityID = &community.ID
	}
	report := req.toReport(session.UserID, communityID)

	if err := h.reports.Create(ctx, report); err != nil {
		h.logger.Error("Failed to create report", zap.Error(err))
		respondError(c, err)
		return
	}
	if community != nil {
		if err := h.communities.AddReports(ctx, community.ID, 1); err != nil {
			h.logger.Warn("Failed to bump report count", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// Get returns a report by ID and buffers a view
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.loadReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.bufferView(report)
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetInCommunity returns a report scoped to a community and buffers a view
func (h *ReportHandler) GetInCommunity(c *gin.Context) {
	ctx := c.Request.Context()

	_, report, err := h.loadCommunityReport(ctx, c.Param("slug"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.bufferView(report)
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Update applies allow-listed changes to a report. Restricted to the
// reporter and community admins.
func (h *ReportHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	report, err := h.loadReport(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	actor, err := h.classify(ctx, session.UserID, report)
	if err != nil {
		h.logger.Error("Failed to resolve report access", zap.Error(err))
		respondError(c, err)
		return
	}
	h.applyUpdate(c, report, actor)
}

// UpdateInCommunity applies allow-listed changes to a community-scoped report
func (h *ReportHandler) UpdateInCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	community, report, err := h.loadCommunityReport(ctx, c.Param("slug"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	membership, err := h.members.Get(ctx, community.ID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to load membership", zap.Error(err))
		respondError(c, err)
		return
	}
	actor := authz.Classify(session.UserID, &report.UserID, community, membership)
	h.applyUpdate(c, report, actor)
}

// Delete removes a report. Restricted to the reporter and community admins.
func (h *ReportHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	report, err := h.loadReport(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	actor, err := h.classify(ctx, session.UserID, report)
	if err != nil {
		h.logger.Error("Failed to resolve report access", zap.Error(err))
		respondError(c, err)
		return
	}
	h.applyDelete(c, report, actor)
}

// DeleteInCommunity removes a community-scoped report
func (h *ReportHandler) DeleteInCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	community, report, err := h.loadCommunityReport(ctx, c.Param("slug"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	membership, err := h.members.Get(ctx, community.ID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to load membership", zap.Error(err))
		respondError(c, err)
		return
	}
	actor := authz.Classify(session.UserID, &report.UserID, community, membership)
	h.applyDelete(c, report, actor)
}

func (h *ReportHandler) applyUpdate(c *gin.Context, report *models.Report, actor authz.Actor) {
	ctx := c.Request.Context()

	if !actor.CanModifyReport() {
		respondError(c, NewForbidden("You do not have permission to update this report"))
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, NewValidationError("Invalid request body"))
		return
	}

	updates, apiErr := reportUpdates(body, report)
	if apiErr != nil {
		respondError(c, apiErr)
		return
	}

	updated, err := h.reports.Update(ctx, report.ID, updates)
	if err != nil {
		h.logger.Error("Failed to update report",
			zap.String("report_id", report.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": updated})
}

func (h *ReportHandler) applyDelete(c *gin.Context, report *models.Report, actor authz.Actor) {
	ctx := c.Request.Context()

	if !actor.CanModifyReport() {
		respondError(c, NewForbidden("You do not have permission to delete this report"))
		return
	}

	if err := h.reports.Delete(ctx, report.ID); err != nil {
		h.logger.Error("Failed to delete report",
			zap.String("report_id", report.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}
	if report.CommunityID != nil {
		if err := h.communities.AddReports(ctx, *report.CommunityID, -1); err != nil {
			h.logger.Warn("Failed to drop report count", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// reportUpdates filters body down to allow-listed columns, validates
// enums and stamps resolution and update times. resolved_at is set on
// the first transition to resolved and never touched again.
func reportUpdates(body map[string]interface{}, report *models.Report) (map[string]interface{}, *Error) {
	updates := make(map[string]interface{}, len(body)+2)
	for column, value := range body {
		if reportUpdateColumns[column] {
			updates[column] = value
		}
	}

	if value, ok := updates["status"]; ok {
		status, isString := value.(string)
		if !isString || !models.IsValidStatus(status) {
			return nil, NewValidationError("Invalid status")
		}
		if status == models.StatusResolved && report.ResolvedAt == nil {
			updates["resolved_at"] = time.Now().UTC()
		}
	}
	if value, ok := updates["priority"]; ok {
		priority, isString := value.(string)
		if !isString || !models.IsValidPriority(priority) {
			return nil, NewValidationError("Invalid priority")
		}
	}

	lat, lng := report.Lat, report.Lng
	moved := false
	if value, ok := updates["lat"].(float64); ok {
		lat = value
		moved = true
	}
	if value, ok := updates["lng"].(float64); ok {
		lng = value
		moved = true
	}
	if moved {
		updates["location"] = models.Point(lat, lng)
	}

	updates["updated_at"] = time.Now().UTC()
	return updates, nil
}

// classify resolves the caller's standing toward a report, loading the
// owning community and membership when the report belongs to one.
func (h *ReportHandler) classify(ctx context.Context, userID uuid.UUID, report *models.Report) (authz.Actor, error) {
	var community *models.Community
	var membership *models.Membership
	if report.CommunityID != nil {
		var err error
		community, err = h.communities.GetByID(ctx, *report.CommunityID)
		if err != nil {
			return authz.ActorNone, err
		}
		membership, err = h.members.Get(ctx, *report.CommunityID, userID)
		if err != nil {
			return authz.ActorNone, err
		}
	}
	return authz.Classify(userID, &report.UserID, community, membership), nil
}

func (h *ReportHandler) loadCommunity(ctx context.Context, slug string) (*models.Community, error) {
	community, err := h.communities.GetBySlug(ctx, slug)
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		return nil, err
	}
	if community == nil {
		return nil, NewNotFound("Community not found")
	}
	return community, nil
}

func (h *ReportHandler) loadReport(ctx context.Context, rawID string) (*models.Report, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, NewValidationError("Invalid report ID")
	}
	report, err := h.reports.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("Failed to load report", zap.Error(err))
		return nil, err
	}
	if report == nil {
		return nil, NewNotFound("Report not found")
	}
	return report, nil
}

func (h *ReportHandler) loadCommunityReport(ctx context.Context, slug, rawID string) (*models.Community, *models.Report, error) {
	community, err := h.loadCommunity(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, NewValidationError("Invalid report ID")
	}
	report, err := h.reports.GetInCommunity(ctx, community.ID, id)
	if err != nil {
		h.logger.Error("Failed to load report", zap.Error(err))
		return nil, nil, err
	}
	if report == nil {
		return nil, nil, NewNotFound("Report not found")
	}
	return community, report, nil
}

// bufferView records one view in Redis for the reconciler to drain
func (h *ReportHandler) bufferView(report *models.Report) {
	if err := h.cache.IncrReportView(report.ID.String()); err != nil && err != cache.ErrCacheDisabled {
		h.logger.Warn("Failed to buffer report view",
			zap.String("report_id", report.ID.String()), zap.Error(err))
	}
}
