package api

import (
	"context"
	"encoding/json"
	"fmt"
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

// communityCacheTTL bounds staleness of cached community reads.
// Denormalized counters may lag by up to this long.
const communityCacheTTL = 30 * time.Second

// slugSuffixLimit caps the numeric suffix probe before falling back to
// a random suffix.
const slugSuffixLimit = 50

var communityListKey = cache.HashKey("communities", "list")

// communityUpdateColumns is the allow-list of client-updatable columns.
// admin_id, slug and the counters are never accepted from the client.
var communityUpdateColumns = map[string]bool{
	"name":        true,
	"description": true,
	"category":    true,
	"center_lat":  true,
	"center_lng":  true,
	"address":     true,
	"radius_km":   true,
	"icon_url":    true,
	"banner_url":  true,
	"is_active":   true,
}

// CommunityHandler serves the community endpoints
type CommunityHandler struct {
	communities db.CommunityStore
	members     db.MembershipStore
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewCommunityHandler creates a community handler
func NewCommunityHandler(communities db.CommunityStore, members db.MembershipStore, redisCache *cache.Cache) *CommunityHandler {
	return &CommunityHandler{
		communities: communities,
		members:     members,
		cache:       redisCache,
		logger:      logging.GetLogger().With(zap.String("component", "community_handler")),
	}
}

type createCommunityRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	CenterLat   *float64 `json:"center_lat"`
	CenterLng   *float64 `json:"center_lng"`
	Address     string   `json:"address"`
	RadiusKm    float64  `json:"radius_km"`
	IconURL     string   `json:"icon_url"`
	BannerURL   string   `json:"banner_url"`
}

// List returns all communities, newest first
func (h *CommunityHandler) List(c *gin.Context) {
	if cached, err := h.cache.Get(communityListKey); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	communities, err := h.communities.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list communities", zap.Error(err))
		respondError(c, err)
		return
	}

	payload := gin.H{"communities": communities}
	if data, err := json.Marshal(payload); err == nil {
		_ = h.cache.Set(communityListKey, data, communityCacheTTL)
	}
	c.JSON(http.StatusOK, payload)
}

// Create creates a community and enrolls the creator as its admin
func (h *CommunityHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewValidationError("Invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CenterLat == nil || req.CenterLng == nil {
		respondError(c, NewValidationError("Missing required fields: name, center_lat, center_lng"))
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryCity
	}
	if !models.IsValidCategory(req.Category) {
		respondError(c, NewValidationError("Invalid category"))
		return
	}

	slug, err := h.uniqueSlug(ctx, req.Name)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			h.logger.Error("Failed to derive slug", zap.Error(err))
		}
		respondError(c, err)
		return
	}

	now := time.Now().UTC()
	community := &models.Community{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Category:    req.Category,
		CenterLat:   *req.CenterLat,
		CenterLng:   *req.CenterLng,
		Location:    models.Point(*req.CenterLat, *req.CenterLng),
		Address:     req.Address,
		RadiusKm:    req.RadiusKm,
		IconURL:     req.IconURL,
		BannerURL:   req.BannerURL,
		AdminID:     session.UserID,
		MemberCount: 1,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.communities.Create(ctx, community); err != nil {
		h.logger.Error("Failed to create community", zap.String("slug", slug), zap.Error(err))
		respondError(c, err)
		return
	}

	// The creator joins with the admin role alongside holding admin_id
	membership := &models.Membership{
		CommunityID: community.ID,
		UserID:      session.UserID,
		Role:        models.RoleAdmin,
		CreatedAt:   now,
	}
	if err := h.members.Create(ctx, membership); err != nil {
		// admin_id still grants admin access; the reconciler repairs the count
		h.logger.Error("Failed to enroll creator",
			zap.String("community_id", community.ID.String()), zap.Error(err))
	}

	_ = h.cache.Delete(communityListKey)
	c.JSON(http.StatusCreated, gin.H{"community": community})
}

// Get returns a community with the caller's membership context
func (h *CommunityHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	community, err := h.lookupCommunity(ctx, c.Param("slug"))
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		respondError(c, err)
		return
	}
	if community == nil {
		respondError(c, NewNotFound("Community not found"))
		return
	}

	isMember, isAdmin := false, false
	if session := CurrentSession(c); session != nil {
		membership, err := h.members.Get(ctx, community.ID, session.UserID)
		if err != nil {
			h.logger.Warn("Failed to load membership", zap.Error(err))
			membership = nil
		}
		actor := authz.Classify(session.UserID, nil, community, membership)
		isMember, isAdmin = actor.IsMember(), actor.IsAdmin()
	}

	c.JSON(http.StatusOK, gin.H{
		"community": community,
		"is_member": isMember,
		"is_admin":  isAdmin,
	})
}

// Update applies allow-listed settings changes. Community admins only.
func (h *CommunityHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	community, err := h.communities.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		respondError(c, err)
		return
	}
	if community == nil {
		respondError(c, NewNotFound("Community not found"))
		return
	}

	membership, err := h.members.Get(ctx, community.ID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to load membership", zap.Error(err))
		respondError(c, err)
		return
	}
	actor := authz.Classify(session.UserID, nil, community, membership)
	if !actor.CanManageCommunity() {
		respondError(c, NewForbidden("Admin access required"))
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, NewValidationError("Invalid request body"))
		return
	}

	updates := make(map[string]interface{}, len(body)+2)
	for column, value := range body {
		if communityUpdateColumns[column] {
			updates[column] = value
		}
	}
	if value, ok := updates["name"]; ok {
		name, isString := value.(string)
		if !isString || strings.TrimSpace(name) == "" {
			respondError(c, NewValidationError("Name must not be empty"))
			return
		}
		updates["name"] = strings.TrimSpace(name)
	}
	if value, ok := updates["category"]; ok {
		category, isString := value.(string)
		if !isString || !models.IsValidCategory(category) {
			respondError(c, NewValidationError("Invalid category"))
			return
		}
	}

	// Keep the derived point in step when the center moves
	lat, lng := community.CenterLat, community.CenterLng
	moved := false
	if value, ok := updates["center_lat"].(float64); ok {
		lat = value
		moved = true
	}
	if value, ok := updates["center_lng"].(float64); ok {
		lng = value
		moved = true
	}
	if moved {
		updates["location"] = models.Point(lat, lng)
	}
	updates["updated_at"] = time.Now().UTC()

	updated, err := h.communities.Update(ctx, community.ID, updates)
	if err != nil {
		h.logger.Error("Failed to update community",
			zap.String("slug", community.Slug), zap.Error(err))
		respondError(c, err)
		return
	}

	h.invalidate(community.Slug)
	c.JSON(http.StatusOK, gin.H{"community": updated})
}

// Join enrolls the caller as a member. Joining twice is a no-op that
// reports the existing role.
func (h *CommunityHandler) Join(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	community, err := h.communities.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		respondError(c, err)
		return
	}
	if community == nil {
		respondError(c, NewNotFound("Community not found"))
		return
	}
	if !community.IsActive {
		respondError(c, NewValidationError("Community is not active"))
		return
	}

	existing, err := h.members.Get(ctx, community.ID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to load membership", zap.Error(err))
		respondError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{"joined": true, "role": existing.Role})
		return
	}

	membership := &models.Membership{
		CommunityID: community.ID,
		UserID:      session.UserID,
		Role:        models.RoleMember,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.members.Create(ctx, membership); err != nil {
		h.logger.Error("Failed to join community",
			zap.String("slug", community.Slug), zap.Error(err))
		respondError(c, err)
		return
	}
	if err := h.communities.AddMembers(ctx, community.ID, 1); err != nil {
		h.logger.Warn("Failed to bump member count", zap.Error(err))
	}

	h.invalidate(community.Slug)
	c.JSON(http.StatusCreated, gin.H{"joined": true, "role": models.RoleMember})
}

// Leave removes the caller's membership. Leaving a community the caller
// never joined succeeds without effect.
func (h *CommunityHandler) Leave(c *gin.Context) {
	ctx := c.Request.Context()
	session := CurrentSession(c)

	community, err := h.communities.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		respondError(c, err)
		return
	}
	if community == nil {
		respondError(c, NewNotFound("Community not found"))
		return
	}

	existing, err := h.members.Get(ctx, community.ID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to load membership", zap.Error(err))
		respondError(c, err)
		return
	}
	if existing == nil {
		c.JSON(http.StatusOK, gin.H{"left": true})
		return
	}

	if err := h.members.Delete(ctx, community.ID, session.UserID); err != nil {
		h.logger.Error("Failed to leave community",
			zap.String("slug", community.Slug), zap.Error(err))
		respondError(c, err)
		return
	}
	if err := h.communities.AddMembers(ctx, community.ID, -1); err != nil {
		h.logger.Warn("Failed to drop member count", zap.Error(err))
	}

	h.invalidate(community.Slug)
	c.JSON(http.StatusOK, gin.H{"left": true})
}

// ListMembers returns a community's membership roster
func (h *CommunityHandler) ListMembers(c *gin.Context) {
	ctx := c.Request.Context()

	community, err := h.communities.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.logger.Error("Failed to load community", zap.Error(err))
		respondError(c, err)
		return
	}
	if community == nil {
		respondError(c, NewNotFound("Community not found"))
		return
	}

	memberships, err := h.members.ListByCommunity(ctx, community.ID)
	if err != nil {
		h.logger.Error("Failed to list members",
			zap.String("slug", community.Slug), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": memberships})
}

// uniqueSlug derives a free slug from the community name, probing
// numeric suffixes on collision.
func (h *CommunityHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := models.Slugify(name)
	if base == "" {
		return "", NewValidationError("Name must contain letters or digits")
	}

	slug := base
	for i := 2; ; i++ {
		exists, err := h.communities.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		if i > slugSuffixLimit {
			return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// lookupCommunity reads a community through the cache
func (h *CommunityHandler) lookupCommunity(ctx context.Context, slug string) (*models.Community, error) {
	key := communityKey(slug)
	if cached, err := h.cache.Get(key); err == nil {
		var community models.Community
		if err := json.Unmarshal([]byte(cached), &community); err == nil {
			return &community, nil
		}
	}

	community, err := h.communities.GetBySlug(ctx, slug)
	if err != nil || community == nil {
		return community, err
	}
	if data, err := json.Marshal(community); err == nil {
		_ = h.cache.Set(key, data, communityCacheTTL)
	}
	return community, nil
}

// invalidate drops the cached entries touched by a community write
func (h *CommunityHandler) invalidate(slug string) {
	_ = h.cache.Delete(communityKey(slug))
	_ = h.cache.Delete(communityListKey)
}

func communityKey(slug string) string {
	return "community:" + slug
}
