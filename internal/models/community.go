package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Community represents a geographic community that residents join to
// file and browse infrastructure reports
type Community struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null;column:name" json:"name"`
	Slug        string    `gorm:"type:varchar(140);not null;uniqueIndex:communities_slug_ux;column:slug" json:"slug"`
	Description string    `gorm:"type:varchar(5000);not null;default:'';column:description" json:"description"`
	Category    string    `gorm:"type:varchar(32);not null;default:'city';column:category" json:"category"`

	// Geographic center and coverage
	CenterLat float64 `gorm:"not null;column:center_lat" json:"center_lat"`
	CenterLng float64 `gorm:"not null;column:center_lng" json:"center_lng"`
	Location  string  `gorm:"type:varchar(64);not null;default:'';column:location" json:"-"`
	Address   string  `gorm:"type:varchar(255);not null;default:'';column:address" json:"address"`
	RadiusKm  float64 `gorm:"not null;default:0;column:radius_km" json:"radius_km"`

	IconURL   string `gorm:"type:varchar(1024);not null;default:'';column:icon_url" json:"icon_url"`
	BannerURL string `gorm:"type:varchar(1024);not null;default:'';column:banner_url" json:"banner_url"`

	// AdminID is the owning user; membership rows may grant further admins
	AdminID uuid.UUID `gorm:"type:uuid;not null;column:admin_id" json:"admin_id"`

	// Denormalized counters, repaired by the reconciler
	MemberCount int64 `gorm:"not null;default:0;column:member_count" json:"member_count"`
	ReportCount int64 `gorm:"not null;default:0;column:report_count" json:"report_count"`

	IsVerified bool      `gorm:"not null;default:false;column:is_verified" json:"is_verified"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedAt  time.Time `gorm:"not null;column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Community
func (Community) TableName() string {
	return "communities"
}

// Community category constants
const (
	CategoryCity         = "city"
	CategoryNeighborhood = "neighborhood"
	CategoryDistrict     = "district"
	CategoryCampus       = "campus"
	CategoryRegion       = "region"
)

// IsValidCategory reports whether category is one of the known community categories
func IsValidCategory(category string) bool {
	switch category {
	case CategoryCity, CategoryNeighborhood, CategoryDistrict, CategoryCampus, CategoryRegion:
		return true
	default:
		return false
	}
}

// Membership represents a user's membership in a community
type Membership struct {
	CommunityID uuid.UUID `gorm:"type:uuid;primaryKey;column:community_id" json:"community_id"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	Role        string    `gorm:"type:varchar(16);not null;default:'member';column:role" json:"role"`
	CreatedAt   time.Time `gorm:"not null;column:created_at" json:"created_at"`

	// Relationships
	Community *Community `gorm:"foreignKey:CommunityID;references:ID" json:"-"`
}

// TableName specifies the table name for Membership
func (Membership) TableName() string {
	return "community_members"
}

// Membership role constants
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a community name.
// Slugs are immutable after creation.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Point formats a geographic point column value from lat/lng
func Point(lat, lng float64) string {
	return fmt.Sprintf("POINT(%g %g)", lng, lat)
}
