package models

import (
	"time"

	"github.com/google/uuid"
)

// Report represents an infrastructure issue filed by a resident
type Report struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null;column:title" json:"title"`
	Description string    `gorm:"type:varchar(5000);not null;default:'';column:description" json:"description"`
	Category    string    `gorm:"type:varchar(64);not null;column:category" json:"category"`
	Status      string    `gorm:"type:varchar(16);not null;default:'pending';column:status" json:"status"`
	Priority    string    `gorm:"type:varchar(16);not null;default:'medium';column:priority" json:"priority"`

	// Reported location
	Lat      float64 `gorm:"not null;column:lat" json:"lat"`
	Lng      float64 `gorm:"not null;column:lng" json:"lng"`
	Location string  `gorm:"type:varchar(64);not null;default:'';column:location" json:"-"`
	Address  string  `gorm:"type:varchar(255);not null;default:'';column:address" json:"address"`

	ImageURL string `gorm:"type:varchar(1024);not null;default:'';column:image_url" json:"image_url"`

	// CommunityID is nil for reports filed outside any community
	CommunityID *uuid.UUID `gorm:"type:uuid;index:reports_community_ix;column:community_id" json:"community_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;column:user_id" json:"user_id"`

	// ResolvedAt is set on the first transition to resolved and never overwritten
	ResolvedAt      *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
	ResolutionNotes string     `gorm:"type:varchar(5000);not null;default:'';column:resolution_notes" json:"resolution_notes"`

	UpvoteCount int64 `gorm:"not null;default:0;column:upvote_count" json:"upvote_count"`
	ViewCount   int64 `gorm:"not null;default:0;column:view_count" json:"view_count"`

	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "reports"
}

// Canonical report status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// IsValidStatus reports whether status is one of the canonical report statuses
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	default:
		return false
	}
}

// Report priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// IsValidPriority reports whether priority is one of the known report priorities
func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}
