// Package authz decides what the requesting user may do to a community
// or a report. Every write path runs the same classification; there is
// deliberately no second, weaker policy for dashboard-style updates.
package authz

import (
	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/models"
)

// Actor classifies the requesting user relative to a community and an
// optional resource owner. Exactly one standing applies; the strongest
// wins when several would.
type Actor int

const (
	// ActorNone is an anonymous user or a non-member
	ActorNone Actor = iota
	// ActorMember holds a plain membership row
	ActorMember
	// ActorMemberAdmin holds a membership row with the admin role
	ActorMemberAdmin
	// ActorCommunityAdmin is the community's owning user (admin_id)
	ActorCommunityAdmin
	// ActorOwner created the resource being acted on
	ActorOwner
)

// String returns the actor name
func (a Actor) String() string {
	switch a {
	case ActorMember:
		return "member"
	case ActorMemberAdmin:
		return "member_admin"
	case ActorCommunityAdmin:
		return "community_admin"
	case ActorOwner:
		return "owner"
	default:
		return "none"
	}
}

// Classify returns the strongest standing userID holds. ownerID is the
// resource owner when acting on a report, nil when acting on the
// community itself. community and membership may be nil.
func Classify(userID uuid.UUID, ownerID *uuid.UUID, community *models.Community, membership *models.Membership) Actor {
	if userID == uuid.Nil {
		return ActorNone
	}
	if ownerID != nil && *ownerID == userID {
		return ActorOwner
	}
	if community != nil && community.AdminID == userID {
		return ActorCommunityAdmin
	}
	if membership != nil {
		if membership.Role == models.RoleAdmin {
			return ActorMemberAdmin
		}
		return ActorMember
	}
	return ActorNone
}

// CanManageCommunity reports whether the actor may update community settings
func (a Actor) CanManageCommunity() bool {
	return a == ActorCommunityAdmin || a == ActorMemberAdmin
}

// CanModifyReport reports whether the actor may update or delete a report
func (a Actor) CanModifyReport() bool {
	return a == ActorOwner || a == ActorCommunityAdmin || a == ActorMemberAdmin
}

// IsMember reports whether the actor counts as a community member.
// The community's owning user is an implicit member without a row.
func (a Actor) IsMember() bool {
	return a == ActorMember || a == ActorMemberAdmin || a == ActorCommunityAdmin
}

// IsAdmin reports whether the actor counts as a community admin
func (a Actor) IsAdmin() bool {
	return a == ActorMemberAdmin || a == ActorCommunityAdmin
}
