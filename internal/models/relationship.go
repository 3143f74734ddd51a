// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelationshipStatus represents the status of a relationship between two users.
type RelationshipStatus string

const (
	// RelationshipStatusPending indicates a friend request awaiting a response.
	RelationshipStatusPending RelationshipStatus = "pending"
	// RelationshipStatusAccepted indicates the two users are friends.
	RelationshipStatusAccepted RelationshipStatus = "accepted"
	// RelationshipStatusBlocked is set by moderation only and freezes the pair.
	RelationshipStatusBlocked RelationshipStatus = "blocked"
)

// Relationship is the single row stored for an unordered pair of users.
// UserID/FriendID keep insert-time positions; PairLow/PairHigh hold the
// sorted pair and carry the uniqueness constraint.
type Relationship struct {
	ID          string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string             `gorm:"type:varchar(64);not null;index" json:"user_id"`
	FriendID    string             `gorm:"type:varchar(64);not null;index" json:"friend_id"`
	PairLow     string             `gorm:"type:varchar(64);not null;uniqueIndex:idx_relationships_pair" json:"-"`
	PairHigh    string             `gorm:"type:varchar(64);not null;uniqueIndex:idx_relationships_pair" json:"-"`
	RequestedBy string             `gorm:"type:varchar(64);not null" json:"requested_by"`
	Status      RelationshipStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_relationships_status" json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Relationship) TableName() string {
	return "relationships"
}

// BeforeCreate assigns the id and normalized pair key.
func (r *Relationship) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.PairLow, r.PairHigh = PairKey(r.UserID, r.FriendID)
	return nil
}

// PairKey orders two user ids so that {a,b} and {b,a} share one key.
func PairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Other returns the member of the pair that is not me.
func (r *Relationship) Other(me string) string {
	if r.UserID == me {
		return r.FriendID
	}
	return r.UserID
}

// Since is the time the relationship reached its current state.
func (r *Relationship) Since() time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// Friend is the normalized view of an accepted relationship.
type Friend struct {
	RelationshipID string    `json:"relationship_id"`
	UserID         string    `json:"user_id"`
	Since          time.Time `json:"since"`
}

// FriendRequest is the normalized view of a pending relationship.
type FriendRequest struct {
	RelationshipID string    `json:"relationship_id"`
	UserID         string    `json:"user_id"`
	RequestedAt    time.Time `json:"requested_at"`
}

// FriendRequests partitions pending relationships by direction.
type FriendRequests struct {
	Outgoing []FriendRequest `json:"outgoing"`
	Incoming []FriendRequest `json:"incoming"`
}
