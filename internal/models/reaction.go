package models

import (
	"fmt"
	"strings"
	"time"
)

// TargetType identifies what kind of entity a reaction is attached to.
type TargetType string

const (
	TargetTypePost    TargetType = "POST"
	TargetTypeComment TargetType = "COMMENT"
)

// ParseTargetType converts user input into a TargetType.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(strings.ToUpper(strings.TrimSpace(s))) {
	case TargetTypePost:
		return TargetTypePost, nil
	case TargetTypeComment:
		return TargetTypeComment, nil
	}
	return "", NewValidationError(fmt.Sprintf("Unknown reaction target type %q", s))
}

// ReactionType is the kind of reaction a user leaves.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionLove    ReactionType = "love"
	ReactionHaha    ReactionType = "haha"
	ReactionWow     ReactionType = "wow"
	ReactionSad     ReactionType = "sad"
	ReactionAngry   ReactionType = "angry"
	ReactionDislike ReactionType = "dislike"
)

// ReactionTypes lists every accepted reaction type.
var ReactionTypes = []ReactionType{
	ReactionLike,
	ReactionLove,
	ReactionHaha,
	ReactionWow,
	ReactionSad,
	ReactionAngry,
	ReactionDislike,
}

// ParseReactionType converts user input into a ReactionType.
func ParseReactionType(s string) (ReactionType, error) {
	candidate := ReactionType(strings.ToLower(strings.TrimSpace(s)))
	for _, rt := range ReactionTypes {
		if rt == candidate {
			return rt, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("Unknown reaction type %q", s))
}

// Reaction is a user's reaction on a post or a comment.
// The combination of UserID, TargetType and TargetID must be unique.
type Reaction struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;uniqueIndex:idx_reactions_user_target,priority:1" json:"user_id"`
	TargetType   TargetType   `gorm:"type:varchar(16);not null;uniqueIndex:idx_reactions_user_target,priority:2;index:idx_reactions_target,priority:1" json:"target_type"`
	TargetID     uint         `gorm:"not null;uniqueIndex:idx_reactions_user_target,priority:3;index:idx_reactions_target,priority:2" json:"target_id"`
	ReactionType ReactionType `gorm:"type:varchar(16);not null" json:"reaction_type"`
	CreatedAt    time.Time    `json:"created_at"`
}
