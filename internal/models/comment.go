// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Comment is a comment on a post. Replies point at their parent through
// ParentCommentID; the pointer is set once at creation and never reassigned.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"author_id"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	Image           string    `gorm:"size:2048" json:"image,omitempty"`
	CreatedAt       time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// AuthorProfile is the display metadata shown next to a comment.
type AuthorProfile struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// CommentNode is one comment in a reply tree as returned to clients.
// Reaction fields are computed at query time.
type CommentNode struct {
	ID              uint                   `json:"id"`
	PostID          uint                   `json:"post_id"`
	AuthorID        uint                   `json:"author_id"`
	ParentCommentID *uint                  `json:"parent_comment_id"`
	Content         string                 `json:"content"`
	Image           string                 `json:"image,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	Author          AuthorProfile          `json:"author"`
	ReactionCount   int64                  `json:"reaction_count"`
	ReactionCounts  map[ReactionType]int64 `json:"reaction_counts"`
	MyReaction      *ReactionType          `json:"my_reaction,omitempty"`
	Replies         []*CommentNode         `json:"replies"`
}
