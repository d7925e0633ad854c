package models

import (
	"time"

	"gorm.io/gorm"
)

// Reaction is one user's like of one item. The unique index keeps the
// ledger at most one row per (item, user).
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemKind  ItemKind  `gorm:"type:varchar(16);not null;uniqueIndex:idx_reactions_item_user,priority:1" json:"item_kind"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_reactions_item_user,priority:2" json:"item_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reactions_item_user,priority:3;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionState is returned to the caller after a toggle.
type ReactionState struct {
	Item      ItemRef `json:"item"`
	Liked     bool    `json:"liked"`
	LikeCount int     `json:"like_count"`
}

// Comment belongs to one item. A nil ParentID marks a root comment; replies
// point at a root, never at another reply.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ItemKind   ItemKind       `gorm:"type:varchar(16);not null;index:idx_comments_item,priority:1" json:"item_kind"`
	ItemID     uint           `gorm:"not null;index:idx_comments_item,priority:2" json:"item_id"`
	AuthorID   uint           `gorm:"not null;index" json:"author_id"`
	AuthorName string         `gorm:"size:120" json:"author_name"`
	Body       string         `gorm:"type:text;not null" json:"body"`
	ParentID   *uint          `gorm:"index" json:"parent_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Ref returns the item the comment belongs to.
func (c *Comment) Ref() ItemRef {
	return ItemRef{Kind: c.ItemKind, ID: c.ItemID}
}

// IsReply reports whether the comment has a parent.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// ThreadNode is a root comment with its replies.
type ThreadNode struct {
	*Comment
	Replies []*Comment `json:"replies"`
}
