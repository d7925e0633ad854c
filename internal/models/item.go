// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ItemKind names a reactable, commentable content type.
type ItemKind string

const (
	ItemKindPost    ItemKind = "post"
	ItemKindArticle ItemKind = "article"
	ItemKindProduct ItemKind = "product"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindPost, ItemKindArticle, ItemKindProduct:
		return true
	}
	return false
}

// Editorial reports whether k is stored in the items table.
func (k ItemKind) Editorial() bool {
	return k == ItemKindPost || k == ItemKindArticle
}

// ParseItemKind accepts singular and plural forms ("post", "posts").
func ParseItemKind(raw string) (ItemKind, error) {
	k := ItemKind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s"))
	if !k.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown item kind %q", raw))
	}
	return k, nil
}

// ItemRef addresses one item of any kind.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   uint     `json:"id"`
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Item is a post or an article. Products live in their own table but carry
// the same counters.
type Item struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Kind         ItemKind  `gorm:"type:varchar(16);not null;index:idx_items_kind_created,priority:1" json:"kind"`
	AuthorID     uint      `gorm:"not null;index" json:"author_id"`
	AuthorName   string    `gorm:"size:120" json:"author_name"`
	Title        string    `gorm:"not null" json:"title"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	Category     string    `gorm:"size:64;index" json:"category"`
	ImageURL     string    `json:"image_url,omitempty"`
	IsExpert     bool      `gorm:"not null;default:false" json:"is_expert"`
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	Liked        bool      `gorm:"-" json:"liked"`
	CreatedAt    time.Time `gorm:"index:idx_items_kind_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ref returns the item's address.
func (i *Item) Ref() ItemRef {
	return ItemRef{Kind: i.Kind, ID: i.ID}
}

// ItemSort selects listing order.
type ItemSort string

const (
	SortNewest ItemSort = "new"
	SortTop    ItemSort = "top"
)
