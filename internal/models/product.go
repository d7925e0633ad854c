package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Product is a community-submitted catalog entry. It is hidden from the
// default listing until a moderator verifies it.
type Product struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Brand       string `gorm:"size:120" json:"brand"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:64;index" json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
	SubmittedBy uint   `gorm:"not null;index" json:"submitted_by"`

	IsVerified bool       `gorm:"not null;default:false;index" json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy *uint      `json:"verified_by,omitempty"`

	// The running aggregate is a sum and a count so concurrent reviews can
	// be applied with atomic increments. The mean is derived on read.
	RatingSum     int64   `gorm:"not null;default:0" json:"-"`
	RatingCount   int64   `gorm:"not null;default:0" json:"total_reviews"`
	AverageRating float64 `gorm:"-" json:"average_rating"`

	LikeCount    int  `gorm:"not null;default:0" json:"like_count"`
	CommentCount int  `gorm:"not null;default:0" json:"comment_count"`
	Liked        bool `gorm:"-" json:"liked"`

	Annotations []ProductAnnotation `gorm:"foreignKey:ProductID" json:"annotations,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref returns the product's item address.
func (p *Product) Ref() ItemRef {
	return ItemRef{Kind: ItemKindProduct, ID: p.ID}
}

// ComputeAverage refreshes AverageRating from the stored aggregate,
// rounded to two decimals.
func (p *Product) ComputeAverage() {
	if p.RatingCount <= 0 {
		p.AverageRating = 0
		return
	}
	avg := float64(p.RatingSum) / float64(p.RatingCount)
	p.AverageRating = math.Round(avg*100) / 100
}

// AfterFind derives the mean for every loaded product.
func (p *Product) AfterFind(_ *gorm.DB) error {
	p.ComputeAverage()
	return nil
}

// ProductAnnotation is an append-only moderator note recorded on approval.
type ProductAnnotation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ModeratorID uint      `gorm:"not null" json:"moderator_id"`
	Note        string    `gorm:"type:text" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReviewStatus tracks whether a review counts toward its product's aggregate.
type ReviewStatus string

const (
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusPending  ReviewStatus = "pending"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ProductReview is one user's rating of a product.
type ProductReview struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProductID uint         `gorm:"not null;index:idx_reviews_product_status,priority:1" json:"product_id"`
	UserID    uint         `gorm:"not null;index" json:"user_id"`
	UserName  string       `gorm:"size:120" json:"user_name"`
	Rating    int          `gorm:"not null;check:chk_product_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string       `gorm:"type:text" json:"comment"`
	Status    ReviewStatus `gorm:"type:varchar(16);not null;default:'approved';index:idx_reviews_product_status,priority:2" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
