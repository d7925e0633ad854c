package models

import "time"

// ReportTargetKind is the kind of content a report points at.
type ReportTargetKind string

const (
	ReportTargetPost    ReportTargetKind = "post"
	ReportTargetArticle ReportTargetKind = "article"
	ReportTargetProduct ReportTargetKind = "product"
	ReportTargetComment ReportTargetKind = "comment"
	ReportTargetReview  ReportTargetKind = "review"
)

// Valid reports whether k is reportable.
func (k ReportTargetKind) Valid() bool {
	switch k {
	case ReportTargetPost, ReportTargetArticle, ReportTargetProduct, ReportTargetComment, ReportTargetReview:
		return true
	}
	return false
}

// ItemKind maps item targets onto the reaction/comment address space.
func (k ReportTargetKind) ItemKind() (ItemKind, bool) {
	switch k {
	case ReportTargetPost:
		return ItemKindPost, true
	case ReportTargetArticle:
		return ItemKindArticle, true
	case ReportTargetProduct:
		return ItemKindProduct, true
	}
	return "", false
}

// ReportReason is the closed set of reasons a user may cite.
type ReportReason string

const (
	ReasonUnsafePractice ReportReason = "unsafe-practice"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonUnsafePractice, ReasonMisinformation, ReasonSpam, ReasonHarassment, ReasonOther:
		return true
	}
	return false
}

// ReportStatus is the report lifecycle state. Resolved reports are deleted,
// so only pending is ever stored.
type ReportStatus string

const ReportStatusPending ReportStatus = "pending"

// ResolveAction is a moderator's decision on a report.
type ResolveAction string

const (
	ResolveDismiss      ResolveAction = "dismiss"
	ResolveRemoveTarget ResolveAction = "remove_target"
)

// Valid reports whether a is a known action.
func (a ResolveAction) Valid() bool {
	return a == ResolveDismiss || a == ResolveRemoveTarget
}

// Report is a user complaint about a piece of content.
type Report struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	TargetKind  ReportTargetKind `gorm:"type:varchar(16);not null;index:idx_reports_target,priority:1" json:"target_kind"`
	TargetID    uint             `gorm:"not null;index:idx_reports_target,priority:2" json:"target_id"`
	TargetTitle string           `gorm:"size:300" json:"target_title"`
	Reason      ReportReason     `gorm:"type:varchar(32);not null" json:"reason"`
	Details     string           `gorm:"type:text" json:"details,omitempty"`
	ReporterID  uint             `gorm:"not null;index" json:"reporter_id"`
	Status      ReportStatus     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// ReportResolution summarizes what Resolve did.
type ReportResolution struct {
	ReportID       uint          `json:"report_id"`
	Action         ResolveAction `json:"action"`
	TargetRemoved  bool          `json:"target_removed"`
	ReportsCleared int64         `json:"reports_cleared"`
}
