package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileStatus controls whether a public profile is visible and votable.
type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "ACTIVE"
	ProfileDisabled ProfileStatus = "DISABLED"
)

// ProfileModel is a claimable public profile carrying a cached PSI score.
type ProfileModel struct {
	Base
	CategoryID      uint64        `json:"category_id"        gorm:"index;not null;uniqueIndex:uniq_profile_slug,priority:1"`
	Name            string        `json:"name"               gorm:"not null"`
	Slug            string        `json:"slug"               gorm:"size:191;not null;uniqueIndex:uniq_profile_slug,priority:2"`
	Bio             string        `json:"bio"                gorm:"type:text"`
	Status          ProfileStatus `json:"status"             gorm:"type:varchar(16);not null;default:ACTIVE"`
	ClaimedByUserID *uint64       `json:"claimed_by_user_id" gorm:"index"`

	PsiScore          int        `json:"psi_score"         gorm:"not null;default:0"`
	PsiIntegrity      float64    `json:"psi_integrity"     gorm:"not null;default:50"`
	PsiCompetence     float64    `json:"psi_competence"    gorm:"not null;default:50"`
	PsiResponsiveness float64    `json:"psi_responsiveness" gorm:"not null;default:50"`
	PsiTransparency   float64    `json:"psi_transparency"  gorm:"not null;default:50"`
	PsiVoteCount      int64      `json:"psi_vote_count"    gorm:"not null;default:0"`
	PsiUpdatedAt      *time.Time `json:"psi_updated_at"`
}

func (ProfileModel) TableName() string { return "profiles" }

// ReviewStatus is the terminal-once lifecycle of claims and requests.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// ProfileClaimModel is a user's request to take ownership of a profile.
type ProfileClaimModel struct {
	Base
	ProfileID     uint64            `json:"profile_id"     gorm:"index;not null"`
	UserID        uint64            `json:"user_id"        gorm:"index;not null"`
	Status        ReviewStatus      `json:"status"         gorm:"type:varchar(16);index;not null;default:PENDING"`
	SubmittedData datatypes.JSONMap `json:"submitted_data"`
	Documents     datatypes.JSON    `json:"documents"`
	Reason        string            `json:"reason"`
	ReviewedBy    *uint64           `json:"reviewed_by"`
	ReviewedAt    *time.Time        `json:"reviewed_at"`
}

func (ProfileClaimModel) TableName() string { return "profile_claims" }

// ProfileRequestModel asks admins to create a profile that does not exist yet.
type ProfileRequestModel struct {
	Base
	CategoryID    uint64            `json:"category_id"    gorm:"index;not null"`
	UserID        uint64            `json:"user_id"        gorm:"index;not null"`
	RequestedName string            `json:"requested_name" gorm:"not null"`
	Status        ReviewStatus      `json:"status"         gorm:"type:varchar(16);index;not null;default:PENDING"`
	SubmittedData datatypes.JSONMap `json:"submitted_data"`
	Documents     datatypes.JSON    `json:"documents"`
	Reason        string            `json:"reason"`
	ProfileID     *uint64           `json:"profile_id"`
	ReviewedBy    *uint64           `json:"reviewed_by"`
	ReviewedAt    *time.Time        `json:"reviewed_at"`
}

func (ProfileRequestModel) TableName() string { return "profile_requests" }

// PsiVoteModel is one voter's current rating of a profile.
type PsiVoteModel struct {
	Base
	ProfileID      uint64  `json:"profile_id"     gorm:"not null;uniqueIndex:uniq_psi_profile_user,priority:1"`
	UserID         uint64  `json:"user_id"        gorm:"not null;index;uniqueIndex:uniq_psi_profile_user,priority:2"`
	Weight         float64 `json:"weight"         gorm:"not null"`
	Integrity      float64 `json:"integrity"      gorm:"not null"`
	Competence     float64 `json:"competence"     gorm:"not null"`
	Responsiveness float64 `json:"responsiveness" gorm:"not null"`
	Transparency   float64 `json:"transparency"   gorm:"not null"`
}

func (PsiVoteModel) TableName() string { return "psi_votes" }
