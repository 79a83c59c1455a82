package userpoll

import (
	"time"

	"github.com/votehub/core/internal/models"
)

// StartMode chooses the initial status of a user poll.
type StartMode string

const (
	StartInstant   StartMode = "INSTANT"
	StartScheduled StartMode = "SCHEDULED"
)

type CreateUserPollDTO struct {
	CategoryID   uint64              `json:"category_id"    binding:"required"`
	Title        string              `json:"title"          binding:"required"`
	Description  string              `json:"description"`
	Type         models.UserPollType `json:"type"           binding:"required,oneof=SINGLE_CHOICE MULTI_CHOICE YES_NO"`
	IsInviteOnly bool                `json:"is_invite_only"`
	StartMode    StartMode           `json:"start_mode"     binding:"required,oneof=INSTANT SCHEDULED"`
	StartAt      *time.Time          `json:"start_at"`
	EndAt        *time.Time          `json:"end_at"`
	Options      []string            `json:"options"`
}

type ExtendDTO struct {
	EndAt time.Time `json:"end_at"`
}

type NewGroupDTO struct {
	Name    string   `json:"name"    binding:"required"`
	Mobiles []string `json:"mobiles"`
}

type BulkInviteDTO struct {
	GroupIDs []uint64     `json:"group_ids"`
	NewGroup *NewGroupDTO `json:"new_group"`
	Mobiles  []string     `json:"mobiles"`
}

// UserPollView is a poll as readers observe it at a point in time.
type UserPollView struct {
	models.UserPollModel
	EffectiveStatus models.UserPollStatus `json:"effective_status"`
}

type BulkInviteResult struct {
	GroupID *uint64 `json:"group_id,omitempty"`
	Total   int     `json:"total"`
	Created int64   `json:"created"`
}
