package models

import "gorm.io/datatypes"

// VoteModel is a single ballot. Each identity facet is unique per poll.
type VoteModel struct {
	Base
	PollKind     PollKind       `json:"poll_kind"      gorm:"type:varchar(16);not null;uniqueIndex:uniq_vote_poll_user,priority:1;uniqueIndex:uniq_vote_poll_invite,priority:1"`
	PollID       uint64         `json:"poll_id"        gorm:"not null;uniqueIndex:uniq_vote_poll_user,priority:2;uniqueIndex:uniq_vote_poll_invite,priority:2"`
	PollConfigID *uint64        `json:"poll_config_id" gorm:"index"`
	UserID       *uint64        `json:"user_id"        gorm:"uniqueIndex:uniq_vote_poll_user,priority:3"`
	InviteID     *uint64        `json:"invite_id"      gorm:"uniqueIndex:uniq_vote_poll_invite,priority:3"`
	Response     datatypes.JSON `json:"response"`
}

func (VoteModel) TableName() string { return "votes" }

// AuditLogModel is an append-only record of sensitive actions.
type AuditLogModel struct {
	Base
	Action     string         `json:"action"      gorm:"size:64;index;not null"`
	ActorID    *uint64        `json:"actor_id"    gorm:"index"`
	EntityType string         `json:"entity_type" gorm:"size:32;not null"`
	EntityID   uint64         `json:"entity_id"   gorm:"index"`
	Payload    datatypes.JSON `json:"payload"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }
