package models

import (
	"strconv"
	"time"
)

// InviteStatus is PENDING until the invitee accepts or rejects.
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRejected InviteStatus = "REJECTED"
)

// InviteModel grants one identity access to an invite-only poll.
// Mobile is NULL for owner self-invites, which are deduplicated in code.
type InviteModel struct {
	Base
	PollKind    PollKind     `json:"poll_kind"    gorm:"type:varchar(16);not null;uniqueIndex:uniq_invite_poll_mobile,priority:1;index:idx_invite_identity,priority:1"`
	PollID      uint64       `json:"poll_id"      gorm:"not null;uniqueIndex:uniq_invite_poll_mobile,priority:2;index:idx_invite_identity,priority:2"`
	Mobile      *string      `json:"mobile"       gorm:"size:32;uniqueIndex:uniq_invite_poll_mobile,priority:3"`
	Identity    string       `json:"identity"     gorm:"size:64;not null;index:idx_invite_identity,priority:3"`
	Token       string       `json:"token"        gorm:"size:64;uniqueIndex;not null"`
	Status      InviteStatus `json:"status"       gorm:"type:varchar(16);not null;default:PENDING"`
	UserID      *uint64      `json:"user_id"      gorm:"index"`
	InvitedBy   uint64       `json:"invited_by"`
	RespondedAt *time.Time   `json:"responded_at"`
}

func (InviteModel) TableName() string { return "poll_invites" }

// UserIdentity is the synthetic invite identity of a registered user.
func UserIdentity(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}
