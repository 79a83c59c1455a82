package models

import (
	"time"
)

// Base is the base model for all entities. IDs are numeric so that
// boundary identities such as "user:<id>" stay stable and compact.
type Base struct {
	ID        uint64    `json:"id"       gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"modified"`
}

// PollKind distinguishes the two poll tables that share invites and votes.
type PollKind string

const (
	PollKindPoll     PollKind = "POLL"
	PollKindUserPoll PollKind = "USER_POLL"
)
