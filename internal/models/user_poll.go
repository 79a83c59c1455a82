package models

import "time"

// UserPollStatus is the stored status of a user-created poll.
type UserPollStatus string

const (
	UserPollDraft     UserPollStatus = "DRAFT"
	UserPollLive      UserPollStatus = "LIVE"
	UserPollScheduled UserPollStatus = "SCHEDULED"
	UserPollClosed    UserPollStatus = "CLOSED"
)

// UserPollType is the answer shape of a user poll.
type UserPollType string

const (
	UserPollSingleChoice UserPollType = "SINGLE_CHOICE"
	UserPollMultiChoice  UserPollType = "MULTI_CHOICE"
	UserPollYesNo        UserPollType = "YES_NO"
)

// UserPollModel is a poll created by an end user.
type UserPollModel struct {
	Base
	CreatorID    uint64         `json:"creator_id"     gorm:"index;not null"`
	CategoryID   uint64         `json:"category_id"    gorm:"index;not null"`
	Title        string         `json:"title"          gorm:"not null"`
	Description  string         `json:"description"    gorm:"type:text"`
	Type         UserPollType   `json:"type"           gorm:"type:varchar(32);not null"`
	Status       UserPollStatus `json:"status"         gorm:"type:varchar(16);index;not null"`
	IsInviteOnly bool           `json:"is_invite_only" gorm:"not null;default:false"`
	StartAt      *time.Time     `json:"start_at"`
	EndAt        *time.Time     `json:"end_at"`

	Options []UserPollOption `json:"options,omitempty" gorm:"foreignKey:PollID"`
}

func (UserPollModel) TableName() string { return "user_polls" }

// EffectiveStatus applies the lazy time-based transitions readers observe.
func (p *UserPollModel) EffectiveStatus(now time.Time) UserPollStatus {
	switch p.Status {
	case UserPollLive, UserPollScheduled:
		if p.EndAt != nil && !now.Before(*p.EndAt) {
			return UserPollClosed
		}
		if p.Status == UserPollScheduled && p.StartAt != nil && !now.Before(*p.StartAt) {
			return UserPollLive
		}
	}
	return p.Status
}

// UserPollOption is one ordered choice of a user poll.
type UserPollOption struct {
	Base
	PollID       uint64 `json:"poll_id"       gorm:"index;not null"`
	Label        string `json:"label"         gorm:"not null"`
	DisplayOrder int    `json:"display_order" gorm:"not null"`
}

func (UserPollOption) TableName() string { return "user_poll_options" }

// InviteGroupModel is an owner-scoped list of mobiles reused across invites.
type InviteGroupModel struct {
	Base
	OwnerID uint64              `json:"owner_id" gorm:"index;not null"`
	Name    string              `json:"name"     gorm:"not null"`
	Members []InviteGroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

func (InviteGroupModel) TableName() string { return "invite_groups" }

// InviteGroupMember is a normalized mobile belonging to a group.
type InviteGroupMember struct {
	Base
	GroupID uint64 `json:"group_id" gorm:"uniqueIndex:uniq_group_member;not null"`
	Mobile  string `json:"mobile"   gorm:"size:32;uniqueIndex:uniq_group_member;not null"`
}

func (InviteGroupMember) TableName() string { return "invite_group_members" }
