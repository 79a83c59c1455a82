package models

import "time"

// PollStatus is the one-directional lifecycle of an admin poll.
type PollStatus string

const (
	PollDraft     PollStatus = "DRAFT"
	PollPublished PollStatus = "PUBLISHED"
	PollClosed    PollStatus = "CLOSED"
)

// PollModel is an admin-curated poll backed by a PollConfig.
type PollModel struct {
	Base
	Title        string     `json:"title"          gorm:"not null"`
	Description  string     `json:"description"    gorm:"type:text"`
	CategoryID   uint64     `json:"category_id"    gorm:"index;not null"`
	PollConfigID uint64     `json:"poll_config_id" gorm:"index;not null"`
	Status       PollStatus `json:"status"         gorm:"type:varchar(16);index;not null;default:DRAFT"`
	StartAt      *time.Time `json:"start_at"`
	EndAt        *time.Time `json:"end_at"`
	CreatedBy    uint64     `json:"created_by"`

	Category   *CategoryModel   `json:"category,omitempty"    gorm:"foreignKey:CategoryID"`
	PollConfig *PollConfigModel `json:"poll_config,omitempty" gorm:"foreignKey:PollConfigID"`
}

func (PollModel) TableName() string { return "polls" }
