package models

import "gorm.io/datatypes"

// PollConfigStatus is the publication state of a poll template.
type PollConfigStatus string

const (
	PollConfigDraft    PollConfigStatus = "DRAFT"
	PollConfigActive   PollConfigStatus = "ACTIVE"
	PollConfigDisabled PollConfigStatus = "DISABLED"
)

// UITemplate selects the voting widget and its response shape.
type UITemplate string

const (
	TemplateSingleChoice UITemplate = "SINGLE_CHOICE"
	TemplateMultiChoice  UITemplate = "MULTI_CHOICE"
	TemplateYesNo        UITemplate = "YES_NO"
	TemplateRating       UITemplate = "RATING"
	TemplateRanking      UITemplate = "RANKING"
	TemplateOpenText     UITemplate = "OPEN_TEXT"
)

// Valid reports whether t is a known template.
func (t UITemplate) Valid() bool {
	switch t {
	case TemplateSingleChoice, TemplateMultiChoice, TemplateYesNo, TemplateRating, TemplateRanking, TemplateOpenText:
		return true
	}
	return false
}

// ContentRules bound the shape of a response.
type ContentRules struct {
	MinSelections *int     `json:"minSelections,omitempty" validate:"omitempty,gte=0"`
	MaxSelections *int     `json:"maxSelections,omitempty" validate:"omitempty,gte=1"`
	RatingMin     *float64 `json:"ratingMin,omitempty"`
	RatingMax     *float64 `json:"ratingMax,omitempty"`
	MaxTextLength *int     `json:"maxTextLength,omitempty" validate:"omitempty,gte=1"`
}

// VotingRules control who may vote. RequireAuth refuses ballots without a
// signed-in user, even when they carry an invite.
type VotingRules struct {
	RequireAuth bool `json:"requireAuth"`
}

// ResultRules control result visibility.
type ResultRules struct {
	Visibility string `json:"visibility,omitempty" validate:"omitempty,oneof=ALWAYS AFTER_VOTE AFTER_CLOSE"`
}

// PollRules is the nested rules document of a PollConfig.
type PollRules struct {
	ContentRules ContentRules `json:"contentRules"`
	VotingRules  VotingRules  `json:"votingRules"`
	ResultRules  ResultRules  `json:"resultRules"`
}

// PollPermissions is the permissions document of a PollConfig.
type PollPermissions struct {
	Visibility   string `json:"visibility,omitempty" validate:"omitempty,oneof=PUBLIC PRIVATE UNLISTED"`
	InviteOnly   bool   `json:"inviteOnly"`
	AdminCurated bool   `json:"adminCurated"`
}

// PollConfigModel is a versioned poll template.
type PollConfigModel struct {
	Base
	Name        string                              `json:"name"        gorm:"not null"`
	Slug        string                              `json:"slug"        gorm:"size:191;uniqueIndex;not null"`
	Status      PollConfigStatus                    `json:"status"      gorm:"type:varchar(16);not null;default:DRAFT"`
	Version     int                                 `json:"version"     gorm:"not null;default:1"`
	UITemplate  UITemplate                          `json:"ui_template" gorm:"type:varchar(32);not null"`
	Theme       datatypes.JSONMap                   `json:"theme"`
	Rules       datatypes.JSONType[PollRules]       `json:"rules"`
	Permissions datatypes.JSONType[PollPermissions] `json:"permissions"`
}

func (PollConfigModel) TableName() string { return "poll_configs" }
