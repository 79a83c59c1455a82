package poll

import "time"

type CreatePollDTO struct {
	Title        string     `json:"title"          binding:"required"`
	Description  string     `json:"description"`
	CategoryID   uint64     `json:"category_id"    binding:"required"`
	PollConfigID uint64     `json:"poll_config_id" binding:"required"`
	StartAt      *time.Time `json:"start_at"`
	EndAt        *time.Time `json:"end_at"`
}

type UpdatePollDTO struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	CategoryID   *uint64    `json:"category_id"`
	PollConfigID *uint64    `json:"poll_config_id"`
	StartAt      *time.Time `json:"start_at"`
	EndAt        *time.Time `json:"end_at"`
}

type ListQuery struct {
	Status     string `form:"status"`
	CategoryID uint64 `form:"category_id"`
	Page       int    `form:"page"`
	Size       int    `form:"size"`
}
