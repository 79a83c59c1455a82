package pollconfig

import "github.com/votehub/core/internal/models"

type CreateConfigDTO struct {
	Name        string                 `json:"name"        binding:"required"`
	UITemplate  models.UITemplate      `json:"ui_template" binding:"required"`
	Theme       map[string]interface{} `json:"theme"`
	Rules       models.PollRules       `json:"rules"`
	Permissions models.PollPermissions `json:"permissions"`
}

type UpdateConfigDTO struct {
	Name        *string                 `json:"name"`
	UITemplate  *models.UITemplate      `json:"ui_template"`
	Theme       map[string]interface{}  `json:"theme"`
	Rules       *models.PollRules       `json:"rules"`
	Permissions *models.PollPermissions `json:"permissions"`
}
