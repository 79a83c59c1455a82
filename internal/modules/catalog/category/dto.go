package category

import (
	"encoding/json"

	"github.com/votehub/core/internal/models"
)

type CreateCategoryDTO struct {
	Name     string                `json:"name"      binding:"required"`
	Domain   models.CategoryDomain `json:"domain"    binding:"required,oneof=POLL PROFILE"`
	IsParent bool                  `json:"is_parent"`
	ParentID *uint64               `json:"parent_id"`
	Status   models.CategoryStatus `json:"status"    binding:"omitempty,oneof=ACTIVE DISABLED"`

	Claimable      models.Override `json:"claimable"`
	RequestAllowed models.Override `json:"request_allowed"`
	AdminCurated   models.Override `json:"admin_curated"`

	ClaimableDefault      models.YesNo `json:"claimable_default"       binding:"omitempty,oneof=YES NO"`
	RequestAllowedDefault models.YesNo `json:"request_allowed_default" binding:"omitempty,oneof=YES NO"`
	AdminCuratedDefault   models.YesNo `json:"admin_curated_default"   binding:"omitempty,oneof=YES NO"`
}

// OverridePatch distinguishes an absent field (no change) from an explicit
// null (reset to inherit).
type OverridePatch struct {
	Present bool
	Value   models.Override
}

func (p *OverridePatch) UnmarshalJSON(data []byte) error {
	p.Present = true
	return json.Unmarshal(data, &p.Value)
}

type UpdateCategoryDTO struct {
	Name   *string                `json:"name"`
	Status *models.CategoryStatus `json:"status" binding:"omitempty,oneof=ACTIVE DISABLED"`

	Claimable      OverridePatch `json:"claimable"`
	RequestAllowed OverridePatch `json:"request_allowed"`
	AdminCurated   OverridePatch `json:"admin_curated"`

	ClaimableDefault      *models.YesNo `json:"claimable_default"       binding:"omitempty,oneof=YES NO"`
	RequestAllowedDefault *models.YesNo `json:"request_allowed_default" binding:"omitempty,oneof=YES NO"`
	AdminCuratedDefault   *models.YesNo `json:"admin_curated_default"   binding:"omitempty,oneof=YES NO"`
}

// CategoryView is a category together with its resolved state.
type CategoryView struct {
	models.CategoryModel
	Effective Effective `json:"effective"`
}
