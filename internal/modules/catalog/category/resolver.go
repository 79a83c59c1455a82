package category

import (
	"context"
	"errors"

	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Effective is the resolved permission state of a category.
type Effective struct {
	Claimable      models.YesNo          `json:"claimable"`
	RequestAllowed models.YesNo          `json:"request_allowed"`
	AdminCurated   models.YesNo          `json:"admin_curated"`
	Status         models.CategoryStatus `json:"status"`
}

// Open reports whether the category is ACTIVE and both claimable and
// request-allowed, which is what poll creation requires.
func (e Effective) Open() bool {
	return e.Status == models.CategoryActive && e.Claimable == models.Yes && e.RequestAllowed == models.Yes
}

// Resolve computes effective values from a category and its immediate parent.
// parent is nil for parents themselves and for orphaned children.
func Resolve(cat *models.CategoryModel, parent *models.CategoryModel) Effective {
	if cat.IsParent {
		return Effective{
			Claimable:      orNo(cat.ClaimableDefault),
			RequestAllowed: orNo(cat.RequestAllowedDefault),
			AdminCurated:   orNo(cat.AdminCuratedDefault),
			Status:         cat.Status,
		}
	}
	if parent == nil {
		// orphan: fail closed
		return Effective{
			Claimable:      cat.Claimable.Or(models.No),
			RequestAllowed: cat.RequestAllowed.Or(models.No),
			AdminCurated:   cat.AdminCurated.Or(models.No),
			Status:         cat.Status,
		}
	}
	status := cat.Status
	if parent.Status == models.CategoryDisabled {
		status = models.CategoryDisabled
	}
	return Effective{
		Claimable:      cat.Claimable.Or(orNo(parent.ClaimableDefault)),
		RequestAllowed: cat.RequestAllowed.Or(orNo(parent.RequestAllowedDefault)),
		AdminCurated:   cat.AdminCurated.Or(orNo(parent.AdminCuratedDefault)),
		Status:         status,
	}
}

func orNo(v models.YesNo) models.YesNo {
	if v.Valid() {
		return v
	}
	return models.No
}

// Resolver reads categories from the store and resolves their effective state.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveEffective returns nil when the category does not exist or belongs to
// another domain.
func (r *Resolver) ResolveEffective(ctx context.Context, id uint64, domain models.CategoryDomain) (*Effective, error) {
	cat, parent, err := r.load(ctx, id)
	if err != nil || cat == nil {
		return nil, err
	}
	if cat.Domain != domain {
		return nil, nil
	}
	eff := Resolve(cat, parent)
	return &eff, nil
}

// Lookup returns the category with its effective state, or nil if missing.
func (r *Resolver) Lookup(ctx context.Context, id uint64) (*models.CategoryModel, *Effective, error) {
	cat, parent, err := r.load(ctx, id)
	if err != nil || cat == nil {
		return nil, nil, err
	}
	eff := Resolve(cat, parent)
	return cat, &eff, nil
}

func (r *Resolver) load(ctx context.Context, id uint64) (*models.CategoryModel, *models.CategoryModel, error) {
	var cat models.CategoryModel
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if cat.IsParent || cat.ParentID == nil {
		return &cat, nil, nil
	}
	var parent models.CategoryModel
	if err := r.db.WithContext(ctx).First(&parent, *cat.ParentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &cat, nil, nil
		}
		return nil, nil, err
	}
	return &cat, &parent, nil
}

// RequireOpenChild applies the category checks shared by admin and user
// poll creation, in order: existence in domain, child level, effective
// status, then effective claimable and request-allowed.
func (r *Resolver) RequireOpenChild(ctx context.Context, id uint64, domain models.CategoryDomain) (*models.CategoryModel, error) {
	cat, eff, err := r.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.Domain != domain {
		return nil, apperr.New(apperr.CategoryNotFound, "category not found")
	}
	if cat.IsParent {
		return nil, apperr.New(apperr.CategoryNotChild, "polls must target a child category")
	}
	if cat.Status != models.CategoryActive || eff.Status != models.CategoryActive {
		return nil, apperr.New(apperr.CategoryNotActive, "category is not active")
	}
	if eff.Claimable != models.Yes || eff.RequestAllowed != models.Yes {
		return nil, apperr.New(apperr.CategoryNotAllowed, "category does not allow polls")
	}
	return cat, nil
}

// ImpactPreview lists the children a change of parent defaults would reach.
type ImpactPreview struct {
	AffectedChildCount int      `json:"affected_child_count"`
	AffectedChildIDs   []uint64 `json:"affected_child_ids"`
}

// Defaults are proposed parent default values.
type Defaults struct {
	Claimable      *models.YesNo `json:"claimable_default"`
	RequestAllowed *models.YesNo `json:"request_allowed_default"`
	AdminCurated   *models.YesNo `json:"admin_curated_default"`
}

const previewIDLimit = 10

// PreviewImpact counts direct children that currently inherit at least one
// field. The proposed defaults are not compared with the current ones: any
// inheriting child is reported.
func (r *Resolver) PreviewImpact(ctx context.Context, parentID uint64, _ Defaults) (*ImpactPreview, error) {
	var parent models.CategoryModel
	if err := r.db.WithContext(ctx).First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CategoryNotFound, "parent category not found")
		}
		return nil, err
	}
	if !parent.IsParent {
		return nil, apperr.New(apperr.CategoryNotFound, "category is not a parent")
	}

	var children []models.CategoryModel
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND status IN ?", parentID, []models.CategoryStatus{models.CategoryActive, models.CategoryDisabled}).
		Order("id ASC").
		Find(&children).Error
	if err != nil {
		return nil, err
	}

	preview := &ImpactPreview{AffectedChildIDs: []uint64{}}
	for i := range children {
		if !children[i].Inherits() {
			continue
		}
		preview.AffectedChildCount++
		if len(preview.AffectedChildIDs) < previewIDLimit {
			preview.AffectedChildIDs = append(preview.AffectedChildIDs, children[i].ID)
		}
	}
	return preview, nil
}
