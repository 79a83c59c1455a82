package category

import (
	"context"
	"errors"

	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	resolver *Resolver
	logger   *zap.Logger
}

// ServiceOption configures a category Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the category service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("CategoryService")
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, resolver: NewResolver(db), logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolver exposes the inheritance resolver backing this service.
func (s *Service) Resolver() *Resolver { return s.resolver }

func (s *Service) List(ctx context.Context, domain models.CategoryDomain, parentID *uint64) ([]models.CategoryModel, error) {
	q := s.db.WithContext(ctx).Model(&models.CategoryModel{})
	if domain != "" {
		q = q.Where("domain = ?", domain)
	}
	if parentID != nil {
		q = q.Where("parent_id = ?", *parentID)
	}
	var cats []models.CategoryModel
	return cats, q.Order("is_parent DESC, id ASC").Find(&cats).Error
}

func (s *Service) Get(ctx context.Context, id uint64) (*CategoryView, error) {
	cat, eff, err := s.resolver.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperr.New(apperr.CategoryNotFound, "category not found")
	}
	return &CategoryView{CategoryModel: *cat, Effective: *eff}, nil
}

func (s *Service) Create(ctx context.Context, dto *CreateCategoryDTO) (*models.CategoryModel, error) {
	cat := models.CategoryModel{
		Name:     dto.Name,
		IsParent: dto.IsParent,
		Domain:   dto.Domain,
		Status:   dto.Status,
	}
	if cat.Status == "" {
		cat.Status = models.CategoryActive
	}

	if dto.IsParent {
		if dto.ParentID != nil {
			return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"parent_id": "a parent category cannot have a parent"})
		}
		cat.ClaimableDefault = orNo(dto.ClaimableDefault)
		cat.RequestAllowedDefault = orNo(dto.RequestAllowedDefault)
		cat.AdminCuratedDefault = orNo(dto.AdminCuratedDefault)
	} else {
		if dto.ParentID != nil {
			if err := s.checkParent(ctx, *dto.ParentID, dto.Domain); err != nil {
				return nil, err
			}
			cat.ParentID = dto.ParentID
		}
		cat.Claimable = dto.Claimable
		cat.RequestAllowed = dto.RequestAllowed
		cat.AdminCurated = dto.AdminCurated
	}

	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, err
	}
	s.logger.Info("category created", zap.Uint64("id", cat.ID), zap.Bool("parent", cat.IsParent))
	return &cat, nil
}

func (s *Service) checkParent(ctx context.Context, parentID uint64, domain models.CategoryDomain) error {
	var parent models.CategoryModel
	if err := s.db.WithContext(ctx).First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.CategoryNotFound, "parent category not found")
		}
		return err
	}
	if !parent.IsParent {
		return apperr.Validation(apperr.ValidationFailed, map[string]string{"parent_id": "referenced category is not a parent"})
	}
	if parent.Domain != domain {
		return apperr.Validation(apperr.ValidationFailed, map[string]string{"parent_id": "parent belongs to another domain"})
	}
	return nil
}

// Update applies a partial change. Children take overrides, parents take
// defaults; fields of the other kind are rejected.
func (s *Service) Update(ctx context.Context, id uint64, dto *UpdateCategoryDTO) (*models.CategoryModel, error) {
	var cat models.CategoryModel
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CategoryNotFound, "category not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}

	if cat.IsParent {
		if dto.Claimable.Present || dto.RequestAllowed.Present || dto.AdminCurated.Present {
			return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"overrides": "parent categories carry defaults, not overrides"})
		}
		if dto.ClaimableDefault != nil {
			updates["claimable_default"] = *dto.ClaimableDefault
		}
		if dto.RequestAllowedDefault != nil {
			updates["request_allowed_default"] = *dto.RequestAllowedDefault
		}
		if dto.AdminCuratedDefault != nil {
			updates["admin_curated_default"] = *dto.AdminCuratedDefault
		}
	} else {
		if dto.ClaimableDefault != nil || dto.RequestAllowedDefault != nil || dto.AdminCuratedDefault != nil {
			return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"defaults": "child categories carry overrides, not defaults"})
		}
		if dto.Claimable.Present {
			updates["claimable"] = dto.Claimable.Value
		}
		if dto.RequestAllowed.Present {
			updates["request_allowed"] = dto.RequestAllowed.Value
		}
		if dto.AdminCurated.Present {
			updates["admin_curated"] = dto.AdminCurated.Value
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&cat).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
			return nil, err
		}
	}
	return &cat, nil
}

// Delete removes a category. Parents with children are not editable this way.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	var cat models.CategoryModel
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.CategoryNotFound, "category not found")
		}
		return err
	}
	if cat.IsParent {
		var children int64
		if err := s.db.WithContext(ctx).Model(&models.CategoryModel{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return apperr.Newf(apperr.NotEditable, "parent category still has %d children", children)
		}
	}
	return s.db.WithContext(ctx).Delete(&models.CategoryModel{}, id).Error
}

func (s *Service) PreviewImpact(ctx context.Context, parentID uint64, defaults Defaults) (*ImpactPreview, error) {
	return s.resolver.PreviewImpact(ctx, parentID, defaults)
}
