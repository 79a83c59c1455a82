package pollconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const slugAttempts = 5

type Service struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// ServiceOption configures a poll config Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the poll config service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("PollConfigService")
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, validate: validator.New(), logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, status models.PollConfigStatus) ([]models.PollConfigModel, error) {
	q := s.db.WithContext(ctx).Model(&models.PollConfigModel{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var configs []models.PollConfigModel
	return configs, q.Order("id DESC").Find(&configs).Error
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.PollConfigModel, error) {
	var cfg models.PollConfigModel
	if err := s.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ConfigNotFound, "poll config not found")
		}
		return nil, err
	}
	return &cfg, nil
}

// Create stores a DRAFT config at version 1 under a unique slug.
func (s *Service) Create(ctx context.Context, dto *CreateConfigDTO) (*models.PollConfigModel, error) {
	if err := s.checkShape(dto.UITemplate, &dto.Rules, &dto.Permissions); err != nil {
		return nil, err
	}
	cfg := models.PollConfigModel{
		Name:        dto.Name,
		Status:      models.PollConfigDraft,
		Version:     1,
		UITemplate:  dto.UITemplate,
		Theme:       datatypes.JSONMap(dto.Theme),
		Rules:       datatypes.NewJSONType(dto.Rules),
		Permissions: datatypes.NewJSONType(dto.Permissions),
	}

	base := Slugify(dto.Name)
	for attempt := 0; attempt < slugAttempts; attempt++ {
		var existing []string
		err := s.db.WithContext(ctx).Model(&models.PollConfigModel{}).
			Where("slug = ? OR slug LIKE ?", base, base+"-%").
			Pluck("slug", &existing).Error
		if err != nil {
			return nil, err
		}
		cfg.ID = 0
		cfg.Slug = nextSlug(base, existing)
		err = s.db.WithContext(ctx).Create(&cfg).Error
		if err == nil {
			s.logger.Info("poll config created", zap.Uint64("id", cfg.ID), zap.String("slug", cfg.Slug))
			return &cfg, nil
		}
		if !database.IsDuplicateKey(err) {
			return nil, err
		}
		s.logger.Debug("slug taken concurrently, retrying", zap.String("slug", cfg.Slug))
	}
	return nil, fmt.Errorf("could not allocate slug for %q", dto.Name)
}

// Update edits a config and bumps its version. Status is untouched.
func (s *Service) Update(ctx context.Context, id uint64, dto *UpdateConfigDTO) (*models.PollConfigModel, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	template := cfg.UITemplate
	if dto.UITemplate != nil {
		template = *dto.UITemplate
	}
	rules := cfg.Rules.Data()
	if dto.Rules != nil {
		rules = *dto.Rules
	}
	perms := cfg.Permissions.Data()
	if dto.Permissions != nil {
		perms = *dto.Permissions
	}
	if err := s.checkShape(template, &rules, &perms); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"ui_template": template,
		"rules":       datatypes.NewJSONType(rules),
		"permissions": datatypes.NewJSONType(perms),
		"version":     gorm.Expr("version + 1"),
	}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Theme != nil {
		updates["theme"] = datatypes.JSONMap(dto.Theme)
	}
	if err := s.db.WithContext(ctx).Model(cfg).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Publish activates a DRAFT or DISABLED config.
func (s *Service) Publish(ctx context.Context, id uint64) (*models.PollConfigModel, error) {
	return s.transition(ctx, id, models.PollConfigActive, models.PollConfigDraft, models.PollConfigDisabled)
}

// Disable takes a config out of service. Polls it backs can no longer
// publish, and published ones stop taking votes.
func (s *Service) Disable(ctx context.Context, id uint64) (*models.PollConfigModel, error) {
	return s.transition(ctx, id, models.PollConfigDisabled, models.PollConfigDraft, models.PollConfigActive)
}

func (s *Service) transition(ctx context.Context, id uint64, to models.PollConfigStatus, from ...models.PollConfigStatus) (*models.PollConfigModel, error) {
	res := s.db.WithContext(ctx).Model(&models.PollConfigModel{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.Newf(apperr.InvalidStatus, "cannot move config to %s", to)
	}
	return s.Get(ctx, id)
}

func (s *Service) checkShape(template models.UITemplate, rules *models.PollRules, perms *models.PollPermissions) error {
	fields := map[string]string{}
	if !template.Valid() {
		fields["ui_template"] = "unknown template"
	}
	if err := s.validate.Struct(rules); err != nil {
		collect(fields, "rules", err)
	}
	if err := s.validate.Struct(perms); err != nil {
		collect(fields, "permissions", err)
	}
	cr := rules.ContentRules
	if cr.MinSelections != nil && cr.MaxSelections != nil && *cr.MinSelections > *cr.MaxSelections {
		fields["rules.contentRules.minSelections"] = "must not exceed maxSelections"
	}
	if cr.RatingMin != nil && cr.RatingMax != nil && *cr.RatingMin > *cr.RatingMax {
		fields["rules.contentRules.ratingMin"] = "must not exceed ratingMax"
	}
	if len(fields) > 0 {
		return apperr.Validation(apperr.ValidationFailed, fields)
	}
	return nil
}

func collect(fields map[string]string, prefix string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields[prefix] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[prefix+"."+fe.Field()] = fe.Tag()
	}
}
