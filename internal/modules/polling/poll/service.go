package poll

import (
	"context"
	"errors"
	"time"

	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/modules/catalog/category"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"github.com/votehub/core/internal/pkg/pagination"
	"github.com/votehub/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service drives the DRAFT -> PUBLISHED -> CLOSED lifecycle of admin polls.
type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	logger *zap.Logger
}

// ServiceOption configures a poll Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the poll service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("PollService")
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = clock.OrReal(c) }
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, clock: clock.Real, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// checkTargets reruns the category and config health checks. db may be a
// transaction handle.
func checkTargets(ctx context.Context, db *gorm.DB, categoryID, configID uint64) error {
	if _, err := category.NewResolver(db).RequireOpenChild(ctx, categoryID, models.DomainPoll); err != nil {
		return err
	}
	var cfg models.PollConfigModel
	if err := db.WithContext(ctx).First(&cfg, configID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ConfigNotFound, "poll config not found")
		}
		return err
	}
	if cfg.Status != models.PollConfigActive {
		return apperr.New(apperr.ConfigNotActive, "poll config is not active")
	}
	return nil
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return apperr.New(apperr.EndAtBeforeStart, "end_at must be after start_at")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actorID uint64, dto *CreatePollDTO) (*models.PollModel, error) {
	if err := checkTargets(ctx, s.db, dto.CategoryID, dto.PollConfigID); err != nil {
		return nil, err
	}
	if err := checkWindow(dto.StartAt, dto.EndAt); err != nil {
		return nil, err
	}
	p := models.PollModel{
		Title:        dto.Title,
		Description:  dto.Description,
		CategoryID:   dto.CategoryID,
		PollConfigID: dto.PollConfigID,
		Status:       models.PollDraft,
		StartAt:      dto.StartAt,
		EndAt:        dto.EndAt,
		CreatedBy:    actorID,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	s.logger.Info("poll created", zap.Uint64("id", p.ID), zap.Uint64("category", p.CategoryID))
	return &p, nil
}

// Update edits a DRAFT poll.
func (s *Service) Update(ctx context.Context, id uint64, dto *UpdatePollDTO) (*models.PollModel, error) {
	var out *models.PollModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockPoll(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.PollDraft {
			return apperr.New(apperr.NotEditable, "only draft polls can be edited")
		}

		updates := map[string]interface{}{}
		categoryID, configID := p.CategoryID, p.PollConfigID
		if dto.CategoryID != nil && *dto.CategoryID != p.CategoryID {
			categoryID = *dto.CategoryID
			updates["category_id"] = categoryID
		}
		if dto.PollConfigID != nil && *dto.PollConfigID != p.PollConfigID {
			configID = *dto.PollConfigID
			updates["poll_config_id"] = configID
		}
		if len(updates) > 0 {
			if err := checkTargets(ctx, tx, categoryID, configID); err != nil {
				return err
			}
		}

		start, end := p.StartAt, p.EndAt
		if dto.StartAt != nil {
			start = dto.StartAt
			updates["start_at"] = start
		}
		if dto.EndAt != nil {
			end = dto.EndAt
			updates["end_at"] = end
		}
		if err := checkWindow(start, end); err != nil {
			return err
		}
		if dto.Title != nil {
			updates["title"] = *dto.Title
		}
		if dto.Description != nil {
			updates["description"] = *dto.Description
		}

		if len(updates) > 0 {
			if err := tx.Model(p).Updates(updates).Error; err != nil {
				return err
			}
		}
		out, err = getPoll(ctx, tx, id)
		return err
	})
	return out, err
}

// Publish re-validates category and config health, then opens the poll.
func (s *Service) Publish(ctx context.Context, id uint64) (*models.PollModel, error) {
	var out *models.PollModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockPoll(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.PollDraft {
			return apperr.Newf(apperr.InvalidStatus, "cannot publish a %s poll", p.Status)
		}
		if err := checkTargets(ctx, tx, p.CategoryID, p.PollConfigID); err != nil {
			return err
		}
		updates := map[string]interface{}{"status": models.PollPublished}
		if p.StartAt == nil {
			updates["start_at"] = s.clock.Now()
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		out, err = getPoll(ctx, tx, id)
		return err
	})
	if err == nil {
		s.logger.Info("poll published", zap.Uint64("id", id))
	}
	return out, err
}

// Close ends a PUBLISHED poll.
func (s *Service) Close(ctx context.Context, id uint64) (*models.PollModel, error) {
	var out *models.PollModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockPoll(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.PollPublished {
			return apperr.Newf(apperr.InvalidStatus, "cannot close a %s poll", p.Status)
		}
		updates := map[string]interface{}{"status": models.PollClosed}
		if p.EndAt == nil {
			updates["end_at"] = s.clock.Now()
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		out, err = getPoll(ctx, tx, id)
		return err
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.PollModel, error) {
	return getPoll(ctx, s.db.Preload("PollConfig"), id)
}

func (s *Service) List(ctx context.Context, q *ListQuery) ([]models.PollModel, response.Pagination, error) {
	db := s.db.WithContext(ctx).Model(&models.PollModel{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.CategoryID != 0 {
		db = db.Where("category_id = ?", q.CategoryID)
	}
	var polls []models.PollModel
	pag, err := pagination.Paginate(db.Order("id DESC"), pagination.Normalize(q.Page, q.Size), &polls)
	return polls, pag, err
}

func lockPoll(ctx context.Context, tx *gorm.DB, id uint64) (*models.PollModel, error) {
	return getPoll(ctx, database.ForUpdate(tx), id)
}

func getPoll(ctx context.Context, db *gorm.DB, id uint64) (*models.PollModel, error) {
	var p models.PollModel
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "poll not found")
		}
		return nil, err
	}
	return &p, nil
}
