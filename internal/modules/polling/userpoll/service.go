package userpoll

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/modules/catalog/category"
	"github.com/votehub/core/internal/modules/polling/invite"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minOptions = 2

// Service manages polls created by end users.
type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	logger *zap.Logger
}

// ServiceOption configures a user poll Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the user poll service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("UserPollService")
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

// Create opens a poll directly as LIVE or SCHEDULED.
func (s *Service) Create(ctx context.Context, creatorID uint64, dto *CreateUserPollDTO) (*UserPollView, error) {
	if _, err := category.NewResolver(s.db).RequireOpenChild(ctx, dto.CategoryID, models.DomainPoll); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := models.UserPollModel{
		CreatorID:    creatorID,
		CategoryID:   dto.CategoryID,
		Title:        dto.Title,
		Description:  dto.Description,
		Type:         dto.Type,
		IsInviteOnly: dto.IsInviteOnly,
		EndAt:        dto.EndAt,
	}
	switch dto.StartMode {
	case StartScheduled:
		if dto.StartAt == nil || !dto.StartAt.After(now) {
			return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"start_at": "scheduled polls need a future start_at"})
		}
		p.Status = models.UserPollScheduled
		p.StartAt = dto.StartAt
	default:
		p.Status = models.UserPollLive
		p.StartAt = &now
	}
	if p.EndAt != nil {
		if !p.EndAt.After(now) {
			return nil, apperr.New(apperr.EndAtInPast, "end_at is in the past")
		}
		if !p.EndAt.After(*p.StartAt) {
			return nil, apperr.New(apperr.EndAtBeforeStart, "end_at must be after start_at")
		}
	}

	labels, err := optionLabels(dto.Type, dto.Options)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		p.Options = lo.Map(labels, func(label string, i int) models.UserPollOption {
			return models.UserPollOption{PollID: p.ID, Label: label, DisplayOrder: i}
		})
		return tx.Create(&p.Options).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user poll created", zap.Uint64("id", p.ID), zap.String("status", string(p.Status)))
	return s.view(&p), nil
}

func optionLabels(typ models.UserPollType, raw []string) ([]string, error) {
	labels := lo.Compact(lo.Map(raw, func(o string, _ int) string { return strings.TrimSpace(o) }))
	if typ == models.UserPollYesNo && len(labels) == 0 {
		return []string{string(models.Yes), string(models.No)}, nil
	}
	if len(labels) < minOptions {
		return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"options": "at least two options are required"})
	}
	if len(lo.Uniq(labels)) != len(labels) {
		return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"options": "options must be distinct"})
	}
	return labels, nil
}

// End closes an owned poll. Ending a closed poll is a no-op.
func (s *Service) End(ctx context.Context, creatorID, pollID uint64) (*UserPollView, error) {
	var out models.UserPollModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockOwned(ctx, tx, creatorID, pollID)
		if err != nil {
			return err
		}
		switch p.Status {
		case models.UserPollLive, models.UserPollScheduled, models.UserPollClosed:
		default:
			return apperr.New(apperr.NotFoundOrForbidden, "poll not found")
		}
		updates := map[string]interface{}{"status": models.UserPollClosed}
		if p.EndAt == nil {
			updates["end_at"] = s.clock.Now()
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Options", orderOptions).First(&out, pollID).Error
	})
	if err != nil {
		return nil, err
	}
	return s.view(&out), nil
}

// Extend moves end_at of an open poll later.
func (s *Service) Extend(ctx context.Context, creatorID, pollID uint64, dto *ExtendDTO) (*UserPollView, error) {
	var out models.UserPollModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockOwned(ctx, tx, creatorID, pollID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if p.EffectiveStatus(now) == models.UserPollClosed {
			return apperr.New(apperr.PollAlreadyClosed, "poll already closed")
		}
		if dto.EndAt.IsZero() {
			return apperr.New(apperr.InvalidEndAt, "end_at is required")
		}
		if !dto.EndAt.After(now) {
			return apperr.New(apperr.EndAtInPast, "end_at is in the past")
		}
		if p.StartAt != nil && !dto.EndAt.After(*p.StartAt) {
			return apperr.New(apperr.EndAtBeforeStart, "end_at must be after start_at")
		}
		if err := tx.Model(p).Update("end_at", dto.EndAt).Error; err != nil {
			return err
		}
		return tx.Preload("Options", orderOptions).First(&out, pollID).Error
	})
	if err != nil {
		return nil, err
	}
	return s.view(&out), nil
}

// SelfInvite returns the creator's own invite token for a live invite-only
// poll, reusing any invite that has not been rejected.
func (s *Service) SelfInvite(ctx context.Context, creatorID, pollID uint64) (*models.InviteModel, error) {
	var out *models.InviteModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockOwned(ctx, tx, creatorID, pollID)
		if err != nil {
			if apperr.HasCode(err, apperr.NotFoundOrForbidden) {
				return apperr.New(apperr.PollNotFound, "poll not found")
			}
			return err
		}
		if p.EffectiveStatus(s.clock.Now()) != models.UserPollLive {
			return apperr.New(apperr.PollNotLive, "poll is not live")
		}
		if !p.IsInviteOnly {
			return apperr.New(apperr.PollNotInviteOnly, "poll is not invite-only")
		}
		out, err = invite.EnsureSelfInvite(ctx, tx, models.PollKindUserPoll, p.ID, creatorID)
		return err
	})
	return out, err
}

// BulkInvite invites the union of owned groups, an optional new group and
// raw mobiles. Mobiles already invited are skipped.
func (s *Service) BulkInvite(ctx context.Context, creatorID, pollID uint64, dto *BulkInviteDTO) (*BulkInviteResult, error) {
	result := &BulkInviteResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockOwned(ctx, tx, creatorID, pollID)
		if err != nil {
			return err
		}
		if !p.IsInviteOnly {
			return apperr.New(apperr.PollNotInviteOnly, "poll is not invite-only")
		}
		status := p.EffectiveStatus(s.clock.Now())
		if status != models.UserPollLive && status != models.UserPollScheduled {
			return apperr.New(apperr.PollNotActive, "poll is not active")
		}

		mobiles := append([]string{}, dto.Mobiles...)
		if len(dto.GroupIDs) > 0 {
			groupIDs := lo.Uniq(dto.GroupIDs)
			var owned int64
			if err := tx.Model(&models.InviteGroupModel{}).Where("id IN ? AND owner_id = ?", groupIDs, creatorID).Count(&owned).Error; err != nil {
				return err
			}
			if int(owned) != len(groupIDs) {
				return apperr.New(apperr.NotFoundOrForbidden, "invite group not found")
			}
			var members []string
			if err := tx.Model(&models.InviteGroupMember{}).Where("group_id IN ?", groupIDs).Pluck("mobile", &members).Error; err != nil {
				return err
			}
			mobiles = append(mobiles, members...)
		}
		if dto.NewGroup != nil {
			group, err := createGroup(ctx, tx, creatorID, dto.NewGroup)
			if err != nil {
				return err
			}
			result.GroupID = &group.ID
			mobiles = append(mobiles, lo.Map(group.Members, func(m models.InviteGroupMember, _ int) string { return m.Mobile })...)
		}

		merged := invite.NormalizeMobiles(mobiles)
		if len(merged) == 0 {
			return apperr.Validation(apperr.ValidationFailed, map[string]string{"mobiles": "no mobiles to invite"})
		}
		result.Total = len(merged)
		result.Created, err = invite.InsertMobiles(ctx, tx, models.PollKindUserPoll, p.ID, creatorID, merged)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("bulk invite", zap.Uint64("poll", pollID), zap.Int("total", result.Total), zap.Int64("created", result.Created))
	return result, nil
}

// CreateGroup stores a named list of mobiles owned by ownerID.
func (s *Service) CreateGroup(ctx context.Context, ownerID uint64, dto *NewGroupDTO) (*models.InviteGroupModel, error) {
	var group *models.InviteGroupModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = createGroup(ctx, tx, ownerID, dto)
		return err
	})
	return group, err
}

func createGroup(ctx context.Context, tx *gorm.DB, ownerID uint64, dto *NewGroupDTO) (*models.InviteGroupModel, error) {
	group := models.InviteGroupModel{OwnerID: ownerID, Name: strings.TrimSpace(dto.Name)}
	if group.Name == "" {
		return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"name": "group name is required"})
	}
	if err := tx.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	mobiles := invite.NormalizeMobiles(dto.Mobiles)
	if len(mobiles) > 0 {
		group.Members = lo.Map(mobiles, func(m string, _ int) models.InviteGroupMember {
			return models.InviteGroupMember{GroupID: group.ID, Mobile: m}
		})
		if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&group.Members).Error; err != nil {
			return nil, err
		}
	}
	return &group, nil
}

// ListGroups returns the caller's groups with members.
func (s *Service) ListGroups(ctx context.Context, ownerID uint64) ([]models.InviteGroupModel, error) {
	var groups []models.InviteGroupModel
	return groups, s.db.WithContext(ctx).Preload("Members").Where("owner_id = ?", ownerID).Order("id ASC").Find(&groups).Error
}

func (s *Service) Get(ctx context.Context, pollID uint64) (*UserPollView, error) {
	var p models.UserPollModel
	if err := s.db.WithContext(ctx).Preload("Options", orderOptions).First(&p, pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.PollNotFound, "poll not found")
		}
		return nil, err
	}
	return s.view(&p), nil
}

// ListOwn returns the caller's polls, newest first.
func (s *Service) ListOwn(ctx context.Context, creatorID uint64) ([]UserPollView, error) {
	var polls []models.UserPollModel
	err := s.db.WithContext(ctx).Preload("Options", orderOptions).
		Where("creator_id = ?", creatorID).
		Order("id DESC").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(polls, func(p models.UserPollModel, _ int) UserPollView { return *s.view(&p) }), nil
}

// ListInvites returns invites of an owned poll.
func (s *Service) ListInvites(ctx context.Context, creatorID, pollID uint64) ([]models.InviteModel, error) {
	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.UserPollModel{}).Where("id = ? AND creator_id = ?", pollID, creatorID).Count(&owned).Error; err != nil {
		return nil, err
	}
	if owned == 0 {
		return nil, apperr.New(apperr.NotFoundOrForbidden, "poll not found")
	}
	var invites []models.InviteModel
	return invites, s.db.WithContext(ctx).
		Where("poll_kind = ? AND poll_id = ?", models.PollKindUserPoll, pollID).
		Order("id ASC").
		Find(&invites).Error
}

func (s *Service) view(p *models.UserPollModel) *UserPollView {
	return &UserPollView{UserPollModel: *p, EffectiveStatus: p.EffectiveStatus(s.clock.Now())}
}

func orderOptions(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC")
}

func lockOwned(ctx context.Context, tx *gorm.DB, creatorID, pollID uint64) (*models.UserPollModel, error) {
	var p models.UserPollModel
	err := database.ForUpdate(tx).WithContext(ctx).
		Where("id = ? AND creator_id = ?", pollID, creatorID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFoundOrForbidden, "poll not found")
		}
		return nil, err
	}
	return &p, nil
}
