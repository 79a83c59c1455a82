package vote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Auditor records sensitive actions. Failures are logged, never returned.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditLogModel) error
}

type dbAuditor struct{ db *gorm.DB }

func (a dbAuditor) Record(ctx context.Context, entry *models.AuditLogModel) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

// Service enforces one vote per identity facet per poll.
type Service struct {
	db      *gorm.DB
	clock   clock.Clock
	auditor Auditor
	logger  *zap.Logger
}

// ServiceOption configures a vote Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the vote service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("VoteService")
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = clock.OrReal(c) }
}

// WithAuditor replaces the default audit log writer.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, clock: clock.Real, auditor: dbAuditor{db: db}, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ballot is one cast request. UserID and InviteToken are both optional;
// at least one is required and invite-only polls require the token.
type Ballot struct {
	PollKind    models.PollKind
	PollID      uint64
	Response    json.RawMessage
	UserID      *uint64
	InviteToken string
}

// target captures what the engine needs from either poll table.
type target struct {
	configID    *uint64
	inviteOnly  bool
	requireAuth bool
	check       func(json.RawMessage) error
}

// Cast validates and stores a ballot.
func (s *Service) Cast(ctx context.Context, b *Ballot) (*models.VoteModel, error) {
	var vote models.VoteModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		tgt, err := s.loadTarget(ctx, tx, b.PollKind, b.PollID, now)
		if err != nil {
			return err
		}

		inv, err := resolveInvite(ctx, tx, b)
		if err != nil {
			return err
		}
		if tgt.inviteOnly && inv == nil {
			return apperr.New(apperr.InviteRequired, "this poll requires an invite")
		}
		if inv == nil && b.UserID == nil {
			return apperr.New(apperr.AuthOrInviteRequired, "sign in or use an invite to vote")
		}
		if tgt.requireAuth && b.UserID == nil {
			return apperr.New(apperr.AuthOrInviteRequired, "this poll requires signing in")
		}

		if b.UserID != nil {
			if err := ensureNoVote(ctx, tx, b.PollKind, b.PollID, "user_id", *b.UserID); err != nil {
				return err
			}
		}
		if inv != nil {
			if err := ensureNoVote(ctx, tx, b.PollKind, b.PollID, "invite_id", inv.ID); err != nil {
				return err
			}
		}

		if err := tgt.check(b.Response); err != nil {
			return err
		}

		vote = models.VoteModel{
			PollKind:     b.PollKind,
			PollID:       b.PollID,
			PollConfigID: tgt.configID,
			UserID:       b.UserID,
			Response:     datatypes.JSON(b.Response),
		}
		if inv != nil {
			vote.InviteID = &inv.ID
		}
		if err := tx.Create(&vote).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.New(apperr.AlreadyVoted, "already voted")
			}
			return err
		}

		if inv != nil && inv.Status == models.InvitePending {
			updates := map[string]interface{}{"status": models.InviteAccepted, "responded_at": now}
			if b.UserID != nil && inv.UserID == nil {
				updates["user_id"] = *b.UserID
			}
			if err := tx.Model(inv).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &vote)
	return &vote, nil
}

func (s *Service) audit(ctx context.Context, vote *models.VoteModel) {
	payload, _ := json.Marshal(map[string]interface{}{
		"vote_id":   vote.ID,
		"poll_kind": vote.PollKind,
		"invite_id": vote.InviteID,
	})
	entry := &models.AuditLogModel{
		Action:     "vote.cast",
		ActorID:    vote.UserID,
		EntityType: string(vote.PollKind),
		EntityID:   vote.PollID,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("vote audit failed", zap.Uint64("vote", vote.ID), zap.Error(err))
	}
}

func (s *Service) loadTarget(ctx context.Context, tx *gorm.DB, kind models.PollKind, pollID uint64, now time.Time) (*target, error) {
	switch kind {
	case models.PollKindPoll:
		var p models.PollModel
		if err := tx.WithContext(ctx).Preload("PollConfig").First(&p, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.NotFound, "poll not found")
			}
			return nil, err
		}
		if p.PollConfig == nil {
			return nil, apperr.New(apperr.ConfigNotFound, "poll config not found")
		}
		if p.Status != models.PollPublished {
			return nil, apperr.New(apperr.PollNotPublished, "poll is not published")
		}
		if p.PollConfig.Status != models.PollConfigActive {
			return nil, apperr.New(apperr.ConfigNotActive, "poll config is not active")
		}
		if err := checkWindow(p.StartAt, p.EndAt, now); err != nil {
			return nil, err
		}
		cfg := p.PollConfig
		return &target{
			configID:    &cfg.ID,
			inviteOnly:  cfg.Permissions.Data().InviteOnly,
			requireAuth: cfg.Rules.Data().VotingRules.RequireAuth,
			check:       func(raw json.RawMessage) error { return checkConfigResponse(cfg, raw) },
		}, nil

	case models.PollKindUserPoll:
		var p models.UserPollModel
		if err := tx.WithContext(ctx).Preload("Options").First(&p, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.NotFound, "poll not found")
			}
			return nil, err
		}
		if p.Status != models.UserPollLive && p.Status != models.UserPollScheduled {
			return nil, apperr.New(apperr.PollNotLive, "poll is not live")
		}
		if err := checkWindow(p.StartAt, p.EndAt, now); err != nil {
			return nil, err
		}
		return &target{
			inviteOnly: p.IsInviteOnly,
			check:      func(raw json.RawMessage) error { return checkOptionResponse(&p, raw) },
		}, nil
	}
	return nil, apperr.New(apperr.NotFound, "poll not found")
}

func checkWindow(start, end *time.Time, now time.Time) error {
	if start != nil && now.Before(*start) {
		return apperr.New(apperr.PollNotStarted, "poll has not started")
	}
	if end != nil && !now.Before(*end) {
		return apperr.New(apperr.PollEnded, "poll has ended")
	}
	return nil
}

// resolveInvite locks the invite behind the ballot's token, if any.
func resolveInvite(ctx context.Context, tx *gorm.DB, b *Ballot) (*models.InviteModel, error) {
	if b.InviteToken == "" {
		return nil, nil
	}
	var inv models.InviteModel
	err := database.ForUpdate(tx).WithContext(ctx).
		Where("token = ? AND poll_kind = ? AND poll_id = ?", b.InviteToken, b.PollKind, b.PollID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.InvalidInvite, "invite does not belong to this poll")
		}
		return nil, err
	}
	if inv.Status == models.InviteRejected {
		return nil, apperr.New(apperr.InvalidInvite, "invite was rejected")
	}
	if inv.UserID != nil && b.UserID != nil && *inv.UserID != *b.UserID {
		return nil, apperr.New(apperr.InvalidInvite, "invite belongs to another user")
	}
	return &inv, nil
}

func ensureNoVote(ctx context.Context, tx *gorm.DB, kind models.PollKind, pollID uint64, column string, value uint64) error {
	var count int64
	err := tx.WithContext(ctx).Model(&models.VoteModel{}).
		Where("poll_kind = ? AND poll_id = ? AND "+column+" = ?", kind, pollID, value).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.New(apperr.AlreadyVoted, "already voted")
	}
	return nil
}

// Tally counts votes per poll and, for user polls, per option.
type Tally struct {
	Total   int64            `json:"total"`
	Options map[uint64]int64 `json:"options,omitempty"`
}

// Results tallies a poll. Option counts are only computed for user polls,
// whose responses are option ids.
func (s *Service) Results(ctx context.Context, kind models.PollKind, pollID uint64) (*Tally, error) {
	var votes []models.VoteModel
	if err := s.db.WithContext(ctx).Where("poll_kind = ? AND poll_id = ?", kind, pollID).Find(&votes).Error; err != nil {
		return nil, err
	}
	tally := &Tally{Total: int64(len(votes))}
	if kind != models.PollKindUserPoll {
		return tally, nil
	}
	tally.Options = map[uint64]int64{}
	for _, v := range votes {
		var resp struct {
			Selections []uint64 `json:"selections"`
		}
		if err := json.Unmarshal(v.Response, &resp); err != nil {
			s.logger.Warn("skipping unreadable vote", zap.Uint64("vote", v.ID), zap.Error(err))
			continue
		}
		for _, id := range resp.Selections {
			tally.Options[id]++
		}
	}
	return tally, nil
}
