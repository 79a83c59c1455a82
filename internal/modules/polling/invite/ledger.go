package invite

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger issues invite tokens and moves them through
// PENDING -> ACCEPTED | REJECTED.
type Ledger struct {
	db     *gorm.DB
	clock  clock.Clock
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger for the invite ledger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Ledger) {
		if l != nil {
			s.logger = l.Named("InviteLedger")
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Ledger) { s.clock = clock.OrReal(c) }
}

func NewLedger(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{db: db, clock: clock.Real, logger: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// NewToken mints an opaque invite token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NormalizeMobile strips all whitespace; the result is the dedup key.
func NormalizeMobile(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// NormalizeMobiles normalizes, drops empties and dedups, keeping first-seen order.
func NormalizeMobiles(raw []string) []string {
	mobiles := lo.Map(raw, func(m string, _ int) string { return NormalizeMobile(m) })
	return lo.Uniq(lo.Compact(mobiles))
}

// Validate reports the invite behind token if it can still be used.
func (l *Ledger) Validate(ctx context.Context, token string) (*models.InviteModel, error) {
	return usable(ctx, l.db, token, l.clock)
}

// Accept binds userID to the invite and marks it ACCEPTED.
func (l *Ledger) Accept(ctx context.Context, token string, userID uint64) (*models.InviteModel, error) {
	return l.respond(ctx, token, func(inv *models.InviteModel) (map[string]interface{}, error) {
		if inv.Identity != models.UserIdentity(userID) && strings.HasPrefix(inv.Identity, "user:") {
			return nil, apperr.New(apperr.InvalidInvite, "invite belongs to another user")
		}
		return map[string]interface{}{"status": models.InviteAccepted, "user_id": userID}, nil
	})
}

// Reject marks the invite REJECTED.
func (l *Ledger) Reject(ctx context.Context, token string) (*models.InviteModel, error) {
	return l.respond(ctx, token, func(*models.InviteModel) (map[string]interface{}, error) {
		return map[string]interface{}{"status": models.InviteRejected}, nil
	})
}

func (l *Ledger) respond(ctx context.Context, token string, change func(*models.InviteModel) (map[string]interface{}, error)) (*models.InviteModel, error) {
	var out models.InviteModel
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := usable(ctx, database.ForUpdate(tx), token, l.clock)
		if err != nil {
			return err
		}
		updates, err := change(inv)
		if err != nil {
			return err
		}
		updates["responded_at"] = l.clock.Now()
		res := tx.Model(&models.InviteModel{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitePending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.InviteAlreadyUsed, "invite already used")
		}
		return tx.First(&out, inv.ID).Error
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("invite responded", zap.Uint64("id", out.ID), zap.String("status", string(out.Status)))
	return &out, nil
}

// usable loads a PENDING invite whose poll is still active. db may be a
// locking transaction handle.
func usable(ctx context.Context, db *gorm.DB, token string, clk clock.Clock) (*models.InviteModel, error) {
	var inv models.InviteModel
	if err := db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.InviteNotFound, "invite not found")
		}
		return nil, err
	}
	if inv.Status != models.InvitePending {
		return nil, apperr.New(apperr.InviteAlreadyUsed, "invite already used")
	}
	active, err := PollActive(ctx, db.Session(&gorm.Session{NewDB: true}), inv.PollKind, inv.PollID, clk.Now())
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.New(apperr.PollNotActive, "poll is not active")
	}
	return &inv, nil
}

// PollActive reports whether the poll owning an invite still accepts invitees:
// LIVE or SCHEDULED user polls that have not ended, and PUBLISHED admin polls
// that have not ended.
func PollActive(ctx context.Context, db *gorm.DB, kind models.PollKind, pollID uint64, now time.Time) (bool, error) {
	switch kind {
	case models.PollKindUserPoll:
		var p models.UserPollModel
		if err := db.WithContext(ctx).First(&p, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		status := p.EffectiveStatus(now)
		return status == models.UserPollLive || status == models.UserPollScheduled, nil
	case models.PollKindPoll:
		var p models.PollModel
		if err := db.WithContext(ctx).First(&p, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if p.Status != models.PollPublished {
			return false, nil
		}
		return p.EndAt == nil || now.Before(*p.EndAt), nil
	default:
		return false, nil
	}
}

// InsertMobiles creates one PENDING invite per mobile, skipping mobiles
// already invited to the poll. It returns the number of new rows.
func InsertMobiles(ctx context.Context, db *gorm.DB, kind models.PollKind, pollID, invitedBy uint64, mobiles []string) (int64, error) {
	if len(mobiles) == 0 {
		return 0, nil
	}
	rows := lo.Map(mobiles, func(m string, _ int) models.InviteModel {
		mobile := m
		return models.InviteModel{
			PollKind:  kind,
			PollID:    pollID,
			Mobile:    &mobile,
			Identity:  mobile,
			Token:     NewToken(),
			Status:    models.InvitePending,
			InvitedBy: invitedBy,
		}
	})
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 200)
	return res.RowsAffected, res.Error
}

// EnsureSelfInvite returns the caller's live invite for the poll, minting
// one if none exists. Callers must hold a lock on the poll row so two
// requests cannot both mint.
func EnsureSelfInvite(ctx context.Context, tx *gorm.DB, kind models.PollKind, pollID, userID uint64) (*models.InviteModel, error) {
	identity := models.UserIdentity(userID)
	var existing models.InviteModel
	err := tx.WithContext(ctx).
		Where("poll_kind = ? AND poll_id = ? AND identity = ? AND status <> ?", kind, pollID, identity, models.InviteRejected).
		Order("id ASC").
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	inv := models.InviteModel{
		PollKind:  kind,
		PollID:    pollID,
		Identity:  identity,
		Token:     NewToken(),
		Status:    models.InvitePending,
		UserID:    &userID,
		InvitedBy: userID,
	}
	if err := tx.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}
