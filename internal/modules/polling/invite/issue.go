package invite

import (
	"context"
	"errors"

	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IssueResult summarizes a bulk issuance.
type IssueResult struct {
	Requested int                  `json:"requested"`
	Created   int64                `json:"created"`
	Invites   []models.InviteModel `json:"invites"`
}

// IssueForPoll invites mobiles to an invite-only admin poll. Re-issuing an
// overlapping set only creates the missing invites.
func (l *Ledger) IssueForPoll(ctx context.Context, pollID, actorID uint64, rawMobiles []string) (*IssueResult, error) {
	mobiles := NormalizeMobiles(rawMobiles)
	if len(mobiles) == 0 {
		return nil, apperr.Validation(apperr.ValidationFailed, map[string]string{"mobiles": "at least one mobile is required"})
	}

	result := &IssueResult{Requested: len(mobiles)}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.PollModel
		if err := database.ForUpdate(tx).Preload("PollConfig").First(&p, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.PollNotFound, "poll not found")
			}
			return err
		}
		if p.Status == models.PollClosed {
			return apperr.New(apperr.PollNotActive, "poll is closed")
		}
		if p.PollConfig == nil || !p.PollConfig.Permissions.Data().InviteOnly {
			return apperr.New(apperr.PollNotInviteOnly, "poll is not invite-only")
		}

		created, err := InsertMobiles(ctx, tx, models.PollKindPoll, p.ID, actorID, mobiles)
		if err != nil {
			return err
		}
		result.Created = created
		return tx.Where("poll_kind = ? AND poll_id = ? AND mobile IN ?", models.PollKindPoll, p.ID, mobiles).
			Order("id ASC").
			Find(&result.Invites).Error
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("invites issued", zap.Uint64("poll", pollID), zap.Int64("created", result.Created))
	return result, nil
}

// ListForPoll returns every invite of a poll.
func (l *Ledger) ListForPoll(ctx context.Context, kind models.PollKind, pollID uint64) ([]models.InviteModel, error) {
	var invites []models.InviteModel
	return invites, l.db.WithContext(ctx).
		Where("poll_kind = ? AND poll_id = ?", kind, pollID).
		Order("id ASC").
		Find(&invites).Error
}
