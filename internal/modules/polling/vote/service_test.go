package vote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/modules/catalog/pollconfig"
	"github.com/votehub/core/internal/modules/polling/invite"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"github.com/votehub/core/internal/testutil"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.Fixed
	svc   *Service
	child *models.CategoryModel
}

func setup(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	db := testutil.DB(t)
	clk := testutil.Clock()
	parent := testutil.Parent(t, db, models.DomainPoll)
	return &fixture{
		db:    db,
		clock: clk,
		svc:   NewService(db, append([]ServiceOption{WithClock(clk)}, opts...)...),
		child: testutil.Child(t, db, parent),
	}
}

func (f *fixture) poll(t *testing.T, template models.UITemplate, cfgMutate func(*models.PollConfigModel), pollMutate ...func(*models.PollModel)) *models.PollModel {
	t.Helper()
	var mutators []func(*models.PollConfigModel)
	if cfgMutate != nil {
		mutators = append(mutators, cfgMutate)
	}
	cfg := testutil.Config(t, f.db, template, mutators...)
	return testutil.PublishedPoll(t, f.db, f.child.ID, cfg.ID, pollMutate...)
}

func inviteOnly(c *models.PollConfigModel) {
	c.Permissions = datatypes.NewJSONType(models.PollPermissions{InviteOnly: true})
}

func (f *fixture) invite(t *testing.T, kind models.PollKind, pollID uint64, mobile string) *models.InviteModel {
	t.Helper()
	_, err := invite.InsertMobiles(context.Background(), f.db, kind, pollID, 1, []string{mobile})
	require.NoError(t, err)
	var inv models.InviteModel
	require.NoError(t, f.db.Where("poll_kind = ? AND poll_id = ? AND mobile = ?", kind, pollID, mobile).First(&inv).Error)
	return &inv
}

func (f *fixture) voteCount(t *testing.T, pollID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.VoteModel{}).Where("poll_id = ?", pollID).Count(&n).Error)
	return n
}

func ballot(pollID uint64, response string, userID *uint64, token string) *Ballot {
	return &Ballot{PollKind: models.PollKindPoll, PollID: pollID, Response: json.RawMessage(response), UserID: userID, InviteToken: token}
}

func TestCastOnEndedPoll(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil, func(p *models.PollModel) {
		end := testutil.Epoch.Add(-time.Hour)
		start := end.Add(-time.Hour)
		p.StartAt, p.EndAt = &start, &end
	})

	_, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, testutil.Ptr(uint64(5)), ""))
	assert.True(t, apperr.HasCode(err, apperr.PollEnded))
	assert.Equal(t, int64(0), f.voteCount(t, p.ID))
}

func TestCastLiveness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.Ptr(uint64(5))

	_, err := f.svc.Cast(ctx, ballot(12345, `{}`, user, ""))
	assert.True(t, apperr.HasCode(err, apperr.NotFound))

	draft := f.poll(t, models.TemplateYesNo, nil, func(p *models.PollModel) { p.Status = models.PollDraft })
	_, err = f.svc.Cast(ctx, ballot(draft.ID, `{}`, user, ""))
	assert.True(t, apperr.HasCode(err, apperr.PollNotPublished))

	future := f.poll(t, models.TemplateYesNo, nil, func(p *models.PollModel) {
		start := testutil.Epoch.Add(time.Hour)
		p.StartAt = &start
	})
	_, err = f.svc.Cast(ctx, ballot(future.ID, `{}`, user, ""))
	assert.True(t, apperr.HasCode(err, apperr.PollNotStarted))
}

func TestInviteOnlyPollRequiresInvite(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, inviteOnly)

	_, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"NO"}`, nil, ""))
	assert.True(t, apperr.HasCode(err, apperr.InviteRequired))

	// an authenticated user without an invite is still refused
	_, err = f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"NO"}`, testutil.Ptr(uint64(9)), ""))
	assert.True(t, apperr.HasCode(err, apperr.InviteRequired))
}

func TestOpenPollRequiresSomeIdentity(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil)

	_, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"NO"}`, nil, ""))
	assert.True(t, apperr.HasCode(err, apperr.AuthOrInviteRequired))
}

func TestDisabledConfigStopsVoting(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.poll(t, models.TemplateYesNo, nil)

	_, err := pollconfig.NewService(f.db).Disable(ctx, p.PollConfigID)
	require.NoError(t, err)

	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, testutil.Ptr(uint64(9)), ""))
	assert.True(t, apperr.HasCode(err, apperr.ConfigNotActive))
	assert.Equal(t, int64(0), f.voteCount(t, p.ID))
}

func TestRequireAuthRefusesInviteOnlyBallot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.poll(t, models.TemplateYesNo, func(c *models.PollConfigModel) {
		c.Rules = datatypes.NewJSONType(models.PollRules{VotingRules: models.VotingRules{RequireAuth: true}})
	})
	inv := f.invite(t, models.PollKindPoll, p.ID, "+1")

	_, err := f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, nil, inv.Token))
	assert.True(t, apperr.HasCode(err, apperr.AuthOrInviteRequired))

	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, testutil.Ptr(uint64(4)), inv.Token))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.voteCount(t, p.ID))
}

func TestInviteMustBelongToPoll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.poll(t, models.TemplateYesNo, inviteOnly)
	other := f.poll(t, models.TemplateYesNo, inviteOnly)
	foreign := f.invite(t, models.PollKindPoll, other.ID, "+1")

	_, err := f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, nil, foreign.Token))
	assert.True(t, apperr.HasCode(err, apperr.InvalidInvite))

	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, nil, "made-up"))
	assert.True(t, apperr.HasCode(err, apperr.InvalidInvite))

	rejected := f.invite(t, models.PollKindPoll, p.ID, "+2")
	require.NoError(t, f.db.Model(rejected).Update("status", models.InviteRejected).Error)
	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, nil, rejected.Token))
	assert.True(t, apperr.HasCode(err, apperr.InvalidInvite))
}

func TestInviteVoteConsumesInvite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.poll(t, models.TemplateYesNo, inviteOnly)
	inv := f.invite(t, models.PollKindPoll, p.ID, "+1")
	user := testutil.Ptr(uint64(77))

	vote, err := f.svc.Cast(ctx, ballot(p.ID, `{"choice":"YES"}`, user, inv.Token))
	require.NoError(t, err)
	require.NotNil(t, vote.InviteID)
	assert.Equal(t, inv.ID, *vote.InviteID)
	require.NotNil(t, vote.PollConfigID)

	var stored models.InviteModel
	require.NoError(t, f.db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InviteAccepted, stored.Status)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, *user, *stored.UserID)

	// the same invite cannot be reused, even anonymously
	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"NO"}`, nil, inv.Token))
	assert.True(t, apperr.HasCode(err, apperr.AlreadyVoted))

	// nor by the user through a different invite
	second := f.invite(t, models.PollKindPoll, p.ID, "+2")
	_, err = f.svc.Cast(ctx, ballot(p.ID, `{"choice":"NO"}`, user, second.Token))
	assert.True(t, apperr.HasCode(err, apperr.AlreadyVoted))
	assert.Equal(t, int64(1), f.voteCount(t, p.ID))
}

// The test database has one connection, so the two casts serialize and the
// loser is caught by the pre-check. TestInsertRaceMapsToAlreadyVoted covers
// the insert path.
func TestConcurrentDoubleCast(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil)
	user := testutil.Ptr(uint64(3))

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, user, ""))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.HasCode(err, apperr.AlreadyVoted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
	assert.Equal(t, int64(1), f.voteCount(t, p.ID))
}

func TestStoreRejectsDuplicateFacet(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil)
	user := testutil.Ptr(uint64(3))
	row := func() *models.VoteModel {
		return &models.VoteModel{PollKind: models.PollKindPoll, PollID: p.ID, UserID: user, Response: datatypes.JSON(`{}`)}
	}
	require.NoError(t, f.db.Create(row()).Error)

	_, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, user, ""))
	assert.True(t, apperr.HasCode(err, apperr.AlreadyVoted))
	assert.Error(t, f.db.Create(row()).Error)
}

// A rival ballot committed between the pre-check and the insert must surface
// as ALREADY_VOTED from the unique index.
func TestInsertRaceMapsToAlreadyVoted(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil)
	user := testutil.Ptr(uint64(3))

	injected := false
	err := f.db.Callback().Create().Before("gorm:create").Register("test:rival_vote", func(db *gorm.DB) {
		if _, ok := db.Statement.Model.(*models.VoteModel); !ok || injected {
			return
		}
		injected = true
		rival := &models.VoteModel{PollKind: models.PollKindPoll, PollID: p.ID, UserID: user, Response: datatypes.JSON(`{"choice":"NO"}`)}
		if err := db.Session(&gorm.Session{NewDB: true}).Create(rival).Error; err != nil {
			db.AddError(err)
		}
	})
	require.NoError(t, err)

	_, err = f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, user, ""))
	require.True(t, injected)
	assert.True(t, apperr.HasCode(err, apperr.AlreadyVoted), "got %v", err)
	assert.Equal(t, int64(0), f.voteCount(t, p.ID), "the transaction rolls back with the rival row")
}

func TestResponseShape(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	multi := f.poll(t, models.TemplateMultiChoice, func(c *models.PollConfigModel) {
		c.Rules = datatypes.NewJSONType(models.PollRules{ContentRules: models.ContentRules{
			MinSelections: testutil.Ptr(2),
			MaxSelections: testutil.Ptr(3),
		}})
	})
	yesNo := f.poll(t, models.TemplateYesNo, nil)
	rating := f.poll(t, models.TemplateRating, func(c *models.PollConfigModel) {
		c.Rules = datatypes.NewJSONType(models.PollRules{ContentRules: models.ContentRules{
			RatingMin: testutil.Ptr(1.0),
			RatingMax: testutil.Ptr(5.0),
		}})
	})

	cases := []struct {
		poll     uint64
		response string
		ok       bool
	}{
		{multi.ID, `{"selections":["a"]}`, false},
		{multi.ID, `{"selections":["a","b","c","d"]}`, false},
		{multi.ID, `{"selections":"a"}`, false},
		{multi.ID, `{"selections":["a","b"]}`, true},
		{yesNo.ID, `{"choice":"MAYBE"}`, false},
		{yesNo.ID, `{"choice":"YES"}`, true},
		{rating.ID, `{"value":"five"}`, false},
		{rating.ID, `{"value":9}`, false},
		{rating.ID, `{"value":4}`, true},
		{rating.ID, `[4]`, false},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			_, err := f.svc.Cast(ctx, ballot(tc.poll, tc.response, testutil.Ptr(uint64(100+i)), ""))
			if tc.ok {
				require.NoError(t, err)
				return
			}
			assert.True(t, apperr.HasCode(err, apperr.InvalidResponse), "got %v", err)
		})
	}
}

type failingAuditor struct{ calls int }

func (a *failingAuditor) Record(context.Context, *models.AuditLogModel) error {
	a.calls++
	return errors.New("audit store down")
}

func TestAuditFailureDoesNotBlockVote(t *testing.T) {
	auditor := &failingAuditor{}
	f := setup(t, WithAuditor(auditor))
	p := f.poll(t, models.TemplateYesNo, nil)

	vote, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, testutil.Ptr(uint64(1)), ""))
	require.NoError(t, err)
	assert.NotZero(t, vote.ID)
	assert.Equal(t, 1, auditor.calls)
}

func TestAuditRecordWritten(t *testing.T) {
	f := setup(t)
	p := f.poll(t, models.TemplateYesNo, nil)

	_, err := f.svc.Cast(context.Background(), ballot(p.ID, `{"choice":"YES"}`, testutil.Ptr(uint64(1)), ""))
	require.NoError(t, err)
	var entries int64
	require.NoError(t, f.db.Model(&models.AuditLogModel{}).Where("action = ? AND entity_id = ?", "vote.cast", p.ID).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}

func TestUserPollVoting(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := testutil.Epoch.Add(-time.Minute)
	p := &models.UserPollModel{
		CreatorID:  1,
		CategoryID: f.child.ID,
		Title:      "lunch",
		Type:       models.UserPollSingleChoice,
		Status:     models.UserPollScheduled,
		StartAt:    &start,
		Options: []models.UserPollOption{
			{Label: "pizza", DisplayOrder: 0},
			{Label: "sushi", DisplayOrder: 1},
		},
	}
	require.NoError(t, f.db.Create(p).Error)
	pizza, sushi := p.Options[0].ID, p.Options[1].ID
	cast := func(user uint64, response string) error {
		_, err := f.svc.Cast(ctx, &Ballot{
			PollKind: models.PollKindUserPoll,
			PollID:   p.ID,
			Response: json.RawMessage(response),
			UserID:   &user,
		})
		return err
	}

	assert.True(t, apperr.HasCode(cast(1, fmt.Sprintf(`{"selections":[%d,%d]}`, pizza, sushi)), apperr.InvalidResponse))
	assert.True(t, apperr.HasCode(cast(1, `{"selections":[999999]}`), apperr.InvalidResponse))
	require.NoError(t, cast(1, fmt.Sprintf(`{"selections":[%d]}`, pizza)))
	require.NoError(t, cast(2, fmt.Sprintf(`{"selections":[%d]}`, sushi)))
	require.NoError(t, cast(3, fmt.Sprintf(`{"selections":[%d]}`, sushi)))
	assert.True(t, apperr.HasCode(cast(3, fmt.Sprintf(`{"selections":[%d]}`, pizza)), apperr.AlreadyVoted))

	tally, err := f.svc.Results(ctx, models.PollKindUserPoll, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tally.Total)
	assert.Equal(t, int64(1), tally.Options[pizza])
	assert.Equal(t, int64(2), tally.Options[sushi])

	require.NoError(t, f.db.Model(p).Update("status", models.UserPollClosed).Error)
	assert.True(t, apperr.HasCode(cast(4, fmt.Sprintf(`{"selections":[%d]}`, pizza)), apperr.PollNotLive))
}
