package userpoll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"github.com/votehub/core/internal/testutil"
	"gorm.io/gorm"
)

const creator = uint64(42)

type fixture struct {
	db    *gorm.DB
	clock *clock.Fixed
	svc   *Service
	child *models.CategoryModel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	clk := testutil.Clock()
	parent := testutil.Parent(t, db, models.DomainPoll)
	return &fixture{
		db:    db,
		clock: clk,
		svc:   NewService(db, WithClock(clk)),
		child: testutil.Child(t, db, parent),
	}
}

func (f *fixture) create(t *testing.T, inviteOnly bool) *UserPollView {
	t.Helper()
	p, err := f.svc.Create(context.Background(), creator, &CreateUserPollDTO{
		CategoryID:   f.child.ID,
		Title:        "lunch?",
		Type:         models.UserPollSingleChoice,
		IsInviteOnly: inviteOnly,
		StartMode:    StartInstant,
		Options:      []string{"pizza", "sushi", "tacos"},
	})
	require.NoError(t, err)
	return p
}

func TestCreateInstantIsLiveWithOrderedOptions(t *testing.T) {
	f := setup(t)
	p := f.create(t, false)

	assert.Equal(t, models.UserPollLive, p.Status)
	require.NotNil(t, p.StartAt)
	assert.True(t, p.StartAt.Equal(testutil.Epoch))

	got, err := f.svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, got.Options, 3)
	for i, label := range []string{"pizza", "sushi", "tacos"} {
		assert.Equal(t, label, got.Options[i].Label)
		assert.Equal(t, i, got.Options[i].DisplayOrder)
	}
}

func TestCreateScheduled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := testutil.Epoch.Add(2 * time.Hour)

	p, err := f.svc.Create(ctx, creator, &CreateUserPollDTO{
		CategoryID: f.child.ID,
		Title:      "tomorrow",
		Type:       models.UserPollYesNo,
		StartMode:  StartScheduled,
		StartAt:    &start,
	})
	require.NoError(t, err)
	assert.Equal(t, models.UserPollScheduled, p.Status)
	assert.Len(t, p.Options, 2)

	f.clock.Set(start.Add(time.Minute))
	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserPollScheduled, got.Status)
	assert.Equal(t, models.UserPollLive, got.EffectiveStatus)

	past := testutil.Epoch.Add(-time.Hour)
	_, err = f.svc.Create(ctx, creator, &CreateUserPollDTO{
		CategoryID: f.child.ID, Title: "x", Type: models.UserPollYesNo, StartMode: StartScheduled, StartAt: &past,
	})
	assert.True(t, apperr.HasCode(err, apperr.ValidationFailed))
}

func TestCreateRequiresOpenCategory(t *testing.T) {
	f := setup(t)
	parent := testutil.Parent(t, f.db, models.DomainPoll, func(c *models.CategoryModel) { c.RequestAllowedDefault = models.No })
	closed := testutil.Child(t, f.db, parent)

	_, err := f.svc.Create(context.Background(), creator, &CreateUserPollDTO{
		CategoryID: closed.ID, Title: "x", Type: models.UserPollYesNo, StartMode: StartInstant,
	})
	assert.True(t, apperr.HasCode(err, apperr.CategoryNotAllowed))
}

func TestEndIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.create(t, false)

	_, err := f.svc.End(ctx, creator+1, p.ID)
	assert.True(t, apperr.HasCode(err, apperr.NotFoundOrForbidden))

	ended, err := f.svc.End(ctx, creator, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserPollClosed, ended.Status)
	require.NotNil(t, ended.EndAt)
	firstEnd := *ended.EndAt

	f.clock.Advance(time.Hour)
	again, err := f.svc.End(ctx, creator, p.ID)
	require.NoError(t, err)
	assert.True(t, again.EndAt.Equal(firstEnd))
}

func TestExtendChecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.create(t, false)

	_, err := f.svc.Extend(ctx, creator, p.ID, &ExtendDTO{})
	assert.True(t, apperr.HasCode(err, apperr.InvalidEndAt))

	_, err = f.svc.Extend(ctx, creator, p.ID, &ExtendDTO{EndAt: testutil.Epoch.Add(-time.Second)})
	assert.True(t, apperr.HasCode(err, apperr.EndAtInPast))

	later := testutil.Epoch.Add(72 * time.Hour)
	extended, err := f.svc.Extend(ctx, creator, p.ID, &ExtendDTO{EndAt: later})
	require.NoError(t, err)
	assert.True(t, extended.EndAt.Equal(later))
	assert.Equal(t, models.UserPollLive, extended.Status)

	_, err = f.svc.End(ctx, creator, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Extend(ctx, creator, p.ID, &ExtendDTO{EndAt: later.Add(time.Hour)})
	assert.True(t, apperr.HasCode(err, apperr.PollAlreadyClosed))
}

func TestExtendBeforeStart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := testutil.Epoch.Add(48 * time.Hour)
	p, err := f.svc.Create(ctx, creator, &CreateUserPollDTO{
		CategoryID: f.child.ID, Title: "later", Type: models.UserPollYesNo, StartMode: StartScheduled, StartAt: &start,
	})
	require.NoError(t, err)

	_, err = f.svc.Extend(ctx, creator, p.ID, &ExtendDTO{EndAt: start.Add(-time.Hour)})
	assert.True(t, apperr.HasCode(err, apperr.EndAtBeforeStart))
}

func TestSelfInviteReturnsSameToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.create(t, true)

	first, err := f.svc.SelfInvite(ctx, creator, p.ID)
	require.NoError(t, err)
	second, err := f.svc.SelfInvite(ctx, creator, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)

	var count int64
	require.NoError(t, f.db.Model(&models.InviteModel{}).Where("poll_id = ?", p.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSelfInvitePreconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SelfInvite(ctx, creator, 999)
	assert.True(t, apperr.HasCode(err, apperr.PollNotFound))

	open := f.create(t, false)
	_, err = f.svc.SelfInvite(ctx, creator, open.ID)
	assert.True(t, apperr.HasCode(err, apperr.PollNotInviteOnly))

	private := f.create(t, true)
	_, err = f.svc.End(ctx, creator, private.ID)
	require.NoError(t, err)
	_, err = f.svc.SelfInvite(ctx, creator, private.ID)
	assert.True(t, apperr.HasCode(err, apperr.PollNotLive))
}

func TestBulkInviteMergesSources(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.create(t, true)

	group, err := f.svc.CreateGroup(ctx, creator, &NewGroupDTO{Name: "family", Mobiles: []string{"+1 555 01", "+155502"}})
	require.NoError(t, err)
	assert.Len(t, group.Members, 2)

	res, err := f.svc.BulkInvite(ctx, creator, p.ID, &BulkInviteDTO{
		GroupIDs: []uint64{group.ID},
		NewGroup: &NewGroupDTO{Name: "work", Mobiles: []string{"+155503", " +155501 "}},
		Mobiles:  []string{"+155504", "+1555 02"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.GroupID)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, int64(4), res.Created)

	res, err = f.svc.BulkInvite(ctx, creator, p.ID, &BulkInviteDTO{Mobiles: []string{"+155504", "+155505"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Created)

	invites, err := f.svc.ListInvites(ctx, creator, p.ID)
	require.NoError(t, err)
	assert.Len(t, invites, 5)

	groups, err := f.svc.ListGroups(ctx, creator)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestBulkInvitePreconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	open := f.create(t, false)
	_, err := f.svc.BulkInvite(ctx, creator, open.ID, &BulkInviteDTO{Mobiles: []string{"+1"}})
	assert.True(t, apperr.HasCode(err, apperr.PollNotInviteOnly))

	private := f.create(t, true)
	_, err = f.svc.BulkInvite(ctx, creator+1, private.ID, &BulkInviteDTO{Mobiles: []string{"+1"}})
	assert.True(t, apperr.HasCode(err, apperr.NotFoundOrForbidden))

	foreign, err := f.svc.CreateGroup(ctx, creator+1, &NewGroupDTO{Name: "theirs", Mobiles: []string{"+9"}})
	require.NoError(t, err)
	_, err = f.svc.BulkInvite(ctx, creator, private.ID, &BulkInviteDTO{GroupIDs: []uint64{foreign.ID}})
	assert.True(t, apperr.HasCode(err, apperr.NotFoundOrForbidden))

	_, err = f.svc.End(ctx, creator, private.ID)
	require.NoError(t, err)
	_, err = f.svc.BulkInvite(ctx, creator, private.ID, &BulkInviteDTO{Mobiles: []string{"+1"}})
	assert.True(t, apperr.HasCode(err, apperr.PollNotActive))
}
