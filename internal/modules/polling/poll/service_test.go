package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	parent *models.CategoryModel
	child  *models.CategoryModel
	config *models.PollConfigModel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	parent := testutil.Parent(t, db, models.DomainPoll)
	return &fixture{
		db:     db,
		svc:    NewService(db, WithClock(testutil.Clock())),
		parent: parent,
		child:  testutil.Child(t, db, parent),
		config: testutil.Config(t, db, models.TemplateSingleChoice),
	}
}

func (f *fixture) draft(t *testing.T) *models.PollModel {
	t.Helper()
	p, err := f.svc.Create(context.Background(), 1, &CreatePollDTO{Title: "Who wins?", CategoryID: f.child.ID, PollConfigID: f.config.ID})
	require.NoError(t, err)
	return p
}

func TestCreateStartsAsDraft(t *testing.T) {
	f := setup(t)
	p := f.draft(t)
	assert.Equal(t, models.PollDraft, p.Status)
	assert.Nil(t, p.StartAt)
}

func TestCreateChecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	profileParent := testutil.Parent(t, f.db, models.DomainProfile)
	profileChild := testutil.Child(t, f.db, profileParent)
	draftCfg := testutil.Config(t, f.db, models.TemplateYesNo, func(c *models.PollConfigModel) { c.Status = models.PollConfigDraft })

	cases := []struct {
		name     string
		category uint64
		config   uint64
		want     apperr.Code
	}{
		{"wrong domain", profileChild.ID, f.config.ID, apperr.CategoryNotFound},
		{"parent", f.parent.ID, f.config.ID, apperr.CategoryNotChild},
		{"missing config", f.child.ID, 31337, apperr.ConfigNotFound},
		{"draft config", f.child.ID, draftCfg.ID, apperr.ConfigNotActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, 1, &CreatePollDTO{Title: "x", CategoryID: tc.category, PollConfigID: tc.config})
			assert.True(t, apperr.HasCode(err, tc.want), "got %v", err)
		})
	}
}

func TestPublishCloseLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.draft(t)

	published, err := f.svc.Publish(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollPublished, published.Status)
	require.NotNil(t, published.StartAt)
	assert.True(t, published.StartAt.Equal(testutil.Epoch))

	title := "changed"
	_, err = f.svc.Update(ctx, p.ID, &UpdatePollDTO{Title: &title})
	assert.True(t, apperr.HasCode(err, apperr.NotEditable))

	_, err = f.svc.Publish(ctx, p.ID)
	assert.True(t, apperr.HasCode(err, apperr.InvalidStatus))

	closed, err := f.svc.Close(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollClosed, closed.Status)
	require.NotNil(t, closed.EndAt)

	_, err = f.svc.Close(ctx, p.ID)
	assert.True(t, apperr.HasCode(err, apperr.InvalidStatus))
}

func TestCloseRequiresPublished(t *testing.T) {
	f := setup(t)
	p := f.draft(t)
	_, err := f.svc.Close(context.Background(), p.ID)
	assert.True(t, apperr.HasCode(err, apperr.InvalidStatus))

	_, err = f.svc.Close(context.Background(), 4040)
	assert.True(t, apperr.HasCode(err, apperr.NotFound))
}

func TestPublishRevalidatesTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.draft(t)

	require.NoError(t, f.db.Model(f.parent).Update("status", models.CategoryDisabled).Error)
	_, err := f.svc.Publish(ctx, p.ID)
	assert.True(t, apperr.HasCode(err, apperr.CategoryNotActive))

	require.NoError(t, f.db.Model(f.parent).Update("status", models.CategoryActive).Error)
	require.NoError(t, f.db.Model(f.config).Update("status", models.PollConfigDisabled).Error)
	_, err = f.svc.Publish(ctx, p.ID)
	assert.True(t, apperr.HasCode(err, apperr.ConfigNotActive))

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollDraft, got.Status)
}

func TestUpdateRechecksChangedTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.draft(t)

	closedChild := testutil.Child(t, f.db, f.parent, func(c *models.CategoryModel) { c.Claimable = models.Set(models.No) })
	_, err := f.svc.Update(ctx, p.ID, &UpdatePollDTO{CategoryID: &closedChild.ID})
	assert.True(t, apperr.HasCode(err, apperr.CategoryNotAllowed))

	start := testutil.Epoch.Add(time.Hour)
	end := testutil.Epoch
	_, err = f.svc.Update(ctx, p.ID, &UpdatePollDTO{StartAt: &start, EndAt: &end})
	assert.True(t, apperr.HasCode(err, apperr.EndAtBeforeStart))

	end = start.Add(48 * time.Hour)
	updated, err := f.svc.Update(ctx, p.ID, &UpdatePollDTO{StartAt: &start, EndAt: &end})
	require.NoError(t, err)
	assert.True(t, updated.EndAt.Equal(end))
}

func TestListPaginates(t *testing.T) {
	f := setup(t)
	for i := 0; i < 3; i++ {
		f.draft(t)
	}
	polls, pag, err := f.svc.List(context.Background(), &ListQuery{Status: string(models.PollDraft), Size: 2})
	require.NoError(t, err)
	assert.Len(t, polls, 2)
	assert.Equal(t, int64(3), pag.Total)
	assert.True(t, pag.HasNextPage)
}
