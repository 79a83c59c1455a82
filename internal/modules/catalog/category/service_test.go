package category

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/testutil"
)

func TestCreateChildValidatesParent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := NewService(db)

	parent, err := svc.Create(ctx, &CreateCategoryDTO{Name: "Politics", Domain: models.DomainPoll, IsParent: true, ClaimableDefault: models.Yes})
	require.NoError(t, err)
	assert.Equal(t, models.No, parent.RequestAllowedDefault)

	_, err = svc.Create(ctx, &CreateCategoryDTO{Name: "People", Domain: models.DomainProfile, ParentID: &parent.ID})
	assert.True(t, apperr.HasCode(err, apperr.ValidationFailed))

	missing := uint64(777)
	_, err = svc.Create(ctx, &CreateCategoryDTO{Name: "Lost", Domain: models.DomainPoll, ParentID: &missing})
	assert.True(t, apperr.HasCode(err, apperr.CategoryNotFound))

	child, err := svc.Create(ctx, &CreateCategoryDTO{Name: "Local", Domain: models.DomainPoll, ParentID: &parent.ID, AdminCurated: models.Set(models.Yes)})
	require.NoError(t, err)

	view, err := svc.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Yes, view.Effective.Claimable)
	assert.Equal(t, models.No, view.Effective.RequestAllowed)
	assert.Equal(t, models.Yes, view.Effective.AdminCurated)
}

func TestUpdateNullResetsOverride(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := NewService(db)
	parent := testutil.Parent(t, db, models.DomainPoll)
	child := testutil.Child(t, db, parent, func(c *models.CategoryModel) { c.Claimable = models.Set(models.No) })

	var dto UpdateCategoryDTO
	require.NoError(t, json.Unmarshal([]byte(`{"claimable":null}`), &dto))
	assert.True(t, dto.Claimable.Present)
	assert.False(t, dto.RequestAllowed.Present)

	updated, err := svc.Update(ctx, child.ID, &dto)
	require.NoError(t, err)
	assert.False(t, updated.Claimable.IsSet())

	view, err := svc.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Yes, view.Effective.Claimable)
}

func TestUpdateRejectsDefaultsOnChild(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := NewService(db)
	parent := testutil.Parent(t, db, models.DomainPoll)
	child := testutil.Child(t, db, parent)

	yes := models.Yes
	_, err := svc.Update(ctx, child.ID, &UpdateCategoryDTO{ClaimableDefault: &yes})
	assert.True(t, apperr.HasCode(err, apperr.ValidationFailed))
}

func TestDeleteParentWithChildren(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := NewService(db)
	parent := testutil.Parent(t, db, models.DomainPoll)
	child := testutil.Child(t, db, parent)

	err := svc.Delete(ctx, parent.ID)
	assert.True(t, apperr.HasCode(err, apperr.NotEditable))

	require.NoError(t, svc.Delete(ctx, child.ID))
	require.NoError(t, svc.Delete(ctx, parent.ID))

	_, err = svc.Get(ctx, parent.ID)
	assert.True(t, apperr.HasCode(err, apperr.CategoryNotFound))
}

func TestOverrideWireShape(t *testing.T) {
	cat := models.CategoryModel{Name: "c", Claimable: models.Set(models.Yes)}
	raw, err := json.Marshal(cat)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "YES", m["claimable"])
	_, present := m["request_allowed"]
	assert.False(t, present)
}
