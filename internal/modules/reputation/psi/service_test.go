package psi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/testutil"
	"gorm.io/gorm"
)

var perfect = Ratings{100, 100, 100, 100}

type memCache struct {
	mu          sync.Mutex
	entries     []TrendingEntry
	found       bool
	invalidated int
}

func (m *memCache) Get(context.Context) ([]TrendingEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, m.found, nil
}

func (m *memCache) Set(_ context.Context, entries []TrendingEntry, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries, m.found = entries, true
	return nil
}

func (m *memCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries, m.found = nil, false
	m.invalidated++
	return nil
}

func setup(t *testing.T, opts ...ServiceOption) (*gorm.DB, *Service, *models.CategoryModel) {
	t.Helper()
	db := testutil.DB(t)
	parent := testutil.Parent(t, db, models.DomainProfile)
	child := testutil.Child(t, db, parent)
	opts = append([]ServiceOption{WithClock(testutil.Clock())}, opts...)
	return db, NewService(db, opts...), child
}

func TestSubmitVerifiedPerfectScore(t *testing.T) {
	db, svc, cat := setup(t)
	profile := testutil.Profile(t, db, cat.ID)
	user := testutil.User(t, db, true)

	score, err := svc.SubmitVote(context.Background(), user.ID, profile.ID, perfect)
	require.NoError(t, err)
	assert.Equal(t, 100, score.Score)
	assert.Equal(t, perfect, score.Factors)
	assert.Equal(t, int64(1), score.VoteCount)

	var stored models.ProfileModel
	require.NoError(t, db.First(&stored, profile.ID).Error)
	assert.Equal(t, 100, stored.PsiScore)
	assert.Equal(t, int64(1), stored.PsiVoteCount)
	require.NotNil(t, stored.PsiUpdatedAt)
	assert.True(t, stored.PsiUpdatedAt.Equal(testutil.Epoch))
}

func TestSubmitReplacesPreviousVote(t *testing.T) {
	db, svc, cat := setup(t)
	profile := testutil.Profile(t, db, cat.ID)
	user := testutil.User(t, db, false)
	ctx := context.Background()

	_, err := svc.SubmitVote(ctx, user.ID, profile.ID, perfect)
	require.NoError(t, err)
	score, err := svc.SubmitVote(ctx, user.ID, profile.ID, Ratings{0, 0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, int64(1), score.VoteCount)
	assert.Equal(t, -100, score.Score)

	var rows int64
	require.NoError(t, db.Model(&models.PsiVoteModel{}).Where("profile_id = ?", profile.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSubmitWeightFollowsTrustState(t *testing.T) {
	db, svc, cat := setup(t)
	ctx := context.Background()
	user := testutil.User(t, db, false)

	profiles := make([]*models.ProfileModel, 6)
	for i := range profiles {
		profiles[i] = testutil.Profile(t, db, cat.ID)
	}
	for _, p := range profiles {
		_, err := svc.SubmitVote(ctx, user.ID, p.ID, perfect)
		require.NoError(t, err)
	}

	weightOf := func(profileID uint64) float64 {
		var row models.PsiVoteModel
		require.NoError(t, db.Where("profile_id = ? AND user_id = ?", profileID, user.ID).First(&row).Error)
		return row.Weight
	}
	assert.Equal(t, 0.5, weightOf(profiles[0].ID))
	assert.Equal(t, 0.5, weightOf(profiles[4].ID))
	assert.Equal(t, 0.8, weightOf(profiles[5].ID))

	// re-voting applies the current trust state to the replaced row
	_, err := svc.SubmitVote(ctx, user.ID, profiles[0].ID, perfect)
	require.NoError(t, err)
	assert.Equal(t, 0.8, weightOf(profiles[0].ID))

	require.NoError(t, db.Model(user).Update("is_verified", true).Error)
	_, err = svc.SubmitVote(ctx, user.ID, profiles[0].ID, perfect)
	require.NoError(t, err)
	assert.Equal(t, 1.0, weightOf(profiles[0].ID))
}

func TestSubmitMixedWeights(t *testing.T) {
	db, svc, cat := setup(t)
	ctx := context.Background()
	profile := testutil.Profile(t, db, cat.ID)
	verified := testutil.User(t, db, true)
	fresh := testutil.User(t, db, false)

	_, err := svc.SubmitVote(ctx, verified.ID, profile.ID, perfect)
	require.NoError(t, err)
	score, err := svc.SubmitVote(ctx, fresh.ID, profile.ID, Ratings{0, 0, 0, 0})
	require.NoError(t, err)

	assert.InDelta(t, 66.667, score.Factors.Competence, 0.001)
	assert.Equal(t, 33, score.Score)
	assert.Equal(t, int64(2), score.VoteCount)
}

func TestSubmitClampsRatings(t *testing.T) {
	db, svc, cat := setup(t)
	profile := testutil.Profile(t, db, cat.ID)
	user := testutil.User(t, db, true)

	score, err := svc.SubmitVote(context.Background(), user.ID, profile.ID, Ratings{Integrity: 250, Competence: -10, Responsiveness: 100, Transparency: 0})
	require.NoError(t, err)
	assert.Equal(t, Ratings{100, 0, 100, 0}, score.Factors)
	assert.Equal(t, 0, score.Score)
}

func TestSubmitRejectsInactiveOrMissing(t *testing.T) {
	db, svc, cat := setup(t)
	ctx := context.Background()
	user := testutil.User(t, db, true)
	disabled := testutil.Profile(t, db, cat.ID, func(p *models.ProfileModel) { p.Status = models.ProfileDisabled })

	_, err := svc.SubmitVote(ctx, user.ID, disabled.ID, perfect)
	assert.True(t, apperr.HasCode(err, apperr.ProfileNotFound))

	_, err = svc.SubmitVote(ctx, user.ID, 9999, perfect)
	assert.True(t, apperr.HasCode(err, apperr.ProfileNotFound))

	active := testutil.Profile(t, db, cat.ID)
	_, err = svc.SubmitVote(ctx, 9999, active.ID, perfect)
	assert.True(t, apperr.HasCode(err, apperr.UserNotFound))
}

func TestRecomputeWithoutVotes(t *testing.T) {
	db, svc, cat := setup(t)
	profile := testutil.Profile(t, db, cat.ID, func(p *models.ProfileModel) { p.PsiScore = 42 })

	score, err := svc.Recompute(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, score.Score)
	assert.Equal(t, Ratings{50, 50, 50, 50}, score.Factors)

	got, err := svc.GetScore(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)

	_, err = svc.Recompute(context.Background(), 9999)
	assert.True(t, apperr.HasCode(err, apperr.ProfileNotFound))
}

func TestListTrendingOrdersByScore(t *testing.T) {
	db, svc, cat := setup(t)
	ctx := context.Background()
	user := testutil.User(t, db, true)

	low := testutil.Profile(t, db, cat.ID)
	high := testutil.Profile(t, db, cat.ID)
	mid := testutil.Profile(t, db, cat.ID)
	testutil.Profile(t, db, cat.ID) // never rated

	for id, r := range map[uint64]Ratings{
		low.ID:  {10, 10, 10, 10},
		high.ID: perfect,
		mid.ID:  {60, 60, 60, 60},
	} {
		_, err := svc.SubmitVote(ctx, user.ID, id, r)
		require.NoError(t, err)
	}

	entries, err := svc.ListTrending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, high.ID, entries[0].ProfileID)
	assert.Equal(t, high.Name, entries[0].Name)
	assert.Equal(t, mid.ID, entries[1].ProfileID)

	all, err := svc.ListTrending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, low.ID, all[2].ProfileID)
	assert.Equal(t, -80, all[2].Score)
}

func TestTrendingCacheInvalidatedOnSubmit(t *testing.T) {
	cache := &memCache{}
	db, svc, cat := setup(t, WithTrendingCache(cache, time.Minute))
	ctx := context.Background()
	user := testutil.User(t, db, true)
	profile := testutil.Profile(t, db, cat.ID)

	entries, err := svc.ListTrending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, cache.found)

	_, err = svc.SubmitVote(ctx, user.ID, profile.ID, perfect)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.False(t, cache.found)

	entries, err = svc.ListTrending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, profile.ID, entries[0].ProfileID)
}
