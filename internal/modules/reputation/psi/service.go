package psi

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultTrendingLimit = 10
	// trendingDepth is how many entries a cached ranking keeps.
	trendingDepth = 100
)

// Service aggregates weighted PSI votes into per-profile scores.
type Service struct {
	db       *gorm.DB
	clock    clock.Clock
	cache    TrendingCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// ServiceOption configures a PSI Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the PSI service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("PsiService")
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = clock.OrReal(c) }
}

// WithTrendingCache enables caching of the trending ranking.
func WithTrendingCache(c TrendingCache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, clock: clock.Real, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SubmitVote records or replaces userID's rating of a profile and returns the
// recomputed score. The weight reflects the voter's trust at submit time.
func (s *Service) SubmitVote(ctx context.Context, userID, profileID uint64, ratings Ratings) (*Score, error) {
	var score Score
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.ProfileModel
		if err := database.ForUpdate(tx).First(&profile, profileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ProfileNotFound, "profile not found")
			}
			return err
		}
		if profile.Status != models.ProfileActive {
			return apperr.New(apperr.ProfileNotFound, "profile not found")
		}

		var user models.UserModel
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.UserNotFound, "user not found")
			}
			return err
		}

		var rated int64
		if err := tx.Model(&models.PsiVoteModel{}).Where("user_id = ?", userID).Distinct("profile_id").Count(&rated).Error; err != nil {
			return err
		}

		r := ratings.Clamp()
		row := models.PsiVoteModel{
			ProfileID:      profileID,
			UserID:         userID,
			Weight:         Weight(user.IsVerified, rated),
			Integrity:      r.Integrity,
			Competence:     r.Competence,
			Responsiveness: r.Responsiveness,
			Transparency:   r.Transparency,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight", "integrity", "competence", "responsiveness", "transparency", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		score, err = s.recompute(ctx, tx, profileID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("trending cache invalidation failed", zap.Error(err))
		}
	}
	return &score, nil
}

// Recompute rebuilds the cached score of a profile from its current rows.
func (s *Service) Recompute(ctx context.Context, profileID uint64) (*Score, error) {
	var score Score
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.ProfileModel{}).Where("id = ?", profileID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return apperr.New(apperr.ProfileNotFound, "profile not found")
		}
		var err error
		score, err = s.recompute(ctx, tx, profileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *Service) recompute(ctx context.Context, tx *gorm.DB, profileID uint64) (Score, error) {
	rows, err := aggregate(ctx, tx.Where("profile_id = ?", profileID))
	if err != nil {
		return Score{}, err
	}
	agg := sums{ProfileID: profileID}
	if len(rows) > 0 {
		agg = rows[0]
	}
	score := agg.score()
	err = tx.Model(&models.ProfileModel{}).Where("id = ?", profileID).Updates(map[string]interface{}{
		"psi_score":          score.Score,
		"psi_integrity":      score.Factors.Integrity,
		"psi_competence":     score.Factors.Competence,
		"psi_responsiveness": score.Factors.Responsiveness,
		"psi_transparency":   score.Factors.Transparency,
		"psi_vote_count":     score.VoteCount,
		"psi_updated_at":     s.clock.Now(),
	}).Error
	return score, err
}

// aggregate computes weighted sums per profile in a single grouped query.
func aggregate(ctx context.Context, db *gorm.DB) ([]sums, error) {
	var rows []sums
	err := db.WithContext(ctx).Model(&models.PsiVoteModel{}).
		Select(`profile_id,
			COUNT(*) AS vote_count,
			COALESCE(SUM(weight), 0) AS total_weight,
			COALESCE(SUM(weight * integrity), 0) AS integrity,
			COALESCE(SUM(weight * competence), 0) AS competence,
			COALESCE(SUM(weight * responsiveness), 0) AS responsiveness,
			COALESCE(SUM(weight * transparency), 0) AS transparency`).
		Group("profile_id").
		Scan(&rows).Error
	return rows, err
}

// GetScore returns the cached score stored on the profile.
func (s *Service) GetScore(ctx context.Context, profileID uint64) (*Score, error) {
	var p models.ProfileModel
	if err := s.db.WithContext(ctx).First(&p, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ProfileNotFound, "profile not found")
		}
		return nil, err
	}
	return &Score{
		ProfileID: p.ID,
		Score:     p.PsiScore,
		VoteCount: p.PsiVoteCount,
		Factors: Ratings{
			Integrity:      p.PsiIntegrity,
			Competence:     p.PsiCompetence,
			Responsiveness: p.PsiResponsiveness,
			Transparency:   p.PsiTransparency,
		},
	}, nil
}

// TrendingEntry is one row of the trending ranking.
type TrendingEntry struct {
	Score
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListTrending ranks profiles by score, highest first.
func (s *Service) ListTrending(ctx context.Context, limit int) ([]TrendingEntry, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > trendingDepth {
		limit = trendingDepth
	}
	if s.cache != nil {
		entries, found, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("trending cache read failed", zap.Error(err))
		}
		if found && err == nil {
			return entries[:min(limit, len(entries))], nil
		}
	}

	entries, err := s.RefreshTrending(ctx)
	if err != nil {
		return nil, err
	}
	return entries[:min(limit, len(entries))], nil
}

// RefreshTrending recomputes the full ranking and stores it in the cache.
func (s *Service) RefreshTrending(ctx context.Context) ([]TrendingEntry, error) {
	rows, err := aggregate(ctx, s.db)
	if err != nil {
		return nil, err
	}
	scores := lo.Map(rows, func(r sums, _ int) Score { return r.score() })
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].VoteCount != scores[j].VoteCount {
			return scores[i].VoteCount > scores[j].VoteCount
		}
		return scores[i].ProfileID < scores[j].ProfileID
	})
	if len(scores) > trendingDepth {
		scores = scores[:trendingDepth]
	}

	var profiles []models.ProfileModel
	ids := lo.Map(scores, func(sc Score, _ int) uint64 { return sc.ProfileID })
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Select("id", "name", "slug").Where("id IN ?", ids).Find(&profiles).Error; err != nil {
			return nil, err
		}
	}
	byID := lo.KeyBy(profiles, func(p models.ProfileModel) uint64 { return p.ID })
	entries := lo.Map(scores, func(sc Score, _ int) TrendingEntry {
		p := byID[sc.ProfileID]
		return TrendingEntry{Score: sc, Name: p.Name, Slug: p.Slug}
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries, s.cacheTTL); err != nil {
			s.logger.Warn("trending cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
