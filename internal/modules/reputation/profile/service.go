package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/modules/catalog/category"
	"github.com/votehub/core/internal/modules/catalog/pollconfig"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/clock"
	"github.com/votehub/core/internal/pkg/pagination"
	"github.com/votehub/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RivalClaimReason is recorded on pending claims rejected by another approval.
const RivalClaimReason = "Profile already claimed"

type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	logger *zap.Logger
}

// ServiceOption configures a profile Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the profile service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ProfileService")
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

func (s *Service) Create(ctx context.Context, dto *CreateProfileDTO) (*models.ProfileModel, error) {
	if _, err := profileCategory(ctx, s.db, dto.CategoryID); err != nil {
		return nil, err
	}
	slug := pollconfig.Slugify(dto.Slug)
	if strings.TrimSpace(dto.Slug) == "" {
		slug = pollconfig.Slugify(dto.Name)
	}
	p := newProfile(dto.CategoryID, strings.TrimSpace(dto.Name), slug)
	p.Bio = dto.Bio
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Newf(apperr.ProfileAlreadyExists, "profile %q already exists", slug)
		}
		return nil, err
	}
	return p, nil
}

func newProfile(categoryID uint64, name, slug string) *models.ProfileModel {
	return &models.ProfileModel{
		CategoryID:        categoryID,
		Name:              name,
		Slug:              slug,
		Status:            models.ProfileActive,
		PsiIntegrity:      50,
		PsiCompetence:     50,
		PsiResponsiveness: 50,
		PsiTransparency:   50,
	}
}

// profileCategory requires a child category in the PROFILE domain.
func profileCategory(ctx context.Context, db *gorm.DB, id uint64) (*category.Effective, error) {
	cat, eff, err := category.NewResolver(db).Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.Domain != models.DomainProfile {
		return nil, apperr.New(apperr.CategoryNotFound, "category not found")
	}
	if cat.IsParent {
		return nil, apperr.New(apperr.CategoryNotChild, "profiles must belong to a child category")
	}
	return eff, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.ProfileModel, error) {
	var p models.ProfileModel
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ProfileNotFound, "profile not found")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context, q *ListQuery) ([]models.ProfileModel, response.Pagination, error) {
	db := s.db.WithContext(ctx).Model(&models.ProfileModel{})
	if q.CategoryID != 0 {
		db = db.Where("category_id = ?", q.CategoryID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	var profiles []models.ProfileModel
	pag, err := pagination.Paginate(db.Order("psi_score DESC, id ASC"), pagination.Normalize(q.Page, q.Size), &profiles)
	return profiles, pag, err
}

// SubmitClaim files a PENDING ownership claim on an unclaimed profile.
func (s *Service) SubmitClaim(ctx context.Context, userID, profileID uint64, dto *SubmitClaimDTO) (*models.ProfileClaimModel, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProfileActive {
		return nil, apperr.New(apperr.ProfileNotFound, "profile not found")
	}
	if p.ClaimedByUserID != nil {
		return nil, apperr.New(apperr.AlreadyClaimed, "profile is already claimed")
	}
	eff, err := category.NewResolver(s.db).ResolveEffective(ctx, p.CategoryID, models.DomainProfile)
	if err != nil {
		return nil, err
	}
	if eff == nil || eff.Claimable != models.Yes {
		return nil, apperr.New(apperr.CategoryNotAllowed, "profiles in this category cannot be claimed")
	}

	claim := &models.ProfileClaimModel{
		ProfileID:     p.ID,
		UserID:        userID,
		Status:        models.ReviewPending,
		SubmittedData: datatypes.JSONMap(dto.SubmittedData),
		Documents:     documents(dto.Documents),
	}
	if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
		return nil, err
	}
	return claim, nil
}

// ApproveClaim binds the claimant as owner and rejects every rival pending
// claim in the same transaction.
func (s *Service) ApproveClaim(ctx context.Context, adminID, claimID uint64) (*models.ProfileClaimModel, error) {
	var claim models.ProfileClaimModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}

		var p models.ProfileModel
		if err := database.ForUpdate(tx).First(&p, claim.ProfileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ProfileNotFound, "profile not found")
			}
			return err
		}
		if p.ClaimedByUserID != nil {
			return apperr.New(apperr.AlreadyClaimed, "profile is already claimed")
		}

		now := s.clock.Now()
		claim.Status = models.ReviewApproved
		claim.ReviewedBy = &adminID
		claim.ReviewedAt = &now
		if err := tx.Model(&claim).Updates(map[string]interface{}{
			"status":      claim.Status,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&p).Update("claimed_by_user_id", claim.UserID).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProfileClaimModel{}).
			Where("profile_id = ? AND status = ? AND id <> ?", p.ID, models.ReviewPending, claim.ID).
			Updates(map[string]interface{}{
				"status":      models.ReviewRejected,
				"reason":      RivalClaimReason,
				"reviewed_by": adminID,
				"reviewed_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("claim approved", zap.Uint64("claim_id", claim.ID), zap.Uint64("profile_id", claim.ProfileID))
	return &claim, nil
}

func (s *Service) RejectClaim(ctx context.Context, adminID, claimID uint64, reason string) (*models.ProfileClaimModel, error) {
	var claim models.ProfileClaimModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		now := s.clock.Now()
		claim.Status = models.ReviewRejected
		claim.Reason = reason
		claim.ReviewedBy = &adminID
		claim.ReviewedAt = &now
		return tx.Model(&claim).Updates(map[string]interface{}{
			"status":      claim.Status,
			"reason":      reason,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func lockClaim(tx *gorm.DB, id uint64, claim *models.ProfileClaimModel) error {
	if err := database.ForUpdate(tx).First(claim, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ClaimNotFound, "claim not found")
		}
		return err
	}
	if claim.Status != models.ReviewPending {
		return apperr.Newf(apperr.InvalidStatus, "claim is %s", claim.Status)
	}
	return nil
}

func (s *Service) ListClaims(ctx context.Context, q *ListQuery) ([]models.ProfileClaimModel, response.Pagination, error) {
	db := s.db.WithContext(ctx).Model(&models.ProfileClaimModel{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	var claims []models.ProfileClaimModel
	pag, err := pagination.Paginate(db.Order("id ASC"), pagination.Normalize(q.Page, q.Size), &claims)
	return claims, pag, err
}

// SubmitRequest asks for a new profile in a category that allows requests.
func (s *Service) SubmitRequest(ctx context.Context, userID uint64, dto *SubmitRequestDTO) (*models.ProfileRequestModel, error) {
	eff, err := profileCategory(ctx, s.db, dto.CategoryID)
	if err != nil {
		return nil, err
	}
	if eff.Status != models.CategoryActive {
		return nil, apperr.New(apperr.CategoryNotActive, "category is not active")
	}
	if eff.RequestAllowed != models.Yes {
		return nil, apperr.New(apperr.CategoryNotAllowed, "category does not accept profile requests")
	}

	req := &models.ProfileRequestModel{
		CategoryID:    dto.CategoryID,
		UserID:        userID,
		RequestedName: strings.TrimSpace(dto.RequestedName),
		Status:        models.ReviewPending,
		SubmittedData: datatypes.JSONMap(dto.SubmittedData),
		Documents:     documents(dto.Documents),
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveRequest creates the requested profile, claimed by the requester.
func (s *Service) ApproveRequest(ctx context.Context, adminID, requestID uint64) (*models.ProfileRequestModel, *models.ProfileModel, error) {
	var (
		req     models.ProfileRequestModel
		created *models.ProfileModel
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRequest(tx, requestID, &req); err != nil {
			return err
		}

		slug := pollconfig.Slugify(req.RequestedName)
		var exists int64
		if err := tx.Model(&models.ProfileModel{}).
			Where("category_id = ? AND slug = ?", req.CategoryID, slug).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return apperr.Newf(apperr.ProfileAlreadyExists, "profile %q already exists", slug)
		}

		created = newProfile(req.CategoryID, req.RequestedName, slug)
		created.ClaimedByUserID = &req.UserID
		if err := tx.Create(created).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Newf(apperr.ProfileAlreadyExists, "profile %q already exists", slug)
			}
			return err
		}

		now := s.clock.Now()
		req.Status = models.ReviewApproved
		req.ProfileID = &created.ID
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		return tx.Model(&req).Updates(map[string]interface{}{
			"status":      req.Status,
			"profile_id":  created.ID,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &req, created, nil
}

func (s *Service) RejectRequest(ctx context.Context, adminID, requestID uint64, reason string) (*models.ProfileRequestModel, error) {
	var req models.ProfileRequestModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRequest(tx, requestID, &req); err != nil {
			return err
		}
		now := s.clock.Now()
		req.Status = models.ReviewRejected
		req.Reason = reason
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		return tx.Model(&req).Updates(map[string]interface{}{
			"status":      req.Status,
			"reason":      reason,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func lockRequest(tx *gorm.DB, id uint64, req *models.ProfileRequestModel) error {
	if err := database.ForUpdate(tx).First(req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.RequestNotFound, "request not found")
		}
		return err
	}
	if req.Status != models.ReviewPending {
		return apperr.Newf(apperr.InvalidStatus, "request is %s", req.Status)
	}
	return nil
}

func (s *Service) ListRequests(ctx context.Context, q *ListQuery) ([]models.ProfileRequestModel, response.Pagination, error) {
	db := s.db.WithContext(ctx).Model(&models.ProfileRequestModel{})
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.CategoryID != 0 {
		db = db.Where("category_id = ?", q.CategoryID)
	}
	var reqs []models.ProfileRequestModel
	pag, err := pagination.Paginate(db.Order("id ASC"), pagination.Normalize(q.Page, q.Size), &reqs)
	return reqs, pag, err
}

func documents(docs []string) datatypes.JSON {
	if len(docs) == 0 {
		return nil
	}
	raw, _ := json.Marshal(docs)
	return datatypes.JSON(raw)
}
