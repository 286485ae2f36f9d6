package repository

import (
	"context"
	"time"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// Messages shared with the service layer.
const (
	MsgRequestNotFound   = "Blood request not found"
	MsgDuplicateActive   = "You already have an active blood request. Please cancel or complete it first."
	MsgDonorNotFound     = "Donor not found"
	MsgRequesterNotFound = "Requester not found"
)

// BloodRequestRepository persists blood requests. The lifecycle transitions
// are conditional updates: they report false when the row was not in the
// expected state, so two concurrent accepts cannot both win.
type BloodRequestRepository interface {
	Create(ctx context.Context, req *models.BloodRequest) error
	GetByID(ctx context.Context, id uint) (*models.BloodRequest, error)
	HasActiveForRequester(ctx context.Context, requesterID uint) (bool, error)
	HasActiveForDonor(ctx context.Context, donorID uint) (bool, error)
	// ListActive returns pending and accepted requests, newest first. A
	// non-nil groups slice restricts the blood groups returned.
	ListActive(ctx context.Context, groups []models.BloodGroup, page Page) ([]models.BloodRequest, int64, error)
	ListByRequester(ctx context.Context, requesterID uint) ([]models.BloodRequest, error)
	ListDonorHistory(ctx context.Context, donorID uint) ([]models.BloodRequest, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	Accept(ctx context.Context, id, donorID uint) (bool, error)
	// Fulfill closes the request and credits the donor in one transaction.
	Fulfill(ctx context.Context, id, donorID uint, at time.Time) (bool, error)
	Cancel(ctx context.Context, id uint) (bool, error)
}

type bloodRequestRepository struct {
	db *gorm.DB
}

// NewBloodRequestRepository returns a gorm-backed BloodRequestRepository.
func NewBloodRequestRepository(db *gorm.DB) BloodRequestRepository {
	return &bloodRequestRepository{db: db}
}

func preloadParties(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Requester", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name", "phone", "email")
		}).
		Preload("Donor", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name", "phone", "blood_group")
		})
}

func (r *bloodRequestRepository) Create(ctx context.Context, req *models.BloodRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewInvariantError(MsgDuplicateActive)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *bloodRequestRepository) GetByID(ctx context.Context, id uint) (*models.BloodRequest, error) {
	var req models.BloodRequest
	if err := preloadParties(r.db.WithContext(ctx)).First(&req, id).Error; err != nil {
		return nil, wrap(err, MsgRequestNotFound)
	}
	return &req, nil
}

func (r *bloodRequestRepository) hasActive(ctx context.Context, column string, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where(column+" = ? AND status IN ?", id, models.ActiveRequestStatuses).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *bloodRequestRepository) HasActiveForRequester(ctx context.Context, requesterID uint) (bool, error) {
	return r.hasActive(ctx, "requester_id", requesterID)
}

func (r *bloodRequestRepository) HasActiveForDonor(ctx context.Context, donorID uint) (bool, error) {
	return r.hasActive(ctx, "donor_id", donorID)
}

func (r *bloodRequestRepository) ListActive(ctx context.Context, groups []models.BloodGroup, page Page) ([]models.BloodRequest, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("status IN ?", models.ActiveRequestStatuses)
	if groups != nil {
		if len(groups) == 0 {
			return []models.BloodRequest{}, 0, nil
		}
		base = base.Where("blood_group IN ?", groups)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var out []models.BloodRequest
	q := page.apply(preloadParties(base.Session(&gorm.Session{})))
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return out, total, nil
}

func (r *bloodRequestRepository) ListByRequester(ctx context.Context, requesterID uint) ([]models.BloodRequest, error) {
	var out []models.BloodRequest
	err := preloadParties(r.db.WithContext(ctx)).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *bloodRequestRepository) ListDonorHistory(ctx context.Context, donorID uint) ([]models.BloodRequest, error) {
	var out []models.BloodRequest
	err := preloadParties(r.db.WithContext(ctx)).
		Where("donor_id = ? AND status = ?", donorID, models.RequestFulfilled).
		Order("updated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *bloodRequestRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	res := r.db.WithContext(ctx).Model(&models.BloodRequest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return models.NewInvariantError(MsgDuplicateActive)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgRequestNotFound)
	}
	return nil
}

func (r *bloodRequestRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.BloodRequest{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgRequestNotFound)
	}
	return nil
}

func (r *bloodRequestRepository) Accept(ctx context.Context, id, donorID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":   models.RequestAccepted,
			"donor_id": donorID,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *bloodRequestRepository) Fulfill(ctx context.Context, id, donorID uint, at time.Time) (bool, error) {
	var fulfilled bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BloodRequest{}).
			Where("id = ? AND status = ? AND donor_id = ?", id, models.RequestAccepted, donorID).
			Update("status", models.RequestFulfilled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		res = tx.Model(&models.Donor{}).Where("id = ?", donorID).Updates(map[string]any{
			"last_donation_date": at,
			"total_donations":    gorm.Expr("total_donations + ?", 1),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError(MsgDonorNotFound)
		}
		fulfilled = true
		return nil
	})
	if err != nil {
		return false, wrap(err, MsgRequestNotFound)
	}
	return fulfilled, nil
}

func (r *bloodRequestRepository) Cancel(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("id = ? AND status IN ?", id, models.ActiveRequestStatuses).
		Update("status", models.RequestCancelled)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
