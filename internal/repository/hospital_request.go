package repository

import (
	"context"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// MsgHospitalRequestNotFound is returned for a missing hospital blood request.
const MsgHospitalRequestNotFound = "Hospital blood request not found"

// HospitalRequestRepository persists hospital blood requests.
type HospitalRequestRepository interface {
	Create(ctx context.Context, req *models.HospitalBloodRequest) error
	GetByID(ctx context.Context, id uint) (*models.HospitalBloodRequest, error)
	ListByHospital(ctx context.Context, hospitalID uint) ([]models.HospitalBloodRequest, error)
	// ListBySource returns requests addressed to source with the hospital preloaded.
	ListBySource(ctx context.Context, source models.RequestSource) ([]models.HospitalBloodRequest, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
}

type hospitalRequestRepository struct {
	db *gorm.DB
}

// NewHospitalRequestRepository returns a gorm-backed HospitalRequestRepository.
func NewHospitalRequestRepository(db *gorm.DB) HospitalRequestRepository {
	return &hospitalRequestRepository{db: db}
}

func (r *hospitalRequestRepository) Create(ctx context.Context, req *models.HospitalBloodRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *hospitalRequestRepository) GetByID(ctx context.Context, id uint) (*models.HospitalBloodRequest, error) {
	var req models.HospitalBloodRequest
	if err := r.db.WithContext(ctx).Preload("Hospital").First(&req, id).Error; err != nil {
		return nil, wrap(err, MsgHospitalRequestNotFound)
	}
	return &req, nil
}

func (r *hospitalRequestRepository) ListByHospital(ctx context.Context, hospitalID uint) ([]models.HospitalBloodRequest, error) {
	var out []models.HospitalBloodRequest
	if err := r.db.WithContext(ctx).Where("hospital_id = ?", hospitalID).
		Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *hospitalRequestRepository) ListBySource(ctx context.Context, source models.RequestSource) ([]models.HospitalBloodRequest, error) {
	var out []models.HospitalBloodRequest
	err := r.db.WithContext(ctx).
		Preload("Hospital", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "hospital_name", "phone_number", "address", "city", "email")
		}).
		Where("requested_from = ?", source).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *hospitalRequestRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	res := r.db.WithContext(ctx).Model(&models.HospitalBloodRequest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgHospitalRequestNotFound)
	}
	return nil
}
