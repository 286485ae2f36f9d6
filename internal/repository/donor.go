package repository

import (
	"context"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// DonorFilter narrows a donor search. Empty fields do not filter.
type DonorFilter struct {
	BloodGroup models.BloodGroup
	Location   string
	Query      string
	Available  *bool
}

// DonorRepository persists donors.
type DonorRepository interface {
	AccountRepository[models.Donor]
	Search(ctx context.Context, filter DonorFilter, page Page) ([]models.Donor, int64, error)
	// CompatibleTargets returns available donors of the given groups that
	// have a device token.
	CompatibleTargets(ctx context.Context, groups []models.BloodGroup) ([]Target, error)
}

type donorRepository struct {
	*accountRepository[models.Donor]
}

// NewDonorRepository returns a gorm-backed DonorRepository.
func NewDonorRepository(db *gorm.DB) DonorRepository {
	return &donorRepository{
		accountRepository: newAccountRepository[models.Donor](db, "Donor not found", "User already exists"),
	}
}

func (r *donorRepository) Search(ctx context.Context, filter DonorFilter, page Page) ([]models.Donor, int64, error) {
	return r.list(ctx, page, func(db *gorm.DB) *gorm.DB {
		if filter.BloodGroup != "" {
			db = db.Where("blood_group = ?", filter.BloodGroup)
		}
		if filter.Location != "" {
			db = db.Where("LOWER(location) LIKE ?", containsFold(filter.Location))
		}
		if filter.Query != "" {
			q := containsFold(filter.Query)
			db = db.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?", q, q, q)
		}
		if filter.Available != nil {
			db = db.Where("is_available = ?", *filter.Available)
		}
		return db
	})
}

func (r *donorRepository) CompatibleTargets(ctx context.Context, groups []models.BloodGroup) ([]Target, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	var targets []Target
	err := r.db.WithContext(ctx).Model(&models.Donor{}).
		Select("id", "fcm_token").
		Where("blood_group IN ?", groups).
		Where("is_available = ?", true).
		Where("fcm_token IS NOT NULL AND fcm_token <> ''").
		Scan(&targets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return targets, nil
}
