package repository

import (
	"context"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// FacilityRepository adds registration and verification queries shared by
// hospitals and blood banks.
type FacilityRepository[T any] interface {
	AccountRepository[T]
	ExistsByEmailOrRegistration(ctx context.Context, email, registration string) (bool, error)
	Search(ctx context.Context, query string, page Page) ([]T, int64, error)
	ListByVerification(ctx context.Context, status models.VerificationStatus) ([]T, error)
	// CountByVerification counts facilities in status; an empty status counts all.
	CountByVerification(ctx context.Context, status models.VerificationStatus) (int64, error)
	SetVerification(ctx context.Context, id uint, status models.VerificationStatus, reason string) error
}

// HospitalRepository persists hospitals.
type HospitalRepository interface {
	FacilityRepository[models.Hospital]
}

// BloodBankRepository persists blood banks.
type BloodBankRepository interface {
	FacilityRepository[models.BloodBank]
}

type facilityColumns struct {
	name         string
	phone        string
	registration string
}

type facilityRepository[T any] struct {
	*accountRepository[T]
	cols facilityColumns
}

// NewHospitalRepository returns a gorm-backed HospitalRepository.
func NewHospitalRepository(db *gorm.DB) HospitalRepository {
	return &facilityRepository[models.Hospital]{
		accountRepository: newAccountRepository[models.Hospital](db, "Hospital not found",
			"Hospital already exists with this email or registration ID"),
		cols: facilityColumns{name: "hospital_name", phone: "phone_number", registration: "hospital_registration_id"},
	}
}

// NewBloodBankRepository returns a gorm-backed BloodBankRepository.
func NewBloodBankRepository(db *gorm.DB) BloodBankRepository {
	return &facilityRepository[models.BloodBank]{
		accountRepository: newAccountRepository[models.BloodBank](db, "Blood bank not found",
			"Blood bank already exists with this email or registration number"),
		cols: facilityColumns{name: "blood_bank_name", phone: "phone_number", registration: "registration_number"},
	}
}

func (r *facilityRepository[T]) ExistsByEmailOrRegistration(ctx context.Context, email, registration string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).
		Where("LOWER(email) = LOWER(?) OR "+r.cols.registration+" = ?", email, registration).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *facilityRepository[T]) Search(ctx context.Context, query string, page Page) ([]T, int64, error) {
	if query == "" {
		return r.list(ctx, page, nil)
	}
	q := containsFold(query)
	return r.list(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER("+r.cols.name+") LIKE ? OR LOWER(email) LIKE ? OR LOWER("+r.cols.phone+") LIKE ?", q, q, q)
	})
}

func (r *facilityRepository[T]) ListByVerification(ctx context.Context, status models.VerificationStatus) ([]T, error) {
	var out []T
	if err := r.db.WithContext(ctx).Where("verification_status = ?", status).
		Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *facilityRepository[T]) CountByVerification(ctx context.Context, status models.VerificationStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(new(T))
	if status != "" {
		q = q.Where("verification_status = ?", status)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *facilityRepository[T]) SetVerification(ctx context.Context, id uint, status models.VerificationStatus, reason string) error {
	return r.Update(ctx, id, map[string]any{
		"is_verified":         status == models.VerificationVerified,
		"verification_status": status,
		"rejection_reason":    reason,
	})
}
