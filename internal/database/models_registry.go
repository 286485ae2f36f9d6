package database

import "jeevandhara/internal/models"

// PersistentModels returns every GORM model whose table the service owns, in
// dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Requester{},
		&models.Donor{},
		&models.Hospital{},
		&models.BloodBank{},
		&models.BloodRequest{},
		&models.HospitalBloodRequest{},
		&models.BloodStock{},
		&models.Donation{},
		&models.HospitalDonation{},
		&models.Distribution{},
	}
}
