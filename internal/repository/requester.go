package repository

import (
	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// RequesterRepository persists requesters.
type RequesterRepository interface {
	AccountRepository[models.Requester]
}

// NewRequesterRepository returns a gorm-backed RequesterRepository.
func NewRequesterRepository(db *gorm.DB) RequesterRepository {
	return newAccountRepository[models.Requester](db, "Requester not found", "User already exists")
}
