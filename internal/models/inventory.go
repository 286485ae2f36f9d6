package models

import "time"

// StockShelfLife is the default expiry applied to newly stocked units.
const StockShelfLife = 35 * 24 * time.Hour

// BloodStock is the units of one group held by exactly one facility.
// Each (facility, group) pair has at most one row.
type BloodStock struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	HospitalID     *uint      `gorm:"index" json:"hospitalId,omitempty"`
	BloodBankID    *uint      `gorm:"index" json:"bloodBankId,omitempty"`
	BloodGroup     BloodGroup `gorm:"type:varchar(3);not null" json:"bloodGroup"`
	Units          int        `gorm:"not null;default:0;check:units >= 0" json:"units"`
	ExpiryDate     time.Time  `json:"expiryDate"`
	DonorID        string     `gorm:"size:64" json:"donorId,omitempty"`
	CollectionDate *time.Time `json:"collectionDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Donation is an append-only intake record at a blood bank.
type Donation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BloodBankID   uint       `gorm:"not null;index" json:"bloodBankId"`
	DonorID       *uint      `gorm:"index" json:"donorId,omitempty"`
	DonorName     string     `gorm:"size:120" json:"donorName"`
	BloodGroup    BloodGroup `gorm:"type:varchar(3);not null" json:"bloodGroup"`
	Units         int        `gorm:"not null;check:units >= 1" json:"units"`
	DonationDate  time.Time  `gorm:"index" json:"donationDate"`
	ContactNumber string     `gorm:"size:32" json:"contactNumber"`
	Address       string     `gorm:"type:text" json:"address"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HospitalDonationStatus tracks what became of a unit taken in by a hospital.
type HospitalDonationStatus string

const (
	HospitalDonationStocked   HospitalDonationStatus = "stocked"
	HospitalDonationUsed      HospitalDonationStatus = "used"
	HospitalDonationDiscarded HospitalDonationStatus = "discarded"
)

// HospitalDonation is an append-only intake record at a hospital.
type HospitalDonation struct {
	ID            uint                   `gorm:"primaryKey" json:"id"`
	HospitalID    uint                   `gorm:"not null;index" json:"hospitalId"`
	DonorName     string                 `gorm:"size:120;not null" json:"donorName"`
	DonorID       string                 `gorm:"size:64" json:"donorId,omitempty"`
	BloodGroup    BloodGroup             `gorm:"type:varchar(3);not null" json:"bloodGroup"`
	Units         int                    `gorm:"not null;check:units >= 1" json:"units"`
	DonationDate  time.Time              `gorm:"index" json:"donationDate"`
	ExpiryDate    time.Time              `json:"expiryDate"`
	ContactNumber string                 `gorm:"size:32" json:"contactNumber"`
	Address       string                 `gorm:"type:text" json:"address"`
	Status        HospitalDonationStatus `gorm:"type:varchar(20);not null;default:'stocked'" json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// DistributionStatus tracks a dispatch from a bank to a hospital.
type DistributionStatus string

const (
	DistributionDispatched DistributionStatus = "dispatched"
	DistributionDelivered  DistributionStatus = "delivered"
)

// Distribution is an append-only record of units sent by a blood bank.
type Distribution struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	BloodBankID       uint               `gorm:"not null;index" json:"bloodBankId"`
	HospitalID        uint               `gorm:"not null;index" json:"hospitalId"`
	HospitalName      string             `gorm:"size:200" json:"hospitalName"`
	HospitalRequestID *uint              `json:"hospitalRequestId,omitempty"`
	BloodGroup        BloodGroup         `gorm:"type:varchar(3);not null" json:"bloodGroup"`
	Units             int                `gorm:"not null;check:units >= 1" json:"units"`
	DispatchDate      time.Time          `gorm:"index" json:"dispatchDate"`
	CourierName       string             `gorm:"size:120" json:"courierName"`
	VehicleNumber     string             `gorm:"size:40" json:"vehicleNumber"`
	DriverContact     string             `gorm:"size:32" json:"driverContact"`
	Status            DistributionStatus `gorm:"type:varchar(20);not null;default:'dispatched'" json:"status"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}
