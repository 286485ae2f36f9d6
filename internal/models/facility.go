package models

import "time"

// HospitalType classifies a hospital's ownership.
type HospitalType string

const (
	HospitalGovernment HospitalType = "government"
	HospitalPrivate    HospitalType = "private"
	HospitalTeaching   HospitalType = "teaching"
	HospitalCommunity  HospitalType = "community"
)

func (t HospitalType) Valid() bool {
	switch t {
	case HospitalGovernment, HospitalPrivate, HospitalTeaching, HospitalCommunity:
		return true
	}
	return false
}

// Hospital is a registered hospital. Hospitals hold their own stock and
// raise HospitalBloodRequests.
type Hospital struct {
	ID                     uint               `gorm:"primaryKey" json:"id"`
	HospitalName           string             `gorm:"size:200;not null" json:"hospitalName"`
	Email                  string             `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PhoneNumber            string             `gorm:"size:32" json:"phoneNumber"`
	HospitalRegistrationID string             `gorm:"column:hospital_registration_id;size:100;uniqueIndex;not null" json:"hospitalRegistrationId"`
	Address                string             `gorm:"type:text" json:"address"`
	City                   string             `gorm:"size:100;index" json:"city"`
	District               string             `gorm:"size:100" json:"district"`
	ContactPerson          string             `gorm:"size:120" json:"contactPerson"`
	BloodBankFacility      bool               `json:"bloodBankFacility"`
	EmergencyService24x7   bool               `gorm:"column:emergency_service_24x7" json:"emergencyService24x7"`
	HospitalType           HospitalType       `gorm:"type:varchar(20)" json:"hospitalType"`
	MedicalLicenseNumber   string             `gorm:"size:100" json:"medicalLicenseNumber"`
	Latitude               *float64           `json:"latitude,omitempty"`
	Longitude              *float64           `json:"longitude,omitempty"`
	IsVerified             bool               `gorm:"not null;default:false" json:"isVerified"`
	VerificationStatus     VerificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"verificationStatus"`
	RejectionReason        string             `gorm:"type:text" json:"rejectionReason,omitempty"`
	FCMToken               string             `gorm:"column:fcm_token;size:512" json:"fcmToken,omitempty"`
	ExternalUID            *string            `gorm:"column:external_uid;size:128;uniqueIndex" json:"externalUid,omitempty"`
	Password               string             `gorm:"size:255" json:"-"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// BloodBank is a registered blood bank. Blood banks record donations and
// distribute units to hospitals.
type BloodBank struct {
	ID                   uint               `gorm:"primaryKey" json:"id"`
	BloodBankName        string             `gorm:"size:200;not null" json:"bloodBankName"`
	Email                string             `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PhoneNumber          string             `gorm:"size:32" json:"phoneNumber"`
	RegistrationNumber   string             `gorm:"size:100;uniqueIndex;not null" json:"registrationNumber"`
	FullAddress          string             `gorm:"type:text" json:"fullAddress"`
	City                 string             `gorm:"size:100;index" json:"city"`
	District             string             `gorm:"size:100" json:"district"`
	ContactPerson        string             `gorm:"size:120" json:"contactPerson"`
	Designation          string             `gorm:"size:120" json:"designation"`
	StorageCapacity      int                `json:"storageCapacity"`
	EmergencyService24x7 bool               `gorm:"column:emergency_service_24x7" json:"emergencyService24x7"`
	ComponentSeparation  bool               `json:"componentSeparation"`
	ApheresisService     bool               `json:"apheresisService"`
	IsVerified           bool               `gorm:"not null;default:false" json:"isVerified"`
	VerificationStatus   VerificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"verificationStatus"`
	RejectionReason      string             `gorm:"type:text" json:"rejectionReason,omitempty"`
	FCMToken             string             `gorm:"column:fcm_token;size:512" json:"fcmToken,omitempty"`
	ExternalUID          *string            `gorm:"column:external_uid;size:128;uniqueIndex" json:"externalUid,omitempty"`
	Password             string             `gorm:"size:255" json:"-"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// BloodBankWithInventory is a bank plus its units on hand per group.
type BloodBankWithInventory struct {
	BloodBank
	Inventory map[BloodGroup]int `json:"inventory"`
}
