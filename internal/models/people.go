package models

import "time"

// Donation capability values reported by donors.
const (
	CapabilityYes = "Yes"
	CapabilityNo  = "No"
)

// Donor is a person who may accept blood requests.
type Donor struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	FullName           string     `gorm:"size:120;not null" json:"fullName"`
	Email              string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone              string     `gorm:"size:32" json:"phone"`
	Location           string     `gorm:"size:255;index" json:"location"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	Age                int        `json:"age"`
	BloodGroup         BloodGroup `gorm:"type:varchar(3);not null;index" json:"bloodGroup"`
	HealthProblems     string     `gorm:"type:text" json:"healthProblems"`
	LastDonationDate   *time.Time `json:"lastDonationDate"`
	IsAvailable        bool       `gorm:"not null;default:false;index" json:"isAvailable"`
	DonationCapability string     `gorm:"type:varchar(3)" json:"donationCapability"`
	TotalDonations     int        `gorm:"not null;default:0" json:"totalDonations"`
	FCMToken           string     `gorm:"column:fcm_token;size:512" json:"fcmToken,omitempty"`
	ExternalUID        *string    `gorm:"column:external_uid;size:128;uniqueIndex" json:"externalUid,omitempty"`
	Password           string     `gorm:"size:255" json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Requester is a person who raises blood requests on behalf of a patient.
type Requester struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	FullName         string     `gorm:"size:120;not null" json:"fullName"`
	Email            string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone            string     `gorm:"size:32" json:"phone"`
	HospitalName     string     `gorm:"size:200" json:"hospitalName"`
	HospitalLocation string     `gorm:"size:255" json:"hospitalLocation"`
	HospitalPhone    string     `gorm:"size:32" json:"hospitalPhone"`
	Location         string     `gorm:"size:255" json:"location"`
	FullAddress      string     `gorm:"type:text" json:"fullAddress"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	Age              int        `json:"age"`
	Gender           string     `gorm:"size:20" json:"gender"`
	BloodGroup       BloodGroup `gorm:"type:varchar(3)" json:"bloodGroup,omitempty"`
	FCMToken         string     `gorm:"column:fcm_token;size:512" json:"fcmToken,omitempty"`
	ExternalUID      *string    `gorm:"column:external_uid;size:128;uniqueIndex" json:"externalUid,omitempty"`
	Password         string     `gorm:"size:255" json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// EligibilityWindowMonths is how long a donor must wait between donations.
const EligibilityWindowMonths = 3

// NextEligibleDate returns the first day the donor may donate again.
// The zero time means the donor has never donated.
func (d *Donor) NextEligibleDate() time.Time {
	if d.LastDonationDate == nil {
		return time.Time{}
	}
	return d.LastDonationDate.AddDate(0, EligibilityWindowMonths, 0)
}

// EligibleAt reports whether the donor may donate at now. A donation
// strictly after now-3 months blocks eligibility.
func (d *Donor) EligibleAt(now time.Time) bool {
	if d.LastDonationDate == nil {
		return true
	}
	return !d.LastDonationDate.After(now.AddDate(0, -EligibilityWindowMonths, 0))
}
