package models

import "time"

// RequestStatus is the lifecycle state of a BloodRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestCancelled RequestStatus = "cancelled"
)

// ActiveRequestStatuses are the states that count toward a requester's
// single-active-request limit.
var ActiveRequestStatuses = []RequestStatus{RequestPending, RequestAccepted}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestFulfilled, RequestCancelled:
		return true
	}
	return false
}

// Active reports whether the request still blocks a new one.
func (s RequestStatus) Active() bool {
	return s == RequestPending || s == RequestAccepted
}

// BloodRequest is a patient's need for blood, raised by a Requester and
// answered by a Donor.
type BloodRequest struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	RequesterID        uint          `gorm:"not null;index" json:"requesterId"`
	Requester          *Requester    `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	DonorID            *uint         `gorm:"index" json:"donorId"`
	Donor              *Donor        `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	PatientName        string        `gorm:"size:120;not null" json:"patientName"`
	PatientPhone       string        `gorm:"size:32;not null" json:"patientPhone"`
	BloodGroup         BloodGroup    `gorm:"type:varchar(3);not null;index" json:"bloodGroup"`
	HospitalName       string        `gorm:"size:200;not null" json:"hospitalName"`
	Location           string        `gorm:"size:255;not null" json:"location"`
	ContactNumber      string        `gorm:"size:32;not null" json:"contactNumber"`
	AdditionalDetails  string        `gorm:"type:text" json:"additionalDetails"`
	Units              int           `gorm:"not null;default:1" json:"units"`
	NotifyViaEmergency bool          `gorm:"not null;default:false" json:"notifyViaEmergency"`
	Status             RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt          time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Urgency ranks a hospital's request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// RequestSource says who a hospital is asking for blood.
type RequestSource string

const (
	SourceBloodBank RequestSource = "blood_bank"
	SourceDonor     RequestSource = "donor"
)

func (s RequestSource) Valid() bool {
	return s == SourceBloodBank || s == SourceDonor
}

// HospitalRequestStatus is the review state of a HospitalBloodRequest.
type HospitalRequestStatus string

const (
	HospitalRequestPending   HospitalRequestStatus = "pending"
	HospitalRequestApproved  HospitalRequestStatus = "approved"
	HospitalRequestFulfilled HospitalRequestStatus = "fulfilled"
	HospitalRequestCancelled HospitalRequestStatus = "cancelled"
)

func (s HospitalRequestStatus) Valid() bool {
	switch s {
	case HospitalRequestPending, HospitalRequestApproved, HospitalRequestFulfilled, HospitalRequestCancelled:
		return true
	}
	return false
}

// DeliveryStatus tracks transport of units for a hospital request.
type DeliveryStatus string

const (
	DeliveryNotStarted DeliveryStatus = "not_started"
	DeliveryInTransit  DeliveryStatus = "in_transit"
	DeliveryDelivered  DeliveryStatus = "delivered"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryNotStarted, DeliveryInTransit, DeliveryDelivered:
		return true
	}
	return false
}

// HospitalBloodRequest is a hospital's request for units from a blood bank
// or from donors.
type HospitalBloodRequest struct {
	ID                 uint                  `gorm:"primaryKey" json:"id"`
	HospitalID         uint                  `gorm:"not null;index" json:"hospitalId"`
	Hospital           *Hospital             `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	PatientName        string                `gorm:"size:120;not null" json:"patientName"`
	BloodGroup         BloodGroup            `gorm:"type:varchar(3);not null" json:"bloodGroup"`
	UnitsRequired      int                   `gorm:"not null" json:"unitsRequired"`
	Urgency            Urgency               `gorm:"type:varchar(10);not null;default:'medium'" json:"urgency"`
	RequestedFrom      RequestSource         `gorm:"type:varchar(20);not null;index" json:"requestedFrom"`
	Status             HospitalRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	DeliveryStatus     DeliveryStatus        `gorm:"type:varchar(20);not null;default:'not_started'" json:"deliveryStatus"`
	NotifyViaEmergency bool                  `gorm:"not null;default:false" json:"notifyViaEmergency"`
	Notes              string                `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time             `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}
