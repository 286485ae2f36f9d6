// Package models contains the persistent entities and shared error types of
// the blood-donation backend.
package models

import "strings"

// BloodGroup is an ABO/Rh blood group label such as "A+" or "O-".
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every supported group in display order.
var BloodGroups = []BloodGroup{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative,
}

// Valid reports whether g is one of the eight supported groups.
func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// ParseBloodGroup normalizes s ("ab+" -> "AB+") and validates it.
func ParseBloodGroup(s string) (BloodGroup, error) {
	g := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", NewValidationError("Invalid blood group: " + s)
	}
	return g, nil
}

// UserKind tags which of the four profile tables an account lives in.
type UserKind string

const (
	KindRequester UserKind = "requester"
	KindDonor     UserKind = "donor"
	KindHospital  UserKind = "hospital"
	KindBloodBank UserKind = "blood_bank"
)

// UserKinds is the identity resolution order used when a token is linked
// to a profile.
var UserKinds = []UserKind{KindRequester, KindDonor, KindHospital, KindBloodBank}

func (k UserKind) Valid() bool {
	switch k {
	case KindRequester, KindDonor, KindHospital, KindBloodBank:
		return true
	}
	return false
}

// VerificationStatus is the admin review state of a facility.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}
