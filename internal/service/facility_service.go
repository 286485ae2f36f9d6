package service

import (
	"context"
	"strings"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"
	"jeevandhara/internal/observability"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// Registration messages.
const (
	MsgHospitalExists      = "Hospital already exists with this email or registration ID"
	MsgBloodBankExists     = "Blood bank already exists with this email or registration number"
	MsgHospitalRegistered  = "Hospital registered successfully, verification pending"
	MsgBloodBankRegistered = "Blood bank registered successfully"
)

// HospitalRegistration is the self-service sign-up payload for a hospital.
type HospitalRegistration struct {
	HospitalName           string              `json:"hospitalName" validate:"required,max=200"`
	Email                  string              `json:"email" validate:"required,email"`
	Password               string              `json:"password" validate:"required"`
	PhoneNumber            string              `json:"phoneNumber" validate:"max=32"`
	HospitalRegistrationID string              `json:"hospitalRegistrationId" validate:"required,max=100"`
	Address                string              `json:"address"`
	City                   string              `json:"city" validate:"max=100"`
	District               string              `json:"district" validate:"max=100"`
	ContactPerson          string              `json:"contactPerson" validate:"max=120"`
	BloodBankFacility      bool                `json:"bloodBankFacility"`
	EmergencyService24x7   bool                `json:"emergencyService24x7"`
	HospitalType           models.HospitalType `json:"hospitalType" validate:"omitempty,oneof=government private teaching community"`
	MedicalLicenseNumber   string              `json:"medicalLicenseNumber" validate:"max=100"`
	Latitude               *float64            `json:"latitude" validate:"omitempty,latitude"`
	Longitude              *float64            `json:"longitude" validate:"omitempty,longitude"`
}

// BloodBankRegistration is the self-service sign-up payload for a blood bank.
type BloodBankRegistration struct {
	BloodBankName        string `json:"bloodBankName" validate:"required,max=200"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required"`
	PhoneNumber          string `json:"phoneNumber" validate:"max=32"`
	RegistrationNumber   string `json:"registrationNumber" validate:"required,max=100"`
	FullAddress          string `json:"fullAddress"`
	City                 string `json:"city" validate:"max=100"`
	District             string `json:"district" validate:"max=100"`
	ContactPerson        string `json:"contactPerson" validate:"max=120"`
	Designation          string `json:"designation" validate:"max=120"`
	StorageCapacity      int    `json:"storageCapacity" validate:"gte=0"`
	EmergencyService24x7 bool   `json:"emergencyService24x7"`
	ComponentSeparation  bool   `json:"componentSeparation"`
	ApheresisService     bool   `json:"apheresisService"`
}

// FacilityService registers and lists hospitals and blood banks.
type FacilityService struct {
	hospitals repository.HospitalRepository
	banks     repository.BloodBankRepository
	ledger    repository.LedgerRepository
	requests  repository.HospitalRequestRepository
	cache     *cache.Cache
}

func NewFacilityService(
	hospitals repository.HospitalRepository,
	banks repository.BloodBankRepository,
	ledger repository.LedgerRepository,
	requests repository.HospitalRequestRepository,
	c *cache.Cache,
) *FacilityService {
	return &FacilityService{hospitals: hospitals, banks: banks, ledger: ledger, requests: requests, cache: c}
}

// HashPassword bcrypt-hashes a facility password after checking its length.
func HashPassword(password string) (string, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterHospital creates a hospital awaiting verification.
func (s *FacilityService) RegisterHospital(ctx context.Context, in HospitalRegistration) (h *models.Hospital, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FacilityService", "RegisterHospital")
	defer func() { observability.EndSpan(span, err) }()

	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	email := in.Email
	exists, err := s.hospitals.ExistsByEmailOrRegistration(ctx, email, in.HospitalRegistrationID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError(MsgHospitalExists)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	h = &models.Hospital{
		HospitalName:           strings.TrimSpace(in.HospitalName),
		Email:                  email,
		PhoneNumber:            in.PhoneNumber,
		HospitalRegistrationID: strings.TrimSpace(in.HospitalRegistrationID),
		Address:                in.Address,
		City:                   in.City,
		District:               in.District,
		ContactPerson:          in.ContactPerson,
		BloodBankFacility:      in.BloodBankFacility,
		EmergencyService24x7:   in.EmergencyService24x7,
		HospitalType:           in.HospitalType,
		MedicalLicenseNumber:   in.MedicalLicenseNumber,
		Latitude:               in.Latitude,
		Longitude:              in.Longitude,
		VerificationStatus:     models.VerificationPending,
		Password:               hash,
	}
	if err := s.hospitals.Create(ctx, h); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyHospitals)
	return h, nil
}

// RegisterBloodBank creates a blood bank awaiting verification.
func (s *FacilityService) RegisterBloodBank(ctx context.Context, in BloodBankRegistration) (b *models.BloodBank, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FacilityService", "RegisterBloodBank")
	defer func() { observability.EndSpan(span, err) }()

	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	email := in.Email
	exists, err := s.banks.ExistsByEmailOrRegistration(ctx, email, in.RegistrationNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError(MsgBloodBankExists)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	b = &models.BloodBank{
		BloodBankName:        strings.TrimSpace(in.BloodBankName),
		Email:                email,
		PhoneNumber:          in.PhoneNumber,
		RegistrationNumber:   strings.TrimSpace(in.RegistrationNumber),
		FullAddress:          in.FullAddress,
		City:                 in.City,
		District:             in.District,
		ContactPerson:        in.ContactPerson,
		Designation:          in.Designation,
		StorageCapacity:      in.StorageCapacity,
		EmergencyService24x7: in.EmergencyService24x7,
		ComponentSeparation:  in.ComponentSeparation,
		ApheresisService:     in.ApheresisService,
		VerificationStatus:   models.VerificationPending,
		Password:             hash,
	}
	if err := s.banks.Create(ctx, b); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyBloodBanks)
	return b, nil
}

// Hospitals lists hospitals, optionally filtered by a case-insensitive search
// over name, email and phone. The unfiltered first page is cached.
func (s *FacilityService) Hospitals(ctx context.Context, query string, p PageRequest) (Listing[models.Hospital], error) {
	query = strings.TrimSpace(query)
	fetch := func(ctx context.Context) (Listing[models.Hospital], error) {
		rows, total, err := s.hospitals.Search(ctx, query, p.Bounds())
		if err != nil {
			return Listing[models.Hospital]{}, err
		}
		return newListing(rows, total, p), nil
	}
	if query != "" || !p.first() {
		return fetch(ctx)
	}
	return cache.Aside(ctx, s.cache, cache.KeyHospitals, cache.ListTTL, fetch)
}

// Hospital returns one hospital.
func (s *FacilityService) Hospital(ctx context.Context, id uint) (*models.Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

// BloodBanks lists blood banks with their inventory totals per group.
func (s *FacilityService) BloodBanks(ctx context.Context, query string, p PageRequest) (Listing[models.BloodBankWithInventory], error) {
	query = strings.TrimSpace(query)
	fetch := func(ctx context.Context) (Listing[models.BloodBankWithInventory], error) {
		rows, total, err := s.banks.Search(ctx, query, p.Bounds())
		if err != nil {
			return Listing[models.BloodBankWithInventory]{}, err
		}
		items, err := s.withInventory(ctx, rows)
		if err != nil {
			return Listing[models.BloodBankWithInventory]{}, err
		}
		return newListing(items, total, p), nil
	}
	if query != "" || !p.first() {
		return fetch(ctx)
	}
	return cache.Aside(ctx, s.cache, cache.KeyBloodBanks, cache.ListTTL, fetch)
}

func (s *FacilityService) withInventory(ctx context.Context, banks []models.BloodBank) ([]models.BloodBankWithInventory, error) {
	ids := make([]uint, len(banks))
	for i, b := range banks {
		ids[i] = b.ID
	}
	inventories, err := s.ledger.BankInventories(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.BloodBankWithInventory, len(banks))
	for i, b := range banks {
		out[i] = models.BloodBankWithInventory{BloodBank: b, Inventory: fillGroups(inventories[b.ID])}
	}
	return out, nil
}

// fillGroups reports every blood group, with zero for groups never stocked.
func fillGroups(totals map[models.BloodGroup]int) map[models.BloodGroup]int {
	out := make(map[models.BloodGroup]int, len(models.BloodGroups))
	for _, g := range models.BloodGroups {
		out[g] = totals[g]
	}
	return out
}

// BloodBank returns a bank profile with its inventory.
func (s *FacilityService) BloodBank(ctx context.Context, id uint) (*models.BloodBankWithInventory, error) {
	ctx, span := observability.StartServiceSpan(ctx, "FacilityService", "BloodBank",
		attribute.Int("blood_bank.id", int(id)))
	defer span.End()

	bank, err := s.banks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.ledger.Inventory(ctx, repository.BankOwner(id))
	if err != nil {
		return nil, err
	}
	return &models.BloodBankWithInventory{BloodBank: *bank, Inventory: fillGroups(totals)}, nil
}

// BankRequests lists hospital requests addressed to blood banks, newest first.
func (s *FacilityService) BankRequests(ctx context.Context, bankID uint) ([]models.HospitalBloodRequest, error) {
	if _, err := s.banks.GetByID(ctx, bankID); err != nil {
		return nil, err
	}
	return s.requests.ListBySource(ctx, models.SourceBloodBank)
}
