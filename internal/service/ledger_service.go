package service

import (
	"context"
	"time"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/observability"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultLowStockThreshold is used when no threshold is configured.
const DefaultLowStockThreshold = 5

// BankDonationInput records units collected by a blood bank.
type BankDonationInput struct {
	DonorID       *uint             `json:"donorId"`
	DonorName     string            `json:"donorName" validate:"max=120"`
	BloodGroup    models.BloodGroup `json:"bloodGroup" validate:"required,bloodgroup"`
	Units         int               `json:"units" validate:"required,gte=1"`
	ContactNumber string            `json:"contactNumber" validate:"max=32"`
	Address       string            `json:"address"`
	DonationDate  *time.Time        `json:"donationDate"`
}

// HospitalStockInput adds units to a hospital's own stock.
type HospitalStockInput struct {
	BloodGroup     models.BloodGroup `json:"bloodGroup" validate:"required,bloodgroup"`
	Units          int               `json:"units" validate:"required,gte=1"`
	ExpiryDate     *time.Time        `json:"expiryDate"`
	CollectionDate *time.Time        `json:"collectionDate"`
	DonorID        string            `json:"donorId" validate:"max=64"`
	DonorName      string            `json:"donorName" validate:"max=120"`
	ContactNumber  string            `json:"contactNumber" validate:"max=32"`
	Address        string            `json:"address"`
}

// DistributionInput sends units from a blood bank to a hospital.
type DistributionInput struct {
	RequestID     *uint             `json:"requestId"`
	HospitalID    uint              `json:"hospitalId" validate:"required"`
	HospitalName  string            `json:"hospitalName" validate:"max=200"`
	BloodGroup    models.BloodGroup `json:"bloodGroup" validate:"required,bloodgroup"`
	Units         int               `json:"units" validate:"required,gte=1"`
	DispatchDate  *time.Time        `json:"dispatchDate"`
	CourierName   string            `json:"courierName" validate:"max=120"`
	VehicleNumber string            `json:"vehicleNumber" validate:"max=40"`
	DriverContact string            `json:"driverContact" validate:"max=32"`
}

// StockUpdateInput edits a hospital stock row.
type StockUpdateInput struct {
	Units      *int       `json:"units" validate:"omitempty,gte=0"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// DonationReceipt is the outcome of a bank donation.
type DonationReceipt struct {
	Donation *models.Donation   `json:"donation"`
	Stock    *models.BloodStock `json:"stock"`
}

// DistributionReceipt is the outcome of a distribution.
type DistributionReceipt struct {
	Distribution   *models.Distribution `json:"distribution"`
	RemainingUnits int                  `json:"remainingUnits"`
}

// LedgerService moves blood units in and out of facility stock.
type LedgerService struct {
	ledger     repository.LedgerRepository
	banks      repository.BloodBankRepository
	hospitals  repository.HospitalRepository
	donors     repository.DonorRepository
	recipients Recipients
	notify     Notifier
	cache      *cache.Cache
	lowStock   int
	now        func() time.Time
}

// NewLedgerService wires the ledger. A non-positive lowStock uses the default.
func NewLedgerService(
	ledger repository.LedgerRepository,
	banks repository.BloodBankRepository,
	hospitals repository.HospitalRepository,
	donors repository.DonorRepository,
	recipients Recipients,
	notify Notifier,
	c *cache.Cache,
	lowStock int,
) *LedgerService {
	if lowStock <= 0 {
		lowStock = DefaultLowStockThreshold
	}
	return &LedgerService{
		ledger:     ledger,
		banks:      banks,
		hospitals:  hospitals,
		donors:     donors,
		recipients: recipients,
		notify:     notify,
		cache:      c,
		lowStock:   lowStock,
		now:        time.Now,
	}
}

func ledgerOutcome(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
		if models.HasCode(err, models.CodeInternal) {
			outcome = "error"
		}
	}
	observability.LedgerOperations.WithLabelValues(op, outcome).Inc()
}

// RecordBankDonation appends a donation and adds its units to the bank's
// stock for that group in one transaction.
func (s *LedgerService) RecordBankDonation(ctx context.Context, bankID uint, in BankDonationInput) (receipt *DonationReceipt, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "LedgerService", "RecordBankDonation",
		attribute.Int("blood_bank.id", int(bankID)))
	defer func() {
		ledgerOutcome("bank_donation", err)
		observability.EndSpan(span, err)
	}()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.banks.GetByID(ctx, bankID); err != nil {
		return nil, err
	}

	now := s.now()
	donation := &models.Donation{
		BloodBankID:   bankID,
		DonorID:       in.DonorID,
		DonorName:     in.DonorName,
		BloodGroup:    in.BloodGroup,
		Units:         in.Units,
		DonationDate:  now,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
	}
	if in.DonationDate != nil {
		donation.DonationDate = *in.DonationDate
	}
	if in.DonorID != nil && donation.DonorName == "" {
		donor, err := s.donors.GetByID(ctx, *in.DonorID)
		if err != nil {
			return nil, err
		}
		donation.DonorName = donor.FullName
	}

	stock, err := s.ledger.RecordBankDonation(ctx, donation, now.Add(models.StockShelfLife))
	if err != nil {
		return nil, err
	}
	observability.LedgerUnits.WithLabelValues("in", string(in.BloodGroup)).Add(float64(in.Units))
	s.cache.Invalidate(ctx, cache.KeyBloodBanks)
	return &DonationReceipt{Donation: donation, Stock: stock}, nil
}

// RecordDistribution dispatches units from a bank. It fails without side
// effects when the bank holds fewer units than requested.
func (s *LedgerService) RecordDistribution(ctx context.Context, bankID uint, in DistributionInput) (receipt *DistributionReceipt, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "LedgerService", "RecordDistribution",
		attribute.Int("blood_bank.id", int(bankID)))
	defer func() {
		ledgerOutcome("distribution", err)
		observability.EndSpan(span, err)
	}()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.banks.GetByID(ctx, bankID); err != nil {
		return nil, err
	}
	hospital, err := s.hospitals.GetByID(ctx, in.HospitalID)
	if err != nil {
		return nil, err
	}
	hospitalName := in.HospitalName
	if hospitalName == "" {
		hospitalName = hospital.HospitalName
	}

	dist := &models.Distribution{
		BloodBankID:       bankID,
		HospitalID:        in.HospitalID,
		HospitalName:      hospitalName,
		HospitalRequestID: in.RequestID,
		BloodGroup:        in.BloodGroup,
		Units:             in.Units,
		DispatchDate:      s.now(),
		CourierName:       in.CourierName,
		VehicleNumber:     in.VehicleNumber,
		DriverContact:     in.DriverContact,
		Status:            models.DistributionDispatched,
	}
	if in.DispatchDate != nil {
		dist.DispatchDate = *in.DispatchDate
	}

	remaining, err := s.ledger.RecordDistribution(ctx, dist)
	if err != nil {
		return nil, err
	}
	observability.LedgerUnits.WithLabelValues("out", string(in.BloodGroup)).Add(float64(in.Units))
	s.cache.Invalidate(ctx, cache.KeyBloodBanks)

	if remaining < s.lowStock {
		group := in.BloodGroup
		enqueue(s.notify, notifications.EventLowStock, func(ctx context.Context) error {
			return notifyOne(ctx, s.notify, s.recipients, models.KindBloodBank, bankID,
				notifications.LowStockMessage(group, remaining))
		})
	}
	return &DistributionReceipt{Distribution: dist, RemainingUnits: remaining}, nil
}

// AddHospitalStock records units a hospital took in, plus a donation record
// when donor details are given.
func (s *LedgerService) AddHospitalStock(ctx context.Context, hospitalID uint, in HospitalStockInput) (stock *models.BloodStock, err error) {
	defer func() { ledgerOutcome("hospital_intake", err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.hospitals.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}

	now := s.now()
	expiry := now.Add(models.StockShelfLife)
	if in.ExpiryDate != nil {
		expiry = *in.ExpiryDate
	}
	intake := repository.StockIntake{
		Owner:          repository.HospitalOwner(hospitalID),
		BloodGroup:     in.BloodGroup,
		Units:          in.Units,
		ExpiryDate:     expiry,
		DonorID:        in.DonorID,
		CollectionDate: in.CollectionDate,
	}

	var donation *models.HospitalDonation
	if in.DonorName != "" || in.DonorID != "" {
		donation = &models.HospitalDonation{
			HospitalID:    hospitalID,
			DonorName:     in.DonorName,
			DonorID:       in.DonorID,
			BloodGroup:    in.BloodGroup,
			Units:         in.Units,
			DonationDate:  now,
			ExpiryDate:    expiry,
			ContactNumber: in.ContactNumber,
			Address:       in.Address,
			Status:        models.HospitalDonationStocked,
		}
		if donation.DonorName == "" {
			donation.DonorName = "Unknown"
		}
		if in.CollectionDate != nil {
			donation.DonationDate = *in.CollectionDate
		}
	}

	stock, err = s.ledger.RecordHospitalIntake(ctx, intake, donation)
	if err != nil {
		return nil, err
	}
	observability.LedgerUnits.WithLabelValues("in", string(in.BloodGroup)).Add(float64(in.Units))
	return stock, nil
}

// HospitalStock lists a hospital's stock rows.
func (s *LedgerService) HospitalStock(ctx context.Context, hospitalID uint) ([]models.BloodStock, error) {
	return s.ledger.HospitalStock(ctx, hospitalID)
}

// UpdateStock edits a stock row. Units may not go negative.
func (s *LedgerService) UpdateStock(ctx context.Context, stockID uint, in StockUpdateInput) (*models.BloodStock, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Units != nil {
		fields["units"] = *in.Units
	}
	if in.ExpiryDate != nil {
		fields["expiry_date"] = *in.ExpiryDate
	}
	if err := s.ledger.UpdateStock(ctx, stockID, fields); err != nil {
		return nil, err
	}
	return s.ledger.GetStock(ctx, stockID)
}

// DeleteStock removes a stock row.
func (s *LedgerService) DeleteStock(ctx context.Context, stockID uint) error {
	return s.ledger.DeleteStock(ctx, stockID)
}

// BankDonations lists a bank's donations, newest first.
func (s *LedgerService) BankDonations(ctx context.Context, bankID uint) ([]models.Donation, error) {
	return s.ledger.ListBankDonations(ctx, bankID)
}

// Distributions lists a bank's dispatches, newest first.
func (s *LedgerService) Distributions(ctx context.Context, bankID uint) ([]models.Distribution, error) {
	return s.ledger.ListDistributions(ctx, bankID)
}

// HospitalDonations lists a hospital's intake records, newest first.
func (s *LedgerService) HospitalDonations(ctx context.Context, hospitalID uint) ([]models.HospitalDonation, error) {
	return s.ledger.ListHospitalDonations(ctx, hospitalID)
}

// Inventory sums units per group for a bank.
func (s *LedgerService) Inventory(ctx context.Context, bankID uint) (map[models.BloodGroup]int, error) {
	return s.ledger.Inventory(ctx, repository.BankOwner(bankID))
}
