package repository

import (
	"context"
	"fmt"
	"time"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger messages.
const (
	MsgStockNotFound     = "Blood stock not found"
	MsgBloodBankNotFound = "Blood bank not found"
	MsgHospitalNotFound  = "Hospital not found"

	MsgHospitalRequestClosed = "Hospital blood request is not open for this hospital"
)

// openHospitalRequest lists the states a distribution may fulfill.
var openHospitalRequest = []models.HospitalRequestStatus{
	models.HospitalRequestPending,
	models.HospitalRequestApproved,
}

// Owner identifies the facility a stock row belongs to.
type Owner struct {
	column string
	ID     uint
}

// BankOwner is the stock owner for a blood bank.
func BankOwner(id uint) Owner { return Owner{column: "blood_bank_id", ID: id} }

// HospitalOwner is the stock owner for a hospital.
func HospitalOwner(id uint) Owner { return Owner{column: "hospital_id", ID: id} }

func (o Owner) assign(s *models.BloodStock) {
	id := o.ID
	if o.column == "blood_bank_id" {
		s.BloodBankID = &id
	} else {
		s.HospitalID = &id
	}
}

// StockIntake describes units entering a facility's stock.
type StockIntake struct {
	Owner          Owner
	BloodGroup     models.BloodGroup
	Units          int
	ExpiryDate     time.Time
	DonorID        string
	CollectionDate *time.Time
}

// InsufficientStockError reports a distribution larger than the bank holds.
func InsufficientStockError(group models.BloodGroup) error {
	return models.NewInvariantError(fmt.Sprintf("Insufficient stock for %s", group))
}

// LedgerRepository owns every write that moves blood units. Each Record*
// method is one transaction: either every row lands or none do.
type LedgerRepository interface {
	RecordBankDonation(ctx context.Context, donation *models.Donation, expiry time.Time) (*models.BloodStock, error)
	RecordHospitalIntake(ctx context.Context, intake StockIntake, donation *models.HospitalDonation) (*models.BloodStock, error)
	// RecordDistribution decrements the bank's stock only if enough units
	// remain, then appends the distribution and optionally fulfills the
	// hospital request. It returns the units left for that group.
	RecordDistribution(ctx context.Context, dist *models.Distribution) (int, error)

	Inventory(ctx context.Context, owner Owner) (map[models.BloodGroup]int, error)
	BankInventories(ctx context.Context, bankIDs []uint) (map[uint]map[models.BloodGroup]int, error)
	HospitalStock(ctx context.Context, hospitalID uint) ([]models.BloodStock, error)
	GetStock(ctx context.Context, id uint) (*models.BloodStock, error)
	UpdateStock(ctx context.Context, id uint, fields map[string]any) error
	DeleteStock(ctx context.Context, id uint) error
	// SeedStock inserts starter rows, skipping (owner, group) pairs that exist.
	SeedStock(ctx context.Context, rows []models.BloodStock) error

	ListBankDonations(ctx context.Context, bankID uint) ([]models.Donation, error)
	ListDistributions(ctx context.Context, bankID uint) ([]models.Distribution, error)
	ListHospitalDonations(ctx context.Context, hospitalID uint) ([]models.HospitalDonation, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a gorm-backed LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func ownerConflict(owner Owner) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: owner.column}, {Name: "blood_group"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: owner.column + " IS NOT NULL"},
		}},
	}
}

// addUnits increments the (owner, group) row, creating it when absent. The
// insert carries ON CONFLICT so a concurrent first intake folds into the
// row the other transaction created.
func addUnits(tx *gorm.DB, in StockIntake) (*models.BloodStock, error) {
	res := tx.Model(&models.BloodStock{}).
		Where(in.Owner.column+" = ? AND blood_group = ?", in.Owner.ID, in.BloodGroup).
		Updates(map[string]any{"units": gorm.Expr("units + ?", in.Units)})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		row := models.BloodStock{
			BloodGroup:     in.BloodGroup,
			Units:          in.Units,
			ExpiryDate:     in.ExpiryDate,
			DonorID:        in.DonorID,
			CollectionDate: in.CollectionDate,
		}
		in.Owner.assign(&row)

		conflict := ownerConflict(in.Owner)
		conflict.DoUpdates = clause.Assignments(map[string]any{
			"units":      gorm.Expr("blood_stocks.units + excluded.units"),
			"updated_at": time.Now(),
		})
		if err := tx.Clauses(conflict).Create(&row).Error; err != nil {
			return nil, err
		}
	}

	var stock models.BloodStock
	if err := tx.Where(in.Owner.column+" = ? AND blood_group = ?", in.Owner.ID, in.BloodGroup).
		First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *ledgerRepository) RecordBankDonation(ctx context.Context, donation *models.Donation, expiry time.Time) (*models.BloodStock, error) {
	var stock *models.BloodStock
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(donation).Error; err != nil {
			return err
		}
		var err error
		stock, err = addUnits(tx, StockIntake{
			Owner:      BankOwner(donation.BloodBankID),
			BloodGroup: donation.BloodGroup,
			Units:      donation.Units,
			ExpiryDate: expiry,
		})
		return err
	})
	if err != nil {
		return nil, wrap(err, MsgBloodBankNotFound)
	}
	return stock, nil
}

func (r *ledgerRepository) RecordHospitalIntake(ctx context.Context, intake StockIntake, donation *models.HospitalDonation) (*models.BloodStock, error) {
	var stock *models.BloodStock
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if stock, err = addUnits(tx, intake); err != nil {
			return err
		}
		if donation != nil {
			return tx.Create(donation).Error
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, MsgHospitalNotFound)
	}
	return stock, nil
}

func (r *ledgerRepository) RecordDistribution(ctx context.Context, dist *models.Distribution) (int, error) {
	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BloodStock{}).
			Where("blood_bank_id = ? AND blood_group = ? AND units >= ?", dist.BloodBankID, dist.BloodGroup, dist.Units).
			Updates(map[string]any{"units": gorm.Expr("units - ?", dist.Units)})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InsufficientStockError(dist.BloodGroup)
		}

		if err := tx.Create(dist).Error; err != nil {
			return err
		}

		if dist.HospitalRequestID != nil {
			res := tx.Model(&models.HospitalBloodRequest{}).
				Where("id = ? AND hospital_id = ? AND status IN ?", *dist.HospitalRequestID, dist.HospitalID, openHospitalRequest).
				Update("status", models.HospitalRequestFulfilled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var n int64
				if err := tx.Model(&models.HospitalBloodRequest{}).Where("id = ?", *dist.HospitalRequestID).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return models.NewNotFoundError(MsgHospitalRequestNotFound)
				}
				return models.NewInvariantError(MsgHospitalRequestClosed)
			}
		}

		return tx.Model(&models.BloodStock{}).
			Where("blood_bank_id = ? AND blood_group = ?", dist.BloodBankID, dist.BloodGroup).
			Pluck("units", &remaining).Error
	})
	if err != nil {
		return 0, wrap(err, MsgStockNotFound)
	}
	return remaining, nil
}

type groupTotal struct {
	OwnerID    uint
	BloodGroup models.BloodGroup
	Units      int
}

func (r *ledgerRepository) totals(ctx context.Context, column string, ids []uint) ([]groupTotal, error) {
	var rows []groupTotal
	err := r.db.WithContext(ctx).Model(&models.BloodStock{}).
		Select(column+" AS owner_id, blood_group, CAST(SUM(units) AS BIGINT) AS units").
		Where(column+" IN ?", ids).
		Group(column + ", blood_group").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepository) Inventory(ctx context.Context, owner Owner) (map[models.BloodGroup]int, error) {
	rows, err := r.totals(ctx, owner.column, []uint{owner.ID})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	inv := make(map[models.BloodGroup]int, len(rows))
	for _, row := range rows {
		inv[row.BloodGroup] += row.Units
	}
	return inv, nil
}

func (r *ledgerRepository) BankInventories(ctx context.Context, bankIDs []uint) (map[uint]map[models.BloodGroup]int, error) {
	out := make(map[uint]map[models.BloodGroup]int, len(bankIDs))
	if len(bankIDs) == 0 {
		return out, nil
	}
	rows, err := r.totals(ctx, "blood_bank_id", bankIDs)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range bankIDs {
		out[id] = map[models.BloodGroup]int{}
	}
	for _, row := range rows {
		out[row.OwnerID][row.BloodGroup] += row.Units
	}
	return out, nil
}

func (r *ledgerRepository) HospitalStock(ctx context.Context, hospitalID uint) ([]models.BloodStock, error) {
	var out []models.BloodStock
	if err := r.db.WithContext(ctx).Where("hospital_id = ?", hospitalID).
		Order("blood_group ASC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *ledgerRepository) GetStock(ctx context.Context, id uint) (*models.BloodStock, error) {
	var stock models.BloodStock
	if err := r.db.WithContext(ctx).First(&stock, id).Error; err != nil {
		return nil, wrap(err, MsgStockNotFound)
	}
	return &stock, nil
}

func (r *ledgerRepository) UpdateStock(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := r.GetStock(ctx, id)
		return err
	}
	res := r.db.WithContext(ctx).Model(&models.BloodStock{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgStockNotFound)
	}
	return nil
}

func (r *ledgerRepository) DeleteStock(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.BloodStock{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgStockNotFound)
	}
	return nil
}

func (r *ledgerRepository) SeedStock(ctx context.Context, rows []models.BloodStock) error {
	for i := range rows {
		var owner Owner
		switch {
		case rows[i].BloodBankID != nil:
			owner = BankOwner(*rows[i].BloodBankID)
		case rows[i].HospitalID != nil:
			owner = HospitalOwner(*rows[i].HospitalID)
		default:
			return models.NewValidationError("stock row has no owner")
		}
		conflict := ownerConflict(owner)
		conflict.DoNothing = true
		if err := r.db.WithContext(ctx).Clauses(conflict).Create(&rows[i]).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	return nil
}

func (r *ledgerRepository) ListBankDonations(ctx context.Context, bankID uint) ([]models.Donation, error) {
	var out []models.Donation
	if err := r.db.WithContext(ctx).Where("blood_bank_id = ?", bankID).
		Order("donation_date DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *ledgerRepository) ListDistributions(ctx context.Context, bankID uint) ([]models.Distribution, error) {
	var out []models.Distribution
	if err := r.db.WithContext(ctx).Where("blood_bank_id = ?", bankID).
		Order("dispatch_date DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *ledgerRepository) ListHospitalDonations(ctx context.Context, hospitalID uint) ([]models.HospitalDonation, error) {
	var out []models.HospitalDonation
	if err := r.db.WithContext(ctx).Where("hospital_id = ?", hospitalID).
		Order("donation_date DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
