package repository

import (
	"context"
	"testing"
	"time"

	"jeevandhara/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBank(t *testing.T, db *gorm.DB, reg string) *models.BloodBank {
	t.Helper()
	b := &models.BloodBank{BloodBankName: "Bank " + reg, Email: reg + "@bank.example", RegistrationNumber: reg}
	require.NoError(t, db.Create(b).Error)
	return b
}

func seedHospital(t *testing.T, db *gorm.DB, reg string) *models.Hospital {
	t.Helper()
	h := &models.Hospital{HospitalName: "Hospital " + reg, Email: reg + "@hospital.example", HospitalRegistrationID: reg}
	require.NoError(t, db.Create(h).Error)
	return h
}

func TestLedger_BankDonationsAccumulate(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	bank := seedBank(t, db, "BB-1")
	expiry := time.Now().Add(models.StockShelfLife)

	for _, units := range []int{2, 3} {
		stock, err := ledger.RecordBankDonation(ctx, &models.Donation{
			BloodBankID:  bank.ID,
			DonorName:    "Walk-in",
			BloodGroup:   models.BPositive,
			Units:        units,
			DonationDate: time.Now(),
		}, expiry)
		require.NoError(t, err)
		require.NotNil(t, stock)
	}

	var rows []models.BloodStock
	require.NoError(t, db.Where("blood_bank_id = ?", bank.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "one row per (bank, group)")
	assert.Equal(t, 5, rows[0].Units)

	donations, err := ledger.ListBankDonations(ctx, bank.ID)
	require.NoError(t, err)
	assert.Len(t, donations, 2)

	inv, err := ledger.Inventory(ctx, BankOwner(bank.ID))
	require.NoError(t, err)
	assert.Equal(t, map[models.BloodGroup]int{models.BPositive: 5}, inv)
}

func TestLedger_DistributionDecrements(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	bank := seedBank(t, db, "BB-2")
	hospital := seedHospital(t, db, "H-2")

	_, err := ledger.RecordBankDonation(ctx, &models.Donation{
		BloodBankID: bank.ID, BloodGroup: models.OPositive, Units: 10, DonationDate: time.Now(),
	}, time.Now().Add(models.StockShelfLife))
	require.NoError(t, err)

	hreq := &models.HospitalBloodRequest{
		HospitalID: hospital.ID, PatientName: "P", BloodGroup: models.OPositive,
		UnitsRequired: 4, Urgency: models.UrgencyHigh, RequestedFrom: models.SourceBloodBank,
		Status: models.HospitalRequestPending, DeliveryStatus: models.DeliveryNotStarted,
	}
	require.NoError(t, db.Create(hreq).Error)

	remaining, err := ledger.RecordDistribution(ctx, &models.Distribution{
		BloodBankID: bank.ID, HospitalID: hospital.ID, HospitalName: hospital.HospitalName,
		HospitalRequestID: &hreq.ID, BloodGroup: models.OPositive, Units: 4,
		DispatchDate: time.Now(), Status: models.DistributionDispatched,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)

	var updated models.HospitalBloodRequest
	require.NoError(t, db.First(&updated, hreq.ID).Error)
	assert.Equal(t, models.HospitalRequestFulfilled, updated.Status)

	_, err = ledger.RecordDistribution(ctx, &models.Distribution{
		BloodBankID: bank.ID, HospitalID: hospital.ID, BloodGroup: models.OPositive, Units: 7,
		DispatchDate: time.Now(), Status: models.DistributionDispatched,
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeInvariant))
	assert.Equal(t, "Insufficient stock for O+", err.Error())

	inv, err := ledger.Inventory(ctx, BankOwner(bank.ID))
	require.NoError(t, err)
	assert.Equal(t, 6, inv[models.OPositive], "failed distribution leaves stock untouched")

	dists, err := ledger.ListDistributions(ctx, bank.ID)
	require.NoError(t, err)
	assert.Len(t, dists, 1)
}

func TestLedger_DistributionMissingHospitalRequestRollsBack(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	bank := seedBank(t, db, "BB-3")
	hospital := seedHospital(t, db, "H-3")

	_, err := ledger.RecordBankDonation(ctx, &models.Donation{
		BloodBankID: bank.ID, BloodGroup: models.ANegative, Units: 3, DonationDate: time.Now(),
	}, time.Now().Add(models.StockShelfLife))
	require.NoError(t, err)

	missing := uint(999)
	_, err = ledger.RecordDistribution(ctx, &models.Distribution{
		BloodBankID: bank.ID, HospitalID: hospital.ID, HospitalRequestID: &missing,
		BloodGroup: models.ANegative, Units: 2, DispatchDate: time.Now(), Status: models.DistributionDispatched,
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	inv, err := ledger.Inventory(ctx, BankOwner(bank.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, inv[models.ANegative])

	dists, err := ledger.ListDistributions(ctx, bank.ID)
	require.NoError(t, err)
	assert.Empty(t, dists)
}

func TestLedger_DistributionOnlyFulfillsOpenRequestOfSameHospital(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	bank := seedBank(t, db, "BB-5")
	city := seedHospital(t, db, "H-5")
	other := seedHospital(t, db, "H-6")

	_, err := ledger.RecordBankDonation(ctx, &models.Donation{
		BloodBankID: bank.ID, BloodGroup: models.OPositive, Units: 10, DonationDate: time.Now(),
	}, time.Now().Add(models.StockShelfLife))
	require.NoError(t, err)

	newRequest := func(hospitalID uint, status models.HospitalRequestStatus) *models.HospitalBloodRequest {
		r := &models.HospitalBloodRequest{
			HospitalID: hospitalID, PatientName: "P", BloodGroup: models.OPositive,
			UnitsRequired: 2, Urgency: models.UrgencyMedium, RequestedFrom: models.SourceBloodBank,
			Status: status, DeliveryStatus: models.DeliveryNotStarted,
		}
		require.NoError(t, db.Create(r).Error)
		return r
	}
	cancelled := newRequest(city.ID, models.HospitalRequestCancelled)
	foreign := newRequest(other.ID, models.HospitalRequestPending)
	approved := newRequest(city.ID, models.HospitalRequestApproved)

	dispatch := func(requestID uint) error {
		_, err := ledger.RecordDistribution(ctx, &models.Distribution{
			BloodBankID: bank.ID, HospitalID: city.ID, HospitalName: city.HospitalName,
			HospitalRequestID: &requestID, BloodGroup: models.OPositive, Units: 2,
			DispatchDate: time.Now(), Status: models.DistributionDispatched,
		})
		return err
	}

	for _, r := range []*models.HospitalBloodRequest{cancelled, foreign} {
		err := dispatch(r.ID)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvariant))
		assert.Equal(t, MsgHospitalRequestClosed, err.Error())

		var got models.HospitalBloodRequest
		require.NoError(t, db.First(&got, r.ID).Error)
		assert.Equal(t, r.Status, got.Status, "request %d keeps its state", r.ID)
	}

	inv, err := ledger.Inventory(ctx, BankOwner(bank.ID))
	require.NoError(t, err)
	assert.Equal(t, 10, inv[models.OPositive], "rejected dispatches roll back")

	require.NoError(t, dispatch(approved.ID))
	var got models.HospitalBloodRequest
	require.NoError(t, db.First(&got, approved.ID).Error)
	assert.Equal(t, models.HospitalRequestFulfilled, got.Status)
}

func TestLedger_DistributionInsufficientSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	ledger := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "blood_stocks" SET "units"=units - \$1.* WHERE blood_bank_id = \$\d+ AND blood_group = \$\d+ AND units >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ledger.RecordDistribution(context.Background(), &models.Distribution{
		BloodBankID: 1, HospitalID: 2, BloodGroup: models.ABNegative, Units: 5,
	})
	require.Error(t, err)
	assert.Equal(t, "Insufficient stock for AB-", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_HospitalIntake(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	hospital := seedHospital(t, db, "H-4")
	expiry := time.Now().Add(10 * 24 * time.Hour)

	stock, err := ledger.RecordHospitalIntake(ctx, StockIntake{
		Owner: HospitalOwner(hospital.ID), BloodGroup: models.APositive, Units: 2, ExpiryDate: expiry,
	}, &models.HospitalDonation{
		HospitalID: hospital.ID, DonorName: "Ram", BloodGroup: models.APositive, Units: 2,
		DonationDate: time.Now(), ExpiryDate: expiry, Status: models.HospitalDonationStocked,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Units)

	stock, err = ledger.RecordHospitalIntake(ctx, StockIntake{
		Owner: HospitalOwner(hospital.ID), BloodGroup: models.APositive, Units: 1, ExpiryDate: expiry,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Units)

	rows, err := ledger.HospitalStock(ctx, hospital.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	donations, err := ledger.ListHospitalDonations(ctx, hospital.ID)
	require.NoError(t, err)
	assert.Len(t, donations, 1)

	require.NoError(t, ledger.UpdateStock(ctx, rows[0].ID, map[string]any{"units": 0}))
	got, err := ledger.GetStock(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Zero(t, got.Units)

	require.NoError(t, ledger.DeleteStock(ctx, rows[0].ID))
	assert.True(t, models.HasCode(ledger.DeleteStock(ctx, rows[0].ID), models.CodeNotFound))
}

func TestLedger_SeedStockIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	bank := seedBank(t, db, "BB-5")
	other := seedBank(t, db, "BB-6")

	rows := func(units int) []models.BloodStock {
		out := make([]models.BloodStock, 0, len(models.BloodGroups))
		for _, g := range models.BloodGroups {
			id := bank.ID
			out = append(out, models.BloodStock{BloodBankID: &id, BloodGroup: g, Units: units, ExpiryDate: time.Now().Add(models.StockShelfLife)})
		}
		return out
	}
	require.NoError(t, ledger.SeedStock(ctx, rows(10)))
	require.NoError(t, ledger.SeedStock(ctx, rows(40)))

	inv, err := ledger.BankInventories(ctx, []uint{bank.ID, other.ID})
	require.NoError(t, err)
	assert.Len(t, inv[bank.ID], 8)
	assert.Equal(t, 10, inv[bank.ID][models.ONegative], "second seed does not overwrite")
	assert.Empty(t, inv[other.ID])

	assert.Error(t, ledger.SeedStock(ctx, []models.BloodStock{{BloodGroup: models.APositive}}))
}
