package seed

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"jeevandhara/internal/database"
	"jeevandhara/internal/models"
	"jeevandhara/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

func newTestSeeder(db *gorm.DB) *Seeder {
	return NewSeeder(db, Options{Source: rand.NewPCG(1, 2), Now: func() time.Time { return fixedNow }})
}

func TestDefaultFacilities_Parse(t *testing.T) {
	t.Parallel()
	f, err := DefaultFacilities()
	require.NoError(t, err)
	require.NotEmpty(t, f.Hospitals)
	require.NotEmpty(t, f.BloodBanks)

	seen := map[string]bool{}
	for _, h := range f.Hospitals {
		assert.NotEmpty(t, h.HospitalRegistrationID)
		assert.True(t, models.HospitalType(h.HospitalType).Valid(), h.HospitalName)
		assert.False(t, seen[h.HospitalRegistrationID], "duplicate %s", h.HospitalRegistrationID)
		seen[h.HospitalRegistrationID] = true
	}
	for _, b := range f.BloodBanks {
		assert.NotEmpty(t, b.RegistrationNumber)
		assert.NotEmpty(t, b.Email)
	}
}

func TestLoadFacilities_Invalid(t *testing.T) {
	t.Parallel()
	_, err := LoadFacilities([]byte("hospitals: [unclosed"))
	require.Error(t, err)
}

func TestSeedFacilities_Idempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	s := newTestSeeder(db)

	f, err := DefaultFacilities()
	require.NoError(t, err)

	first, err := s.Facilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(f.Hospitals), first.HospitalsAdded)
	assert.Equal(t, len(f.BloodBanks), first.BloodBanksAdded)
	assert.Equal(t, len(f.BloodBanks)*len(models.BloodGroups), first.StockRows)

	second, err := s.Facilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{}, *second)

	var hospitals, banks, stock int64
	require.NoError(t, db.Model(&models.Hospital{}).Count(&hospitals).Error)
	require.NoError(t, db.Model(&models.BloodBank{}).Count(&banks).Error)
	require.NoError(t, db.Model(&models.BloodStock{}).Count(&stock).Error)
	assert.Equal(t, int64(len(f.Hospitals)), hospitals)
	assert.Equal(t, int64(len(f.BloodBanks)), banks)
	assert.Equal(t, int64(len(f.BloodBanks)*len(models.BloodGroups)), stock)
}

func TestSeedFacilities_StarterStock(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	s := newTestSeeder(db)

	_, err := s.SeedFacilities(ctx, &FacilityFile{BloodBanks: []BloodBankRecord{
		{BloodBankName: "Test Bank", Email: "bank@seed.test", RegistrationNumber: "REG-1", Verified: true},
	}})
	require.NoError(t, err)

	var bank models.BloodBank
	require.NoError(t, db.Where("registration_number = ?", "REG-1").First(&bank).Error)
	assert.Equal(t, models.VerificationVerified, bank.VerificationStatus)
	assert.True(t, bank.IsVerified)

	var rows []models.BloodStock
	require.NoError(t, db.Where("blood_bank_id = ?", bank.ID).Find(&rows).Error)
	require.Len(t, rows, len(models.BloodGroups))
	groups := map[models.BloodGroup]bool{}
	for _, row := range rows {
		groups[row.BloodGroup] = true
		assert.GreaterOrEqual(t, row.Units, MinStarterUnits)
		assert.Less(t, row.Units, MinStarterUnits+starterSpread)
		assert.WithinDuration(t, fixedNow.Add(models.StockShelfLife), row.ExpiryDate, time.Second)
	}
	assert.Len(t, groups, len(models.BloodGroups))
}

func TestSeedFacilities_KeepsExistingStock(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	s := newTestSeeder(db)
	file := &FacilityFile{
		Hospitals:  []HospitalRecord{{HospitalName: "Ward", Email: "ward@seed.test", HospitalRegistrationID: "H-K", HospitalType: "private"}},
		BloodBanks: []BloodBankRecord{{BloodBankName: "Kept", Email: "kept@seed.test", RegistrationNumber: "REG-K"}},
	}

	_, err := s.SeedFacilities(ctx, file)
	require.NoError(t, err)

	var bank models.BloodBank
	require.NoError(t, db.Where("registration_number = ?", "REG-K").First(&bank).Error)
	var hospital models.Hospital
	require.NoError(t, db.Where("hospital_registration_id = ?", "H-K").First(&hospital).Error)
	ledger := repository.NewLedgerRepository(db)
	_, err = ledger.RecordDistribution(ctx, &models.Distribution{
		BloodBankID: bank.ID, HospitalID: hospital.ID, BloodGroup: models.OPositive, Units: 1,
		Status: models.DistributionDispatched,
	})
	require.NoError(t, err)
	before, err := ledger.Inventory(ctx, repository.BankOwner(bank.ID))
	require.NoError(t, err)

	report, err := s.SeedFacilities(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, Report{}, *report)

	after, err := ledger.Inventory(ctx, repository.BankOwner(bank.ID))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDemo(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	s := newTestSeeder(db)

	report, err := s.Demo(ctx, NewFactory(7, func() time.Time { return fixedNow }), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, report.DonorsAdded)
	assert.Equal(t, 5, report.RequestersAdded)

	again, err := s.Demo(ctx, NewFactory(7, func() time.Time { return fixedNow }), 5)
	require.NoError(t, err)
	assert.Equal(t, 10, again.DuplicateSkipped)

	var donors []models.Donor
	require.NoError(t, db.Find(&donors).Error)
	require.Len(t, donors, 5)
	for _, d := range donors {
		assert.True(t, d.BloodGroup.Valid())
		assert.GreaterOrEqual(t, d.Age, 18)
		if d.LastDonationDate != nil {
			assert.True(t, d.LastDonationDate.Before(fixedNow))
		}
	}
}

func TestFactory_Deterministic(t *testing.T) {
	t.Parallel()
	a := NewFactory(42, nil).Donor(0)
	b := NewFactory(42, nil).Donor(0)
	assert.Equal(t, a.FullName, b.FullName)
	assert.Equal(t, a.Email, b.Email)
	assert.Equal(t, a.BloodGroup, b.BloodGroup)
}
