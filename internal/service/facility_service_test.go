package service

import (
	"context"
	"testing"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hospitalSignup(email, reg string) HospitalRegistration {
	return HospitalRegistration{
		HospitalName:           "City Hospital",
		Email:                  email,
		Password:               "hospital-pass",
		HospitalRegistrationID: reg,
		City:                   "Pune",
		HospitalType:           models.HospitalPrivate,
	}
}

func TestFacilityService_RegisterHospital(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.facilities.RegisterHospital(ctx, hospitalSignup(" Admin@City.test ", "H-1"))
	require.NoError(t, err)
	assert.Equal(t, "admin@city.test", h.Email)
	assert.Equal(t, models.VerificationPending, h.VerificationStatus)
	assert.False(t, h.IsVerified)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(h.Password), []byte("hospital-pass")))

	_, err = f.facilities.RegisterHospital(ctx, hospitalSignup("admin@city.test", "H-2"))
	assertAppError(t, err, models.CodeValidation, MsgHospitalExists)

	_, err = f.facilities.RegisterHospital(ctx, hospitalSignup("other@city.test", "H-1"))
	assertAppError(t, err, models.CodeValidation, MsgHospitalExists)

	weak := hospitalSignup("weak@city.test", "H-3")
	weak.Password = "short"
	_, err = f.facilities.RegisterHospital(ctx, weak)
	assertAppError(t, err, models.CodeValidation, "password must be at least 8 characters")

	bad := hospitalSignup("bad@city.test", "H-4")
	bad.HospitalType = "spaceport"
	_, err = f.facilities.RegisterHospital(ctx, bad)
	assertAppError(t, err, models.CodeValidation, "hospitalType must be one of")
}

func TestFacilityService_RegisterBloodBank(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := BloodBankRegistration{BloodBankName: "Central", Email: "central@banks.test", Password: "bank-password", RegistrationNumber: "BB-1"}
	b, err := f.facilities.RegisterBloodBank(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, b.VerificationStatus)

	_, err = f.facilities.RegisterBloodBank(ctx, in)
	assertAppError(t, err, models.CodeValidation, MsgBloodBankExists)

	padded := BloodBankRegistration{BloodBankName: "Eastside", Email: "  Desk@Eastside.TEST ", Password: "bank-password", RegistrationNumber: "BB-2"}
	east, err := f.facilities.RegisterBloodBank(ctx, padded)
	require.NoError(t, err)
	assert.Equal(t, "desk@eastside.test", east.Email)

	padded.RegistrationNumber = "BB-3"
	padded.Email = "desk@eastside.test"
	_, err = f.facilities.RegisterBloodBank(ctx, padded)
	assertAppError(t, err, models.CodeValidation, MsgBloodBankExists)

	_, err = f.facilities.RegisterBloodBank(ctx, BloodBankRegistration{Email: "x@banks.test", Password: "bank-password"})
	assertAppError(t, err, models.CodeValidation, "bloodBankName is required")
}

func TestFacilityService_HospitalSearchAndCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.hospital(t, "apollo")
	f.hospital(t, "fortis")

	all, err := f.facilities.Hospitals(ctx, "", PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.True(t, f.mr.Exists(cache.KeyHospitals))

	found, err := f.facilities.Hospitals(ctx, "APOL", PageRequest{})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "apollo", found.Items[0].HospitalName)

	_, err = f.facilities.RegisterHospital(ctx, hospitalSignup("new@city.test", "H-9"))
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.KeyHospitals))

	paged, err := f.facilities.Hospitals(ctx, "", PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, Pagination{Page: 2, Limit: 2, Total: 3, Pages: 2, HasNext: false, HasPrev: true}, paged.Pagination)
	assert.False(t, f.mr.Exists(cache.KeyHospitals), "only the default first page is cached")
}

func TestFacilityService_BloodBankWithInventory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	b := f.bank(t, "central")
	_, err := f.inventory.RecordBankDonation(ctx, b.ID, BankDonationInput{BloodGroup: models.ABNegative, Units: 3})
	require.NoError(t, err)

	got, err := f.facilities.BloodBank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "central", got.BloodBankName)
	assert.Len(t, got.Inventory, len(models.BloodGroups))
	assert.Equal(t, 3, got.Inventory[models.ABNegative])
	assert.Equal(t, 0, got.Inventory[models.OPositive])

	_, err = f.facilities.BloodBank(ctx, 404)
	assertAppError(t, err, models.CodeNotFound, "Blood bank not found")
}

func TestFacilityService_BankRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	b := f.bank(t, "central")
	h := f.hospital(t, "city")

	for _, source := range []models.RequestSource{models.SourceBloodBank, models.SourceDonor, models.SourceBloodBank} {
		_, err := f.hospitalDesk.Create(ctx, h.ID, HospitalRequestInput{
			PatientName: "P", BloodGroup: models.OPositive, UnitsRequired: 1, RequestedFrom: source,
		})
		require.NoError(t, err)
	}

	got, err := f.facilities.BankRequests(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, models.SourceBloodBank, r.RequestedFrom)
		require.NotNil(t, r.Hospital)
		assert.Equal(t, "city", r.Hospital.HospitalName)
	}
}
