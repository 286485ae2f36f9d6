package service

import (
	"context"
	"testing"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationService_ApproveAndReject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	good := f.hospital(t, "good")
	bad := f.hospital(t, "bad")

	approved, err := f.review.ApproveHospital(ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsVerified)
	assert.Equal(t, models.VerificationVerified, approved.VerificationStatus)

	rejected, err := f.review.RejectHospital(ctx, bad.ID, "  ")
	require.NoError(t, err)
	assert.False(t, rejected.IsVerified)
	assert.Equal(t, models.VerificationRejected, rejected.VerificationStatus)
	assert.Equal(t, DefaultRejectionReason, rejected.RejectionReason)

	bank := f.bank(t, "central")
	rb, err := f.review.RejectBloodBank(ctx, bank.ID, "License expired")
	require.NoError(t, err)
	assert.Equal(t, "License expired", rb.RejectionReason)

	_, err = f.review.ApproveBloodBank(ctx, 404)
	assertAppError(t, err, models.CodeNotFound, "Blood bank not found")
}

func TestVerificationService_ListsAndStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	h1 := f.hospital(t, "one")
	f.hospital(t, "two")
	h3 := f.hospital(t, "three")
	b1 := f.bank(t, "central")
	f.bank(t, "north")

	_, err := f.review.ApproveHospital(ctx, h1.ID)
	require.NoError(t, err)
	_, err = f.review.RejectHospital(ctx, h3.ID, "")
	require.NoError(t, err)
	_, err = f.review.ApproveBloodBank(ctx, b1.ID)
	require.NoError(t, err)

	pending, err := f.review.Hospitals(ctx, models.VerificationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "two", pending[0].HospitalName)

	verified, err := f.review.BloodBanks(ctx, models.VerificationVerified)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, b1.ID, verified[0].ID)

	stats, err := f.review.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, VerificationCounts{Pending: 1, Verified: 1, Rejected: 1, Total: 3}, stats.Hospitals)
	assert.Equal(t, VerificationCounts{Pending: 1, Verified: 1, Rejected: 0, Total: 2}, stats.BloodBanks)
}

func TestVerificationService_InvalidatesListingCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.hospital(t, "city")

	_, err := f.facilities.Hospitals(ctx, "", PageRequest{})
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.KeyHospitals))

	_, err = f.review.ApproveHospital(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.KeyHospitals))
}
