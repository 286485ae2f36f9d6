package models

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBloodGroup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    BloodGroup
		wantErr bool
	}{
		{"A+", APositive, false},
		{" ab- ", ABNegative, false},
		{"o+", OPositive, false},
		{"C+", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBloodGroup(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			assert.True(t, HasCode(err, CodeValidation))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDonorEligibility(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	never := &Donor{}
	assert.True(t, never.EligibleAt(now))
	assert.True(t, never.NextEligibleDate().IsZero())

	recent := now.AddDate(0, -1, 0)
	blocked := &Donor{LastDonationDate: &recent}
	assert.False(t, blocked.EligibleAt(now))
	assert.Equal(t, recent.AddDate(0, 3, 0), blocked.NextEligibleDate())

	exact := now.AddDate(0, -3, 0)
	boundary := &Donor{LastDonationDate: &exact}
	assert.True(t, boundary.EligibleAt(now), "a donation exactly three months ago is allowed")

	old := now.AddDate(-1, 0, 0)
	assert.True(t, (&Donor{LastDonationDate: &old}).EligibleAt(now))
}

func TestRequestStatusActive(t *testing.T) {
	t.Parallel()
	assert.True(t, RequestPending.Active())
	assert.True(t, RequestAccepted.Active())
	assert.False(t, RequestFulfilled.Active())
	assert.False(t, RequestCancelled.Active())
	assert.False(t, RequestStatus("bogus").Valid())
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewInvariantError("conflict"), http.StatusBadRequest},
		{NewNotFoundError("Donor not found"), http.StatusNotFound},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewAuthConfigMissingError(), http.StatusServiceUnavailable},
		{NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
