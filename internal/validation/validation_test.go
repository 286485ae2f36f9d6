package validation

import (
	"testing"

	"jeevandhara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	PatientName string `json:"patientName" validate:"required"`
	BloodGroup  string `json:"bloodGroup" validate:"required,bloodgroup"`
	Units       int    `json:"units" validate:"min=1"`
	Urgency     string `json:"urgency" validate:"omitempty,oneof=low medium high critical"`
	Email       string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Struct(sample{PatientName: "P", BloodGroup: "O-", Units: 1}))

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"missing name", sample{BloodGroup: "A+", Units: 1}, "patientName is required"},
		{"bad group", sample{PatientName: "P", BloodGroup: "C+", Units: 1}, "Invalid blood group: C+"},
		{"zero units", sample{PatientName: "P", BloodGroup: "A+"}, "units must be at least 1"},
		{"bad urgency", sample{PatientName: "P", BloodGroup: "A+", Units: 1, Urgency: "now"}, "urgency must be one of: low, medium, high, critical"},
		{"bad email", sample{PatientName: "P", BloodGroup: "A+", Units: 1, Email: "nope"}, "email must be a valid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStruct_JoinsAllFailures(t *testing.T) {
	t.Parallel()
	err := Struct(sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patientName is required")
	assert.Contains(t, err.Error(), "bloodGroup is required")
	assert.Contains(t, err.Error(), "units must be at least 1")
}
