package repository

import (
	"errors"
	"fmt"
	"testing"

	"jeevandhara/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505"}, true},
		{"pg wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pg check violation", &pgconn.PgError{Code: "23514"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: donors.email"), true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap(nil, "x"))
	assert.True(t, models.HasCode(wrap(gorm.ErrRecordNotFound, "Donor not found"), models.CodeNotFound))
	assert.True(t, models.HasCode(wrap(errors.New("boom"), "x"), models.CodeInternal))

	inv := models.NewInvariantError("Insufficient stock for A+")
	assert.Same(t, inv, wrap(inv, "x"))
}

func TestContainsFold(t *testing.T) {
	assert.Equal(t, "%kathmandu%", containsFold("  Kathmandu "))
	assert.Equal(t, `%100\%%`, containsFold("100%"))
}
