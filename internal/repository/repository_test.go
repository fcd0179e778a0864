package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPrefixPattern(t *testing.T) {
	assert.Equal(t, `cs\_test\_a1%`, prefixPattern("cs_test_a1"))
	assert.Equal(t, `100\%\\x%`, prefixPattern(`100%\x`))
	assert.Equal(t, "%", prefixPattern(""))
}

func TestDerivedFrom(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"cs_1_10_0", true},
		{"cs_1_10_12", true},
		{"cs_1_11_0", false},
		{"cs_1_x_10_0", false},
		{"cs_1_10_", false},
		{"cs_1_10_a", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, derivedFrom(tc.code, "cs_1", 10), tc.code)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestStockError(t *testing.T) {
	err := error(&StockError{TicketTypeID: 3, Requested: 4, Available: 1})
	assert.ErrorIs(t, err, ErrStockExhausted)
	assert.EqualError(t, err, "ticket type 3: requested 4, available 1")
}
