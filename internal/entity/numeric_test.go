package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ParseAmount Tests
// =============================================================================

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"comma decimal", "45,00", 45.0, false},
		{"dot decimal", "45.00", 45.0, false},
		{"portuguese thousands", "1.234,56", 1234.56, false},
		{"anglo thousands", "1,234.56", 1234.56, false},
		{"plain integer", "1234", 1234.0, false},
		{"million with mixed groups", "1.234.567,89", 1234567.89, false},
		{"surrounding space", "  99,90 ", 99.9, false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"23", 23.0},
		{"23,5", 23.5},
		{"6", 6.0},
	}

	for _, tt := range tests {
		got, err := ParseRate(tt.in)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 0.001)
	}
}
