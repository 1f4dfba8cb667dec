package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Date Normalization Tests
// =============================================================================

func TestFindDate(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantRaw    string
		wantLayout string
		wantOK     bool
	}{
		{"slash day-first", "Data: 01/09/2024", "01/09/2024", "02-01-2006", true},
		{"dash day-first", "Data: 01-09-2024", "01-09-2024", "02-01-2006", true},
		{"dot day-first", "Data 01.09.2024", "01.09.2024", "02-01-2006", true},
		{"year-first", "Emitida em 2024-09-01", "2024-09-01", "2006-01-02", true},
		{
			"day-first beats year-first regardless of position",
			"2024-09-01 pago a 15/03/2024",
			"15/03/2024", "02-01-2006", true,
		},
		{
			"out-of-range day-first still claims the match",
			"Data: 13/13/2024 e depois 2024-09-01",
			"13/13/2024", "02-01-2006", true,
		},
		{"no date", "sem data nenhuma", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, layout, ok := findDate(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRaw, raw)
			assert.Equal(t, tt.wantLayout, layout)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		layout string
		want   string
		wantOK bool
	}{
		{"day-first slash", "01/09/2024", "02-01-2006", "2024-09-01", true},
		{"day-first dot", "01.09.2024", "02-01-2006", "2024-09-01", true},
		{"year-first passthrough", "2024-09-01", "2006-01-02", "2024-09-01", true},
		{"month out of range", "13/13/2024", "02-01-2006", "", false},
		{"day out of range", "32/01/2024", "02-01-2006", "", false},
		{"february 30", "30/02/2024", "02-01-2006", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw, tt.layout)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearMonthQuarter(t *testing.T) {
	tests := []struct {
		iso     string
		year    int
		month   int
		quarter int
	}{
		{"2024-01-15", 2024, 1, 1},
		{"2024-03-31", 2024, 3, 1},
		{"2024-04-01", 2024, 4, 2},
		{"2024-09-01", 2024, 9, 3},
		{"2024-12-31", 2024, 12, 4},
	}

	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			y, m, q, ok := YearMonthQuarter(tt.iso)
			require.True(t, ok)
			assert.Equal(t, tt.year, y)
			assert.Equal(t, tt.month, m)
			assert.Equal(t, tt.quarter, q)
		})
	}

	_, _, _, ok := YearMonthQuarter("not-a-date")
	assert.False(t, ok)
}
