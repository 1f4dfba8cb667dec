package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// ValidTaxID Tests
// =============================================================================

func TestValidTaxID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		// sum = 2*9+1*8+8*7+9*6+4*5+0*4+5*3+1*2+7*1 = 180,
		// 180 mod 11 = 4, check = 7 = last digit.
		{"valid id", "218940517", true},
		// sum = 165, 165 mod 11 = 0, check maps 11 -> 0, last digit 9.
		{"sequential digits fail checksum", "123456789", false},
		{"leading digit outside issue ranges", "418940517", false},
		{"too short", "21894051", false},
		{"too long", "2189405170", false},
		{"non-digit", "21894O517", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTaxID(tt.id))
		})
	}
}

func TestValidTaxID_SingleDigitPerturbations(t *testing.T) {
	const valid = "218940517"
	assert.True(t, ValidTaxID(valid))

	for pos := 0; pos < len(valid); pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if d == valid[pos] {
				continue
			}
			mutated := valid[:pos] + string(d) + valid[pos+1:]
			assert.False(t, ValidTaxID(mutated),
				fmt.Sprintf("perturbation %s must fail", mutated))
		}
	}
}

// =============================================================================
// taxIDCandidates Tests
// =============================================================================

func TestTaxIDCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single candidate", "NIF: 218940517", []string{"218940517"}},
		{
			"two candidates in document order",
			"Fornecedor NIF 218940517\nCliente NIF 501442600",
			[]string{"218940517", "501442600"},
		},
		{"leading 4 rejected", "NIF 418940517", nil},
		{"leading 7 rejected", "NIF 718940517", nil},
		{"embedded in longer run rejected", "ref 2189405171", nil},
		{"no digits", "sem numero aqui", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, taxIDCandidates(tt.text))
		})
	}
}
