package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Classifier Tests
// =============================================================================

func TestClassifier_Intents(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  Intent
		value string
	}{
		{"nine digits", "123456789", IntentTaxID, "123456789"},
		{"iban shape", "PT50000201231234567890154", IntentIBAN, "PT50000201231234567890154"},
		{"iban lowercase normalized", "pt50000201231234567890154", IntentIBAN, "PT50000201231234567890154"},
		{"amount comma", "45,00", IntentAmount, "45,00"},
		{"amount with symbol and space", "€ 45,00", IntentAmount, "€ 45,00"},
		{"invoice series", "FT2024/123", IntentInvoice, "FT2024/123"},
		{"invoice with separator", "FT 2024-123", IntentInvoice, "FT 2024-123"},
		{"company name", "João Silva, Lda", IntentName, "João Silva, Lda"},
		{"name with ampersand", "Ramos & Filhos", IntentName, "Ramos & Filhos"},
		{"mixed token falls through", "ref#2024!x", IntentFreeText, "ref#2024!x"},
		{"surrounding space trimmed", "  123456789  ", IntentTaxID, "123456789"},
	}

	c := NewClassifier(0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(tt.raw)
			assert.Equal(t, tt.want, cls.Intent)
			assert.Equal(t, tt.value, cls.Value)
		})
	}
}

func TestClassifier_AmountParsed(t *testing.T) {
	c := NewClassifier(0)

	cls := c.Classify("45,00")
	assert.Equal(t, IntentAmount, cls.Intent)
	assert.InDelta(t, 45.0, cls.Amount, 0.0001)

	cls = c.Classify("€1234.50")
	assert.Equal(t, IntentAmount, cls.Intent)
	assert.InDelta(t, 1234.5, cls.Amount, 0.0001)
}

func TestClassifier_TaxIDChecksumAnnotation(t *testing.T) {
	c := NewClassifier(0)

	valid := c.Classify("218940517")
	assert.Equal(t, IntentTaxID, valid.Intent)
	assert.True(t, valid.ChecksumOK)

	// Shape still wins the intent even when the checksum fails.
	invalid := c.Classify("123456789")
	assert.Equal(t, IntentTaxID, invalid.Intent)
	assert.False(t, invalid.ChecksumOK)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(2)

	inputs := []string{"123456789", "João Silva, Lda", "45,00", "FT2024/1"}
	for _, in := range inputs {
		first := c.Classify(in)
		// Second call may come from the cache; it must be identical.
		second := c.Classify(in)
		assert.Equal(t, first, second, in)
	}
}

// Structured shapes must win over the name fallback even when the
// token would also satisfy the name character class.
func TestClassifier_PriorityOrder(t *testing.T) {
	c := NewClassifier(0)

	// The invoice rule claims the token before the free-text fallback.
	assert.Equal(t, IntentInvoice, c.Classify("FT 2024/123").Intent)

	// Nine digits never reach the amount or name rules.
	assert.Equal(t, IntentTaxID, c.Classify("123456789").Intent)
}
