package query

import (
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/WhiteShieldPT/docsearch-pt/internal/entity"
)

// DefaultClassifierCacheSize bounds the classification LRU. Entries
// are tiny, so this is generous.
const DefaultClassifierCacheSize = 10000

// Classification rules in priority order. Structured shapes are
// checked before the generic name fallback so an id is never taken
// for a name.
var (
	taxIDShapeRe   = regexp.MustCompile(`^\d{9}$`)
	ibanShapeRe    = regexp.MustCompile(`(?i)^PT50[0-9A-Z]{21}$`)
	amountShapeRe  = regexp.MustCompile(`^€?(\d+[.,]\d{2})$`)
	invoiceShapeRe = regexp.MustCompile(`(?i)^(?:FT|FA|FR|F)[\s\-/]?\d{4}[/\-]?\d+`)
	nameShapeRe    = regexp.MustCompile(`^[A-Za-zÀ-ÿ\s.,&\-]{3,}$`)
)

// Classifier assigns an Intent to raw queries. Classification is pure
// and deterministic; an LRU cache short-circuits repeated lookups.
type Classifier struct {
	cache *lru.Cache[string, Classification]
}

// NewClassifier creates a classifier with the given cache size.
// Sizes <= 0 fall back to the default.
func NewClassifier(cacheSize int) *Classifier {
	if cacheSize <= 0 {
		cacheSize = DefaultClassifierCacheSize
	}
	cache, _ := lru.New[string, Classification](cacheSize)
	return &Classifier{cache: cache}
}

// Classify returns the intent for raw. First matching rule wins.
func (c *Classifier) Classify(raw string) Classification {
	q := strings.TrimSpace(raw)
	if cached, ok := c.cache.Get(q); ok {
		return cached
	}
	cls := classify(q)
	c.cache.Add(q, cls)
	return cls
}

func classify(q string) Classification {
	if taxIDShapeRe.MatchString(q) {
		return Classification{
			Intent:     IntentTaxID,
			Value:      q,
			ChecksumOK: entity.ValidTaxID(q),
		}
	}
	if ibanShapeRe.MatchString(q) {
		return Classification{Intent: IntentIBAN, Value: strings.ToUpper(q)}
	}
	// Spaces inside the token are formatting noise for amounts.
	if m := amountShapeRe.FindStringSubmatch(strings.ReplaceAll(q, " ", "")); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return Classification{Intent: IntentAmount, Value: q, Amount: v}
		}
	}
	if invoiceShapeRe.MatchString(q) {
		return Classification{Intent: IntentInvoice, Value: q}
	}
	if nameShapeRe.MatchString(q) {
		return Classification{Intent: IntentName, Value: q}
	}
	return Classification{Intent: IntentFreeText, Value: q}
}
