package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jdjkelly/snowdoge/internal/domain"
)

// Pipeline tuning constants. These are fixed domain parameters, not
// runtime configuration.
const (
	// BatchSize is the page size requested from the source per fetch.
	BatchSize = 100

	// MinContractValue is the dollar threshold below which contracts are
	// not worth classifying.
	MinContractValue = 50000

	// MaxRetries is the number of retries after a failed network attempt.
	MaxRetries = 3

	// RateLimitDelay is the base delay unit for backoff and the fixed
	// pause between batches.
	RateLimitDelay = 1000 * time.Millisecond
)

// ProcessedSet answers whether a contract reference number has already
// been flagged and durably written.
type ProcessedSet interface {
	Contains(referenceNumber string) bool
}

// ParseMoney parses a locale-formatted monetary string ("$1,234.00") by
// stripping everything except digits, decimal points, and minus signs.
// Unparsable values return NaN, which fails any threshold comparison.
func ParseMoney(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return math.NaN()
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return value
}

// SelectCandidates returns the records worth classifying: contract value
// at or above MinContractValue and reference number not yet processed.
// Pure except for reads of the processed set.
func SelectCandidates(records []domain.Contract, processed ProcessedSet) []domain.Contract {
	var candidates []domain.Contract
	for _, record := range records {
		value := ParseMoney(record.ContractValue)
		if !(value >= MinContractValue) {
			// NaN lands here too: unparsable values are excluded, not fatal.
			continue
		}
		if processed.Contains(record.ReferenceNumber) {
			continue
		}
		candidates = append(candidates, record)
	}
	return candidates
}
