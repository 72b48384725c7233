package domain

import (
	"encoding/json"
	"time"
)

// Contract represents one disclosed contract record pulled from the
// open-data portal. Only the reference number and the raw contract value
// are interpreted by the pipeline; everything else is carried through to
// the classifier untouched.
type Contract struct {
	ReferenceNumber string         `json:"reference_number"`
	VendorName      string         `json:"vendor_name"`
	Description     string         `json:"description"`
	ContractValue   string         `json:"contract_value"` // locale-formatted, e.g. "$1,234.00"
	BuyerName       string         `json:"buyer_name"`
	ContractDate    string         `json:"contract_date"`
	Raw             map[string]any `json:"-"` // full source record as fetched
}

// MarshalPayload serializes the full source record for submission to the
// classifier. Falls back to the typed fields when the raw record is absent
// (fixture sources and tests construct contracts directly).
func (c Contract) MarshalPayload() ([]byte, error) {
	if c.Raw != nil {
		return json.Marshal(c.Raw)
	}
	return json.Marshal(c)
}

// RiskLevel represents the classifier's severity verdict for a flagged contract.
// Values include RiskHigh, RiskMedium, and RiskLow.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Valid reports whether the risk level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow:
		return true
	}
	return false
}

// RiskFactors groups the classifier's free-text findings into fixed categories.
type RiskFactors struct {
	Procurement        []string `json:"procurement,omitempty"`
	Financial          []string `json:"financial,omitempty"`
	ConflictOfInterest []string `json:"conflict_of_interest,omitempty"`
	Timeline           []string `json:"timeline,omitempty"`
	PublicInterest     []string `json:"public_interest,omitempty"`
}

// Empty reports whether no findings were recorded in any category.
func (f RiskFactors) Empty() bool {
	return len(f.Procurement) == 0 &&
		len(f.Financial) == 0 &&
		len(f.ConflictOfInterest) == 0 &&
		len(f.Timeline) == 0 &&
		len(f.PublicInterest) == 0
}

// FlaggedContract is the durable output record for one contract the
// classifier considered risky. Written exactly once as a single JSON line;
// its ReferenceNumber mirrors the source contract's and is the sole key for
// the processed-contract set rebuilt at startup.
type FlaggedContract struct {
	ReferenceNumber string      `json:"reference_number"`
	VendorName      string      `json:"vendor_name"`
	Description     string      `json:"description"`
	ContractValue   float64     `json:"contract_value"`
	BuyerName       string      `json:"buyer_name,omitempty"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	RiskFactors     RiskFactors `json:"risk_factors"`
	Summary         string      `json:"summary,omitempty"`
	FlaggedAt       time.Time   `json:"flagged_at"`
}
