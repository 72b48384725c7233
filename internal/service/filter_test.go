package service

import (
	"math"
	"testing"

	"github.com/jdjkelly/snowdoge/internal/domain"
)

// stubSet is an in-memory ProcessedSet for filter tests.
type stubSet map[string]struct{}

func (s stubSet) Contains(ref string) bool {
	_, ok := s[ref]
	return ok
}

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "currency with separators", input: "$1,234.00", want: 1234.00},
		{name: "plain number", input: "50000", want: 50000},
		{name: "negative amendment", input: "-$12,500.00", want: -12500},
		{name: "whitespace and symbol", input: " $ 99.95 ", want: 99.95},
		{name: "below threshold edge", input: "$49,999.99", want: 49999.99},
		{name: "at threshold edge", input: "$50,000.00", want: 50000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMoney(tc.input)
			if got != tc.want {
				t.Errorf("ParseMoney(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseMoneyUnparsable(t *testing.T) {
	for _, input := range []string{"", "N/A", "TBD", "$", "1.2.3.4-"} {
		t.Run(input, func(t *testing.T) {
			got := ParseMoney(input)
			if !math.IsNaN(got) {
				t.Errorf("ParseMoney(%q) = %v, want NaN", input, got)
			}
		})
	}
}

func TestSelectCandidates(t *testing.T) {
	records := []domain.Contract{
		{ReferenceNumber: "C-001", ContractValue: "$50,000.00"},
		{ReferenceNumber: "C-002", ContractValue: "$49,999.99"},
		{ReferenceNumber: "C-003", ContractValue: "$1,250,000.00"},
		{ReferenceNumber: "C-004", ContractValue: "not disclosed"},
		{ReferenceNumber: "C-005", ContractValue: "$75,000.00"},
	}
	processed := stubSet{"C-005": {}}

	candidates := SelectCandidates(records, processed)

	want := []string{"C-001", "C-003"}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(candidates))
	}
	for i, ref := range want {
		if candidates[i].ReferenceNumber != ref {
			t.Errorf("candidate %d: expected %s, got %s", i, ref, candidates[i].ReferenceNumber)
		}
	}
}

func TestSelectCandidatesEmptyInput(t *testing.T) {
	if got := SelectCandidates(nil, stubSet{}); len(got) != 0 {
		t.Errorf("expected no candidates for empty input, got %d", len(got))
	}
}
