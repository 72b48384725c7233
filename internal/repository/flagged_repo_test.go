package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdjkelly/snowdoge/internal/domain"
)

func testFlagged(ref string, level domain.RiskLevel) domain.FlaggedContract {
	return domain.FlaggedContract{
		ReferenceNumber: ref,
		VendorName:      "Acme Consulting",
		Description:     "IT services",
		ContractValue:   125000,
		RiskLevel:       level,
		RiskFactors: domain.RiskFactors{
			Procurement: []string{"sole-source award without justification"},
		},
		FlaggedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLoadMissingFileIsFreshRun(t *testing.T) {
	repo := NewFlaggedContractRepository(filepath.Join(t.TempDir(), "flagged.jsonl"))

	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error loading missing log: %v", err)
	}
	if repo.Count() != 0 {
		t.Errorf("expected empty set, got %d entries", repo.Count())
	}
}

func TestAppendThenContains(t *testing.T) {
	repo := NewFlaggedContractRepository(filepath.Join(t.TempDir(), "flagged.jsonl"))
	ctx := context.Background()

	if err := repo.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	results := []domain.FlaggedContract{
		testFlagged("C-001", domain.RiskHigh),
		testFlagged("C-002", domain.RiskLow),
	}
	if err := repo.Append(ctx, results); err != nil {
		t.Fatalf("append: %v", err)
	}

	for _, ref := range []string{"C-001", "C-002"} {
		if !repo.Contains(ref) {
			t.Errorf("expected %s to be marked processed", ref)
		}
	}
	if repo.Contains("C-003") {
		t.Error("unexpected membership for unflagged reference")
	}
}

func TestAppendIsDurableAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.jsonl")
	ctx := context.Background()

	repo := NewFlaggedContractRepository(path)
	if err := repo.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := repo.Append(ctx, []domain.FlaggedContract{testFlagged("C-010", domain.RiskMedium)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A fresh repository rebuilt from the log alone must see the entry:
	// the line is committed before the in-memory set is touched.
	reloaded := NewFlaggedContractRepository(path)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Contains("C-010") {
		t.Error("expected reloaded set to contain appended reference")
	}
	if reloaded.Count() != 1 {
		t.Errorf("expected 1 entry after reload, got %d", reloaded.Count())
	}
}

func TestAppendWritesOneJSONLinePerResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.jsonl")
	ctx := context.Background()

	repo := NewFlaggedContractRepository(path)
	if err := repo.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	results := []domain.FlaggedContract{
		testFlagged("C-001", domain.RiskHigh),
		testFlagged("C-002", domain.RiskMedium),
		testFlagged("C-003", domain.RiskLow),
	}
	if err := repo.Append(ctx, results); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var flagged domain.FlaggedContract
		if err := json.Unmarshal(scanner.Bytes(), &flagged); err != nil {
			t.Errorf("line %d is not valid JSON: %v", lines, err)
		}
		if flagged.ReferenceNumber == "" {
			t.Errorf("line %d missing reference number", lines)
		}
	}
	if lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

func TestAppendEmptyIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.jsonl")

	repo := NewFlaggedContractRepository(path)
	if err := repo.Append(context.Background(), nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected empty append not to touch the log file")
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.jsonl")

	good, err := json.Marshal(testFlagged("C-100", domain.RiskHigh))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	content := string(good) + "\n" +
		"{this is not json\n" +
		"\n" +
		`{"vendor_name":"no reference"}` + "\n" +
		string(good) + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	repo := NewFlaggedContractRepository(path)
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("load with corrupt lines should not fail: %v", err)
	}
	if repo.Count() != 1 {
		t.Errorf("expected 1 valid entry, got %d", repo.Count())
	}
	if !repo.Contains("C-100") {
		t.Error("expected valid entry to survive corrupt neighbors")
	}
}
