// Package fixture implements the contract Source interface over a local
// JSONL manifest, for offline dry runs and tests.
package fixture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jdjkelly/snowdoge/internal/domain"
	"github.com/jdjkelly/snowdoge/internal/source"
)

// Adapter implements the Source interface for a local manifest file.
// One JSON contract record per line.
type Adapter struct {
	path    string
	records []domain.Contract
	loaded  bool
}

// NewAdapter creates a new fixture adapter.
// Parameters:
//   - path: path to the JSONL manifest file.
//
// Returns:
//   - *Adapter: initialized fixture adapter.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "fixture:" + a.path
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Fixture (%s)", a.path)
}

// FetchPage fetches one page of contract records from the manifest.
// Offsets past the end of the manifest return an empty page.
func (a *Adapter) FetchPage(ctx context.Context, offset, limit int) (*source.Page, error) {
	if !a.loaded {
		if err := a.loadRecords(); err != nil {
			return nil, fmt.Errorf("failed to load fixture records: %w", err)
		}
		a.loaded = true
	}

	if offset >= len(a.records) {
		return &source.Page{Total: len(a.records)}, nil
	}

	end := offset + limit
	if end > len(a.records) {
		end = len(a.records)
	}

	return &source.Page{
		Records: a.records[offset:end],
		Total:   len(a.records),
		HasMore: end < len(a.records),
	}, nil
}

// loadRecords reads the whole manifest into memory. Lines that do not
// parse are skipped rather than failing the load.
func (a *Adapter) loadRecords() error {
	f, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", a.path, err)
	}
	defer f.Close()

	a.records = nil

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}

		var contract domain.Contract
		if err := json.Unmarshal(line, &contract); err != nil {
			continue
		}
		contract.Raw = raw

		a.records = append(a.records, contract)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	return nil
}
