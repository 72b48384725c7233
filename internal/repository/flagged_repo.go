// Package repository owns the durable flagged-contract log. The
// newline-delimited JSON file is the pipeline's only persisted state: the
// set of already-processed reference numbers is rebuilt from it at startup
// and extended only after a successful append.
package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jdjkelly/snowdoge/internal/domain"
	"github.com/jdjkelly/snowdoge/internal/logger"
)

// FlaggedContractRepository appends flagged contracts to a JSONL log and
// tracks which reference numbers have already been written. A reference
// number is in the set if and only if a corresponding record exists in the
// log; the set is never mutated before its backing line is durable.
type FlaggedContractRepository struct {
	path string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewFlaggedContractRepository creates a repository over the given log path.
// Call Load before using Contains.
func NewFlaggedContractRepository(path string) *FlaggedContractRepository {
	return &FlaggedContractRepository{
		path: path,
		seen: make(map[string]struct{}),
	}
}

// Path returns the location of the durable log.
func (r *FlaggedContractRepository) Path() string {
	return r.path
}

// Load replays the durable log and rebuilds the processed-contract set.
// A missing or empty log is a fresh run, not an error. Lines that do not
// parse are skipped with a warning so one corrupt record cannot block
// startup.
func (r *FlaggedContractRepository) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen = make(map[string]struct{})

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open flagged log %s: %w", r.path, err)
	}
	defer f.Close()

	log := logger.FromContext(ctx)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var flagged domain.FlaggedContract
		if err := json.Unmarshal(line, &flagged); err != nil {
			log.WithFields(logger.Fields{
				"line": lineNo,
				"path": r.path,
			}).WithError(err).Warn("Skipping unparsable flagged log line")
			continue
		}
		if flagged.ReferenceNumber == "" {
			log.WithFields(logger.Fields{
				"line": lineNo,
				"path": r.path,
			}).Warn("Skipping flagged log line without reference number")
			continue
		}

		r.seen[flagged.ReferenceNumber] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read flagged log: %w", err)
	}

	return nil
}

// Contains reports whether a contract with this reference number has
// already been flagged and durably written.
func (r *FlaggedContractRepository) Contains(referenceNumber string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[referenceNumber]
	return ok
}

// Count returns the number of processed reference numbers.
func (r *FlaggedContractRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Append serializes each result as one JSON line and appends them to the
// log in a single write. Only after the append succeeds are the reference
// numbers marked processed; a crash between the two leaves records in the
// log that reload picks up, never the reverse. An empty slice is a no-op
// and does not touch the file.
func (r *FlaggedContractRepository) Append(ctx context.Context, results []domain.FlaggedContract) error {
	if len(results) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, result := range results {
		line, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal flagged contract %s: %w", result.ReferenceNumber, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if dir := filepath.Dir(r.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open flagged log for append: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to flagged log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close flagged log: %w", err)
	}

	r.mu.Lock()
	for _, result := range results {
		r.seen[result.ReferenceNumber] = struct{}{}
	}
	r.mu.Unlock()

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldFlagged: len(results),
		"path":              r.path,
	}).Debug("Appended flagged contracts")

	return nil
}
