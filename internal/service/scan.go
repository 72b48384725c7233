package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jdjkelly/snowdoge/internal/domain"
	"github.com/jdjkelly/snowdoge/internal/logger"
	"github.com/jdjkelly/snowdoge/internal/retry"
	"github.com/jdjkelly/snowdoge/internal/source"
)

// ContractClassifier maps a batch of candidate contracts to zero or more
// flagged results. Implementations own their own retry and degradation
// policy; Classify never fails the run.
type ContractClassifier interface {
	Classify(ctx context.Context, candidates []domain.Contract) []domain.FlaggedContract
}

// FlaggedStore is the durable sink for flagged contracts and the record
// of which reference numbers have been processed.
type FlaggedStore interface {
	Load(ctx context.Context) error
	Contains(referenceNumber string) bool
	Count() int
	Append(ctx context.Context, results []domain.FlaggedContract) error
}

// ScanStats holds the running counters for one scan. Offset is always the
// offset of the batch being (or about to be) fetched, which makes it the
// resume point an operator supplies after a fatal failure.
type ScanStats struct {
	Offset          int
	BatchNumber     int
	TotalFetched    int
	TotalCandidates int
	TotalFlagged    int
	StartTime       time.Time
	EndTime         time.Time
}

// ScanConfig holds options for the scan service.
type ScanConfig struct {
	DryRun bool            // skip classification and persistence
	Sleep  retry.SleepFunc // rate-limit pause; nil uses time.Sleep
}

// ScanService drives the batch pipeline: fetch a page, filter it against
// the value threshold and the processed set, classify the survivors,
// persist the flags, advance the offset. Strictly sequential; one batch
// at a time.
type ScanService struct {
	source     source.Source
	classifier ContractClassifier
	store      FlaggedStore
	logger     *logger.Logger
	sleep      retry.SleepFunc
	dryRun     bool
}

// NewScanService creates a new scan service.
func NewScanService(
	src source.Source,
	classifier ContractClassifier,
	store FlaggedStore,
	log *logger.Logger,
	cfg *ScanConfig,
) *ScanService {
	if cfg == nil {
		cfg = &ScanConfig{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &ScanService{
		source:     src,
		classifier: classifier,
		store:      store,
		logger:     log,
		sleep:      sleep,
		dryRun:     cfg.DryRun,
	}
}

// log returns a logger from context if available, otherwise the service's.
func (s *ScanService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Run scans the dataset from startOffset until the source is exhausted.
// The offset advances by exactly BatchSize every iteration regardless of
// page contents, so a run covers the paginated source exactly once.
//
// Returns the final stats and a non-nil error only for the fatal
// conditions: the processed-set failing to load, the fetcher exhausting
// its retries, or a persist failure. In every fatal case stats.Offset is
// the offset of the batch that failed, for operator-driven resume.
func (s *ScanService) Run(ctx context.Context, startOffset int) (*ScanStats, error) {
	runID := uuid.New().String()
	ctx = logger.SetRunID(s.logger.WithContext(ctx), runID)

	stats := &ScanStats{
		Offset:    startOffset,
		StartTime: time.Now(),
	}

	s.log(ctx).WithFields(logger.Fields{
		"source":       s.source.GetSourceID(),
		"source_name":  s.source.GetDisplayName(),
		"start_offset": startOffset,
		"dry_run":      s.dryRun,
	}).Info("Starting scan")

	if err := s.store.Load(ctx); err != nil {
		stats.EndTime = time.Now()
		return stats, fmt.Errorf("failed to load processed-contract set: %w", err)
	}
	s.log(ctx).WithField(logger.FieldCount, s.store.Count()).Info("Loaded processed-contract set")

	for {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			s.log(ctx).WithField(logger.FieldOffset, stats.Offset).Warn("Scan canceled, resume from current offset")
			return stats, err
		}

		batchCtx := logger.WithFields(ctx, logger.Fields{
			logger.FieldBatch:  stats.BatchNumber + 1,
			logger.FieldOffset: stats.Offset,
		})
		batchStart := time.Now()

		page, err := s.source.FetchPage(batchCtx, stats.Offset, BatchSize)
		if err != nil {
			stats.EndTime = time.Now()
			s.log(batchCtx).WithError(err).WithField("resume_offset", stats.Offset).
				Error("Fetch failed after retries, terminating run")
			return stats, fmt.Errorf("fetch at offset %d: %w", stats.Offset, err)
		}

		if len(page.Records) == 0 {
			stats.EndTime = time.Now()
			s.logSummary(ctx, stats)
			return stats, nil
		}

		stats.BatchNumber++
		stats.TotalFetched += len(page.Records)

		candidates := SelectCandidates(page.Records, s.store)
		stats.TotalCandidates += len(candidates)

		var flagged []domain.FlaggedContract
		if len(candidates) > 0 && !s.dryRun {
			flagged = s.classifier.Classify(batchCtx, candidates)
			if len(flagged) > 0 {
				if err := s.store.Append(batchCtx, flagged); err != nil {
					stats.EndTime = time.Now()
					s.log(batchCtx).WithError(err).WithField("resume_offset", stats.Offset).
						Error("Persist failed, terminating run")
					return stats, fmt.Errorf("persist at offset %d: %w", stats.Offset, err)
				}
				stats.TotalFlagged += len(flagged)
			}
		}

		logger.With(logger.Fields{"candidates": len(candidates)}).
			WithCount(len(page.Records)).
			WithFlagged(len(flagged)).
			WithDuration(time.Since(batchStart).Milliseconds()).
			Info(batchCtx, "Batch completed")

		// Forward progress is unconditional: the offset moves by the full
		// batch size even when the page came back short or nothing
		// qualified.
		stats.Offset += BatchSize

		// Courtesy throttle on the upstream source, independent of
		// whether any work occurred.
		s.sleep(RateLimitDelay)
	}
}

// logSummary reports the end-of-run accounting.
func (s *ScanService) logSummary(ctx context.Context, stats *ScanStats) {
	logger.With(logger.Fields{
		"batches":    stats.BatchNumber,
		"fetched":    stats.TotalFetched,
		"candidates": stats.TotalCandidates,
		"flagged":    stats.TotalFlagged,
		"offset":     stats.Offset,
	}).
		WithDuration(stats.EndTime.Sub(stats.StartTime).Milliseconds()).
		WithStatus("completed").
		Info(ctx, "Scan completed")
}
