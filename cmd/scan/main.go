package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jdjkelly/snowdoge/internal/config"
	"github.com/jdjkelly/snowdoge/internal/logger"
	"github.com/jdjkelly/snowdoge/internal/repository"
	"github.com/jdjkelly/snowdoge/internal/service"
	"github.com/jdjkelly/snowdoge/internal/source"
	"github.com/jdjkelly/snowdoge/internal/source/ckan"
	"github.com/jdjkelly/snowdoge/internal/source/fixture"
	"github.com/jdjkelly/snowdoge/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize logger first (with defaults)
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	fixturePath := flag.String("fixture", "", "Scan a local JSONL fixture instead of the portal")
	dryRun := flag.Bool("dry-run", false, "Fetch and filter only, skip classification and persistence")
	export := flag.Bool("export", false, "Upload the flagged log to object storage after the run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [start-offset]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Optional positional argument: starting offset for resumed runs
	startOffset := 0
	if args := flag.Args(); len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 0 {
			appLogger.WithField("arg", args[0]).Error("Start offset must be a non-negative integer")
			return 2
		}
		startOffset = parsed
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Error("Failed to load config")
		return 1
	}
	if *fixturePath == "" {
		if err := cfg.Validate(); err != nil {
			appLogger.WithError(err).Error("Invalid configuration")
			return 1
		}
	}
	// Fail before the scan, not after it, when the upload cannot work.
	if *export || cfg.Export.Enabled {
		if err := cfg.ValidateExport(); err != nil {
			appLogger.WithError(err).Error("Invalid export configuration")
			return 1
		}
	}

	appLogger.WithFields(logger.Fields{
		"start_offset": startOffset,
		"dry_run":      *dryRun,
		"export":       *export,
		"output":       cfg.Output.Path,
	}).Info("Starting snowdoge scan")

	// Pick the contract source
	var src source.Source
	if *fixturePath != "" {
		src = fixture.NewAdapter(*fixturePath)
	} else {
		src = ckan.NewAdapter(&ckan.Config{
			BaseURL:    cfg.Portal.BaseURL,
			ResourceID: cfg.Portal.ResourceID,
			Timeout:    cfg.Portal.Timeout,
			MaxRetries: service.MaxRetries,
			RetryDelay: service.RateLimitDelay,
		})
	}

	// Durable flagged-contract log doubles as the processed-contract set
	store := repository.NewFlaggedContractRepository(cfg.Output.Path)

	classifier := service.NewClassifierService(&service.ClassifierConfig{
		Provider:   cfg.Classifier.Provider,
		Model:      cfg.Classifier.Model,
		APIKey:     cfg.Classifier.APIKey,
		BaseURL:    cfg.Classifier.BaseURL,
		MaxRetries: service.MaxRetries,
		RetryDelay: service.RateLimitDelay,
	})

	scanService := service.NewScanService(src, classifier, store, appLogger, &service.ScanConfig{
		DryRun: *dryRun,
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := scanService.Run(ctx, startOffset)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.WithField("resume_offset", stats.Offset).Warn("Scan interrupted")
			return 1
		}
		appLogger.WithError(err).WithField("resume_offset", stats.Offset).Error("Scan failed")
		return 1
	}

	appLogger.WithFields(logger.Fields{
		"batches":    stats.BatchNumber,
		"fetched":    stats.TotalFetched,
		"candidates": stats.TotalCandidates,
		"flagged":    stats.TotalFlagged,
		"offset":     stats.Offset,
	}).Info("Scan finished")

	if *export || cfg.Export.Enabled {
		objectStorage, err := storage.NewStorage(&storage.S3Config{
			Endpoint:  cfg.Export.Endpoint,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
			UseSSL:    cfg.Export.UseSSL,
			Bucket:    cfg.Export.Bucket,
			Region:    cfg.Export.Region,
			PublicURL: cfg.Export.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Error("Failed to initialize report storage")
			return 1
		}
		exporter := service.NewExportService(objectStorage, appLogger)
		if _, err := exporter.ExportLog(ctx, cfg.Output.Path); err != nil {
			appLogger.WithError(err).Error("Failed to export flagged log")
			return 1
		}
	}

	return 0
}
