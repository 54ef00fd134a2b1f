package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/client"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	memsheet "budget/internal/sheets/memory"
	"budget/internal/worker"
)

const (
	cacheCleanupInterval = 10 * time.Minute
	statsInterval        = time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(log.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewSyncWorker(mirror)

	caches := cache.NewManager()
	caches.Register(w.SeenCache())
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	if cfg.SyncOnStartup {
		lister, err := client.New(cfg.BackendURL, cfg.RequestTimeout)
		if err != nil {
			logger.Error("Invalid backend URL for startup sync", log.FieldError, err)
			os.Exit(1)
		}
		// A failed startup sync is not fatal; live events still flow.
		if err := w.StartupSync(ctx, lister); err != nil {
			logger.Error("Startup sync failed", log.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming transaction events",
			"queue", cfg.AMQPQueue,
			"prefetch", cfg.SyncPrefetch)
		return amqpClient.Consume(gctx, cfg.SyncPrefetch, w.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStats(logger, "Sync stats", w.Stats())
			}
		}
	})

	err = g.Wait()
	logStats(logger, "Worker stopped", w.Stats())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err)
		os.Exit(1)
	}
}

func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory only")
		return memsheet.New(), nil
	}
	c, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		RowCacheTTL:     cfg.RowCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return c, nil
}

func logStats(logger *log.Logger, msg string, s worker.Stats) {
	logger.Info(msg,
		"applied", s.Applied,
		"skipped", s.Skipped,
		"failed", s.Failed)
}
