package main

import (
	"os"

	"golang.org/x/sync/errgroup"

	"budget/internal/api"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateAPI)
	logger = logger.WithComponent(log.ComponentAPI)

	ctx, stop := cli.SignalContext()
	defer stop()

	// The API always owns the SQLite store; DATA_BACKEND only steers the UI.
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	})
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	srv := api.NewServer(":"+cfg.APIPort, res.Store, api.Options{
		RateLimitPerMinute: cfg.RateLimitRPM,
		AllowOrigin:        cfg.CORSOrigin,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting transaction API", "port", cfg.APIPort, "db_path", cfg.SQLiteDBPath)
		return cli.ServeUntilDone(gctx, srv, cli.ShutdownTimeout, logger)
	})

	err = g.Wait()
	if cerr := res.Cleanup(); cerr != nil {
		logger.Error("Store cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
