package main

import (
	"os"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/render"
	"budget/internal/services"
	appweb "budget/web"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	renderer, err := render.New(appweb.TemplatesFS)
	if err != nil {
		_ = res.Cleanup()
		logger.Error("Failed to parse templates", log.FieldError, err)
		os.Exit(1)
	}

	tracker := services.NewTracker(
		services.NewRepository(res.Store, nil),
		nil,
		render.Options{Currency: cfg.Currency, Location: cfg.Location()},
	)
	srv := apphttp.NewServer(":"+cfg.Port, tracker, renderer, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitRPM,
		Ready:              apphttp.ReadyCheck(res.Ready),
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget tracker",
			"port", cfg.Port,
			"backend", backendCfg.Type,
			"currency", cfg.Currency)
		return cli.ServeUntilDone(gctx, srv, cli.ShutdownTimeout, logger)
	})
	// Warm the view so the first page load does not wait on the backend.
	g.Go(func() error {
		tracker.Load(gctx)
		return nil
	})

	err = g.Wait()
	if cerr := res.Cleanup(); cerr != nil {
		logger.Error("Backend cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
