package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"mtgateway/config"
	"mtgateway/internal/adapters/binanceterm"
	"mtgateway/internal/adapters/logger"
	"mtgateway/internal/adapters/simterminal"
	"mtgateway/internal/adapters/sqlite"
	"mtgateway/internal/app"
	"mtgateway/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Trade Journal (Database Adapter)
	journal, err := sqlite.NewJournal(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade journal")
		log.Fatalf("FATAL: Failed to initialize trade journal: %v", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade journal")
		}
	}()

	// 4. Initialize Terminal Adapter
	var terminal ports.Terminal
	if cfg.DryRun {
		appLogger.Info(ctx, "Dry-run mode: using in-memory simulated terminal")
		terminal = simterminal.New()
	} else {
		liveTerminal, err := binanceterm.New(binanceterm.Config{Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize terminal adapter")
			log.Fatalf("FATAL: Failed to initialize terminal adapter: %v", err)
		}
		terminal = liveTerminal
	}

	// 5. Initialize Application Service
	service, err := app.NewService(cfg, appLogger, terminal, journal)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize terminal service")
		log.Fatalf("FATAL: Failed to initialize terminal service: %v", err)
	}

	// 6. Connect and print an account snapshot
	if res := service.Connect(ctx); res.Error {
		appLogger.Error(ctx, nil, "Failed to connect to terminal", map[string]interface{}{"message": res.Message})
		log.Fatalf("FATAL: %s", res.Message)
	}
	defer service.Disconnect(ctx)

	if res := service.GetPositions(ctx); res.Error {
		appLogger.Error(ctx, nil, "Failed to query positions", map[string]interface{}{"message": res.Message})
	} else {
		appLogger.Info(ctx, "Open positions", map[string]interface{}{"result": res.Data})
	}

	if res := service.GetPendingOrders(ctx); res.Error {
		appLogger.Error(ctx, nil, "Failed to query pending orders", map[string]interface{}{"message": res.Message})
	} else {
		appLogger.Info(ctx, "Pending orders", map[string]interface{}{"result": res.Data})
	}

	appLogger.Info(ctx, "Terminal snapshot complete")
}
