package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"mtgateway/config"
	"mtgateway/internal/adapters/binanceterm"
	"mtgateway/internal/adapters/logger"
	"mtgateway/internal/adapters/simterminal"
	"mtgateway/internal/adapters/sqlite"
	"mtgateway/internal/app"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

// close_all flattens open exposure in one shot: all positions by default,
// optionally narrowed to a symbol or a profit filter, or resting orders
// instead of positions.
func main() {
	symbol := flag.String("symbol", "", "limit to one symbol (e.g. ETHUSDT)")
	profitable := flag.Bool("profitable", false, "close only positions in profit")
	losing := flag.Bool("losing", false, "close only positions at a loss")
	orders := flag.Bool("orders", false, "cancel pending orders instead of closing positions")
	flag.Parse()

	if *profitable && *losing {
		log.Fatal("choose at most one of -profitable / -losing")
	}
	if *orders && (*profitable || *losing) {
		log.Fatal("-profitable/-losing apply to positions, not -orders")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	journal, err := sqlite.NewJournal(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Failed to initialize trade journal: %v", err)
	}
	defer journal.Close()

	var terminal ports.Terminal
	if cfg.DryRun {
		appLogger.Info(ctx, "Dry-run mode: using in-memory simulated terminal")
		terminal = simterminal.New()
	} else {
		terminal, err = binanceterm.New(binanceterm.Config{Logger: appLogger})
		if err != nil {
			log.Fatalf("Failed to initialize terminal adapter: %v", err)
		}
	}

	service, err := app.NewService(cfg, appLogger, terminal, journal)
	if err != nil {
		log.Fatalf("Failed to initialize terminal service: %v", err)
	}

	if res := service.Connect(ctx); res.Error {
		log.Fatalf("Connect failed: %s", res.Message)
	}
	defer service.Disconnect(ctx)

	var res domain.Result
	switch {
	case *orders && *symbol != "":
		res = service.CancelAllPendingOrdersBySymbol(ctx, *symbol)
	case *orders:
		res = service.CancelAllPendingOrders(ctx)
	case *profitable:
		res = service.CloseAllProfitablePositions(ctx)
	case *losing:
		res = service.CloseAllLosingPositions(ctx)
	case *symbol != "":
		res = service.CloseAllPositionsBySymbol(ctx, *symbol)
	default:
		res = service.CloseAllPositions(ctx)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if res.Error {
		os.Exit(1)
	}
}
