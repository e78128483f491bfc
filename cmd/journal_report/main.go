package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"mtgateway/config"
	"mtgateway/internal/adapters/logger"
	"mtgateway/internal/adapters/sqlite"
)

// journal_report prints the most recent trade journal entries as a table,
// plus the count of dispatches recorded today.
func main() {
	limit := flag.Int("limit", 25, "number of entries to show")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	journal, err := sqlite.NewJournal(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Failed to open trade journal: %v", err)
	}
	defer journal.Close()

	entries, err := journal.Recent(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}
	today, err := journal.CountToday(ctx)
	if err != nil {
		log.Fatalf("Failed to count today's entries: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	fmt.Fprintln(w, "Time\tKind\tSymbol\tSide\tVolume\tTicket\tOK\tMessage\t")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\t%t\t%s\t\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Kind, e.Symbol, e.Side, e.Volume, e.Ticket, e.Success, e.Message)
	}
	w.Flush()

	fmt.Printf("\n%d dispatch(es) recorded today, %d shown\n", today, len(entries))
}
