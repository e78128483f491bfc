package ports

import (
	"context"

	"mtgateway/internal/domain"
)

// TradeJournal defines the interface for the dispatch audit trail.
type TradeJournal interface {
	// Record appends a journal entry and returns its assigned ID.
	Record(ctx context.Context, entry *domain.JournalEntry) (int64, error)
	// Recent retrieves the most recent entries, newest first, up to a limit.
	Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)
	// CountToday counts entries recorded since midnight UTC.
	CountToday(ctx context.Context) (int, error)
}
