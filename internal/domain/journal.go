package domain

import "time"

// JournalEntry records a single dispatched mutation and its outcome. Entries
// form an append-only audit trail; they are never read back to drive trading
// decisions.
type JournalEntry struct {
	ID        int64
	RequestID string // client-side correlation id assigned at dispatch
	Kind      IntentKind
	Symbol    string
	Side      Side
	Volume    float64
	Price     float64
	Ticket    int64 // terminal-assigned ticket, 0 when the dispatch failed
	Success   bool
	Message   string
	CreatedAt time.Time
}
