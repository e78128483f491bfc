package domain

import "fmt"

// Result is the uniform outcome contract returned by every operation exposed
// to adapters. Error=false implies Data matches the operation's declared
// success payload; Error=true implies Data is nil or a diagnostic structure.
type Result struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// OK builds a success result with the given payload.
func OK(message string, data interface{}) Result {
	return Result{Error: false, Message: message, Data: data}
}

// Fail builds an error result. Data is always nil on failure paths.
func Fail(format string, args ...interface{}) Result {
	return Result{Error: true, Message: fmt.Sprintf(format, args...)}
}

// TicketData is the success payload for order creations and single-target
// close/cancel operations.
type TicketData struct {
	Ticket int64 `json:"ticket"`
}

// ModifyData echoes the updated fields back to the caller on a successful
// modification.
type ModifyData struct {
	Ticket     int64   `json:"ticket"`
	Price      float64 `json:"price,omitempty"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
}

// ItemOutcome is the per-target entry inside a bulk result.
type ItemOutcome struct {
	TargetID int64  `json:"targetId"`
	Error    bool   `json:"error"`
	Message  string `json:"message"`
}

// BulkOutcome aggregates per-target outcomes into one result. The top-level
// error is true iff at least one member failed; partial failure is never
// silently reported as success. verb names the operation, e.g. "closed".
func BulkOutcome(items []ItemOutcome, verb string) Result {
	failed := 0
	for _, it := range items {
		if it.Error {
			failed++
		}
	}
	msg := fmt.Sprintf("bulk: %d of %d %s", len(items)-failed, len(items), verb)
	return Result{Error: failed > 0, Message: msg, Data: items}
}
