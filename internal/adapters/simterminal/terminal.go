package simterminal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

// Compile-time interface check.
var _ ports.Terminal = (*Terminal)(nil)

// Terminal implements ports.Terminal entirely in memory. It backs the dry-run
// mode of the binaries and the package tests: failures can be scripted per
// call site and every terminal call is counted so tests can assert how many
// calls actually reached the terminal.
type Terminal struct {
	mu sync.Mutex

	connected  bool
	nextTicket int64

	positions map[int64]ports.PositionRecord
	orders    map[int64]ports.PendingOrderRecord
	quotes    map[string]float64 // fill price per symbol for market orders

	// scripted failures
	failOpens   int   // next n Open calls fail with ErrConnectionFailed
	failAuth    bool  // Open fails with ErrAuthenticationFailed
	failProbes  int   // next n Probe calls fail
	rejectCodes map[int64]int // SubmitOrder verdict per target ticket

	openCalls   int
	probeCalls  int
	closeCalls  int
	submitCalls int
}

// New creates an empty simulated terminal.
func New() *Terminal {
	return &Terminal{
		nextTicket:  1000,
		positions:   make(map[int64]ports.PositionRecord),
		orders:      make(map[int64]ports.PendingOrderRecord),
		quotes:      make(map[string]float64),
		rejectCodes: make(map[int64]int),
	}
}

// --- scripting helpers ---

// FailNextOpens makes the next n Open calls fail with a transient error.
func (t *Terminal) FailNextOpens(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOpens = n
}

// FailAuth makes every Open call fail with an authentication error.
func (t *Terminal) FailAuth(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failAuth = fail
}

// FailNextProbes makes the next n Probe calls report a dropped session.
func (t *Terminal) FailNextProbes(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failProbes = n
}

// RejectTicket scripts a broker refusal (by retcode) for close/cancel/modify
// requests targeting the given ticket.
func (t *Terminal) RejectTicket(ticket int64, retCode int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejectCodes[ticket] = retCode
}

// SetQuote sets the fill price used for market orders on a symbol.
func (t *Terminal) SetQuote(symbol string, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quotes[strings.ToUpper(symbol)] = price
}

// SeedPosition installs an open position directly, bypassing order flow.
func (t *Terminal) SeedPosition(rec ports.PositionRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec.Ticket == 0 {
		t.nextTicket++
		rec.Ticket = t.nextTicket
	}
	t.positions[rec.Ticket] = rec
}

// SeedOrder installs a resting order directly, bypassing order flow.
func (t *Terminal) SeedOrder(rec ports.PendingOrderRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec.Ticket == 0 {
		t.nextTicket++
		rec.Ticket = t.nextTicket
	}
	t.orders[rec.Ticket] = rec
}

// OpenCalls returns the number of Open calls observed.
func (t *Terminal) OpenCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openCalls
}

// ProbeCalls returns the number of Probe calls observed.
func (t *Terminal) ProbeCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.probeCalls
}

// SubmitCalls returns the number of SubmitOrder calls observed.
func (t *Terminal) SubmitCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitCalls
}

// --- ports.Terminal implementation ---

// Open establishes the simulated session, honoring scripted failures.
func (t *Terminal) Open(_ context.Context, _ ports.Credentials) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openCalls++

	if t.failAuth {
		return fmt.Errorf("open session: %w", ports.ErrAuthenticationFailed)
	}
	if t.failOpens > 0 {
		t.failOpens--
		return fmt.Errorf("open session: %w", ports.ErrConnectionFailed)
	}
	t.connected = true
	return nil
}

// Probe reports session liveness, honoring scripted drops.
func (t *Terminal) Probe(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probeCalls++

	if t.failProbes > 0 {
		t.failProbes--
		t.connected = false
	}
	if !t.connected {
		return fmt.Errorf("probe: %w", ports.ErrNotConnected)
	}
	return nil
}

// Close releases the simulated session.
func (t *Terminal) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	t.connected = false
	return nil
}

// SubmitOrder applies a normalized request against the in-memory book.
func (t *Terminal) SubmitOrder(_ context.Context, req ports.OrderRequest) (*ports.TradeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitCalls++

	if !t.connected {
		return nil, fmt.Errorf("submit order: %w", ports.ErrNotConnected)
	}

	if code, ok := t.rejectCodes[req.TargetID]; ok && req.TargetID != 0 {
		return &ports.TradeResult{RetCode: code, Ticket: req.TargetID}, nil
	}

	switch req.Kind {
	case domain.MarketOrder:
		t.nextTicket++
		fill := t.quotes[strings.ToUpper(req.Symbol)]
		now := time.Now().UTC()
		t.positions[t.nextTicket] = ports.PositionRecord{
			Ticket:       t.nextTicket,
			Symbol:       strings.ToUpper(req.Symbol),
			Side:         req.Side,
			Volume:       req.Volume,
			OpenPrice:    fill,
			CurrentPrice: fill,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			OpenedAt:     now,
			UpdatedAt:    now,
		}
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: t.nextTicket, Volume: req.Volume, Price: fill}, nil

	case domain.PlacePendingOrder:
		t.nextTicket++
		t.orders[t.nextTicket] = ports.PendingOrderRecord{
			Ticket:       t.nextTicket,
			Symbol:       strings.ToUpper(req.Symbol),
			Side:         req.Side,
			Volume:       req.Volume,
			Price:        req.Price,
			CurrentPrice: t.quotes[strings.ToUpper(req.Symbol)],
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			PlacedAt:     time.Now().UTC(),
		}
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: t.nextTicket, Volume: req.Volume, Price: req.Price}, nil

	case domain.ModifyPosition:
		pos, ok := t.positions[req.TargetID]
		if !ok {
			return &ports.TradeResult{RetCode: ports.RetInvalidOrder, Comment: "position not found"}, nil
		}
		pos.StopLoss = req.StopLoss
		pos.TakeProfit = req.TakeProfit
		pos.UpdatedAt = time.Now().UTC()
		t.positions[req.TargetID] = pos
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID}, nil

	case domain.ModifyPendingOrder:
		ord, ok := t.orders[req.TargetID]
		if !ok {
			return &ports.TradeResult{RetCode: ports.RetInvalidOrder, Comment: "order not found"}, nil
		}
		ord.Price = req.Price
		ord.StopLoss = req.StopLoss
		ord.TakeProfit = req.TakeProfit
		t.orders[req.TargetID] = ord
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID, Price: req.Price}, nil

	case domain.ClosePosition:
		pos, ok := t.positions[req.TargetID]
		if !ok {
			return &ports.TradeResult{RetCode: ports.RetInvalidOrder, Comment: "position not found"}, nil
		}
		delete(t.positions, req.TargetID)
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID, Volume: pos.Volume, Price: pos.CurrentPrice}, nil

	case domain.CancelPendingOrder:
		if _, ok := t.orders[req.TargetID]; !ok {
			return &ports.TradeResult{RetCode: ports.RetInvalidOrder, Comment: "order not found"}, nil
		}
		delete(t.orders, req.TargetID)
		return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID}, nil

	default:
		return nil, fmt.Errorf("submit order: %w: unsupported kind %q", ports.ErrInvalidRequest, req.Kind)
	}
}

// Positions returns all simulated open positions, oldest ticket first.
func (t *Terminal) Positions(_ context.Context) ([]ports.PositionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil, fmt.Errorf("query positions: %w", ports.ErrNotConnected)
	}
	out := make([]ports.PositionRecord, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	// Deterministic enumeration order for the bulk coordinator.
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// PendingOrders returns all simulated resting orders, oldest ticket first.
func (t *Terminal) PendingOrders(_ context.Context) ([]ports.PendingOrderRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil, fmt.Errorf("query pending orders: %w", ports.ErrNotConnected)
	}
	out := make([]ports.PendingOrderRecord, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}
