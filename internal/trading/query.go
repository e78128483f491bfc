package trading

import (
	"context"
	"fmt"
	"strings"

	"mtgateway/internal/connection"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

// PositionQuery enumerates and filters the terminal's current open positions.
// Results are fetched fresh on every call; the terminal is the source of
// truth and nothing is cached. An empty result is not an error.
type PositionQuery struct {
	conn     *connection.Manager
	terminal ports.Terminal
}

// NewPositionQuery creates a position query component.
func NewPositionQuery(conn *connection.Manager, terminal ports.Terminal) (*PositionQuery, error) {
	if conn == nil || terminal == nil {
		return nil, fmt.Errorf("missing required dependencies for position query")
	}
	return &PositionQuery{conn: conn, terminal: terminal}, nil
}

// All returns every open position, in terminal enumeration order.
func (q *PositionQuery) All(ctx context.Context) ([]domain.Position, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return toPositions(recs), nil
}

// BySymbol returns open positions matching the symbol exactly
// (case-insensitive).
func (q *PositionQuery) BySymbol(ctx context.Context, symbol string) ([]domain.Position, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0)
	for _, r := range recs {
		if strings.EqualFold(r.Symbol, symbol) {
			out = append(out, toPosition(r))
		}
	}
	return out, nil
}

// ByCurrency returns open positions whose symbol contains the currency as one
// of its legs, e.g. "USD" matches EURUSD and USDJPY (case-insensitive
// substring match, mirroring the terminal's group filter semantics).
func (q *PositionQuery) ByCurrency(ctx context.Context, currency string) ([]domain.Position, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToUpper(currency)
	out := make([]domain.Position, 0)
	for _, r := range recs {
		if strings.Contains(strings.ToUpper(r.Symbol), needle) {
			out = append(out, toPosition(r))
		}
	}
	return out, nil
}

// ByID returns the position with the given ticket, or an empty slice.
func (q *PositionQuery) ByID(ctx context.Context, id int64) ([]domain.Position, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0, 1)
	for _, r := range recs {
		if r.Ticket == id {
			out = append(out, toPosition(r))
		}
	}
	return out, nil
}

func (q *PositionQuery) fetch(ctx context.Context) ([]ports.PositionRecord, error) {
	if res := q.conn.EnsureConnected(ctx); res.Error {
		return nil, fmt.Errorf("%s", res.Message)
	}
	return q.terminal.Positions(ctx)
}

// PendingOrderQuery enumerates and filters the terminal's resting orders.
type PendingOrderQuery struct {
	conn     *connection.Manager
	terminal ports.Terminal
}

// NewPendingOrderQuery creates a pending order query component.
func NewPendingOrderQuery(conn *connection.Manager, terminal ports.Terminal) (*PendingOrderQuery, error) {
	if conn == nil || terminal == nil {
		return nil, fmt.Errorf("missing required dependencies for pending order query")
	}
	return &PendingOrderQuery{conn: conn, terminal: terminal}, nil
}

// All returns every resting order, in terminal enumeration order.
func (q *PendingOrderQuery) All(ctx context.Context) ([]domain.PendingOrder, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return toPendingOrders(recs), nil
}

// BySymbol returns resting orders matching the symbol exactly
// (case-insensitive).
func (q *PendingOrderQuery) BySymbol(ctx context.Context, symbol string) ([]domain.PendingOrder, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingOrder, 0)
	for _, r := range recs {
		if strings.EqualFold(r.Symbol, symbol) {
			out = append(out, toPendingOrder(r))
		}
	}
	return out, nil
}

// ByCurrency returns resting orders whose symbol contains the currency leg.
func (q *PendingOrderQuery) ByCurrency(ctx context.Context, currency string) ([]domain.PendingOrder, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToUpper(currency)
	out := make([]domain.PendingOrder, 0)
	for _, r := range recs {
		if strings.Contains(strings.ToUpper(r.Symbol), needle) {
			out = append(out, toPendingOrder(r))
		}
	}
	return out, nil
}

// ByID returns the resting order with the given ticket, or an empty slice.
func (q *PendingOrderQuery) ByID(ctx context.Context, id int64) ([]domain.PendingOrder, error) {
	recs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingOrder, 0, 1)
	for _, r := range recs {
		if r.Ticket == id {
			out = append(out, toPendingOrder(r))
		}
	}
	return out, nil
}

func (q *PendingOrderQuery) fetch(ctx context.Context) ([]ports.PendingOrderRecord, error) {
	if res := q.conn.EnsureConnected(ctx); res.Error {
		return nil, fmt.Errorf("%s", res.Message)
	}
	return q.terminal.PendingOrders(ctx)
}

// --- Translation helpers ---

func toPosition(r ports.PositionRecord) domain.Position {
	return domain.Position{
		Ticket:       r.Ticket,
		Symbol:       r.Symbol,
		Side:         r.Side,
		Volume:       r.Volume,
		OpenPrice:    r.OpenPrice,
		CurrentPrice: r.CurrentPrice,
		Profit:       r.Profit,
		StopLoss:     r.StopLoss,
		TakeProfit:   r.TakeProfit,
		OpenedAt:     r.OpenedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toPositions(recs []ports.PositionRecord) []domain.Position {
	out := make([]domain.Position, 0, len(recs))
	for _, r := range recs {
		out = append(out, toPosition(r))
	}
	return out
}

func toPendingOrder(r ports.PendingOrderRecord) domain.PendingOrder {
	return domain.PendingOrder{
		Ticket:       r.Ticket,
		Symbol:       r.Symbol,
		Side:         r.Side,
		Volume:       r.Volume,
		Price:        r.Price,
		CurrentPrice: r.CurrentPrice,
		StopLoss:     r.StopLoss,
		TakeProfit:   r.TakeProfit,
		PlacedAt:     r.PlacedAt,
	}
}

func toPendingOrders(recs []ports.PendingOrderRecord) []domain.PendingOrder {
	out := make([]domain.PendingOrder, 0, len(recs))
	for _, r := range recs {
		out = append(out, toPendingOrder(r))
	}
	return out
}
