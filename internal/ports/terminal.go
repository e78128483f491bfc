package ports

import (
	"context"
	"time"

	"mtgateway/internal/domain"
)

// Credentials identify a terminal account. The core treats them as opaque;
// each adapter decides how login/password/server map onto its own wire
// concepts (account id, API key pair, environment selector, ...).
type Credentials struct {
	Login    string
	Password string
	Server   string
}

// OrderRequest is the normalized request shape handed to the terminal. It is
// built from a validated TradeIntent at the gateway boundary; the untyped
// native shape never leaks past the adapter.
type OrderRequest struct {
	Kind       domain.IntentKind
	Symbol     string
	Side       domain.Side
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	TargetID   int64
	ClientID   string // correlation id, echoed into the journal
}

// Trade server return codes, modeled after the MetaTrader retcode set. A
// non-RetDone code means the broker refused a well-formed request.
const (
	RetDone          = 10009
	RetRequote       = 10004
	RetRejected      = 10006
	RetInvalidVolume = 10014
	RetInvalidPrice  = 10015
	RetInvalidStops  = 10016
	RetMarketClosed  = 10018
	RetNoMoney       = 10019
	RetPriceChanged  = 10020
	RetInvalidOrder  = 10013
)

// RetCodeDescription returns the textual description for a trade server
// return code, used verbatim in user-visible error messages.
func RetCodeDescription(code int) string {
	switch code {
	case RetDone:
		return "request completed"
	case RetRequote:
		return "requote"
	case RetRejected:
		return "request rejected"
	case RetInvalidVolume:
		return "invalid volume in the request"
	case RetInvalidPrice:
		return "invalid price in the request"
	case RetInvalidStops:
		return "invalid stops in the request"
	case RetMarketClosed:
		return "market is closed"
	case RetNoMoney:
		return "insufficient funds to complete the request"
	case RetPriceChanged:
		return "price changed"
	case RetInvalidOrder:
		return "invalid request"
	default:
		return "unknown trade server return code"
	}
}

// TradeResult is the normalized trade server verdict for a submitted request.
type TradeResult struct {
	RetCode int     // RetDone on success
	Ticket  int64   // terminal-assigned ticket for the affected position/order
	Volume  float64 // volume confirmed by the broker
	Price   float64 // price confirmed by the broker
	Comment string  // broker comment, if any
}

// PositionRecord is the normalized native record for an open position.
type PositionRecord struct {
	Ticket       int64
	Symbol       string
	Side         domain.Side
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	Profit       float64
	StopLoss     float64
	TakeProfit   float64
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// PendingOrderRecord is the normalized native record for a resting order.
type PendingOrderRecord struct {
	Ticket       int64
	Symbol       string
	Side         domain.Side
	Volume       float64
	Price        float64
	CurrentPrice float64
	StopLoss     float64
	TakeProfit   float64
	PlacedAt     time.Time
}

// Terminal defines the interface for the external trading terminal process.
// Implementations own the concrete session handle; the connection manager
// drives Open/Probe/Close and every other component goes through it.
type Terminal interface {
	// Open establishes a session with the terminal. It performs a single
	// attempt; retry policy lives in the connection manager.
	Open(ctx context.Context, creds Credentials) error

	// Probe checks liveness of the current session. A non-nil error means the
	// session has dropped and must be re-established.
	Probe(ctx context.Context) error

	// Close releases the session. Idempotent.
	Close(ctx context.Context) error

	// SubmitOrder sends a normalized trading request. A returned error means
	// the request never reached a trade server verdict (transport, session);
	// a non-RetDone TradeResult means the broker refused it.
	SubmitOrder(ctx context.Context, req OrderRequest) (*TradeResult, error)

	// Positions returns all currently open positions.
	Positions(ctx context.Context) ([]PositionRecord, error)

	// PendingOrders returns all resting orders.
	PendingOrders(ctx context.Context) ([]PendingOrderRecord, error)
}
