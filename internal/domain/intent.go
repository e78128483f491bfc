package domain

import (
	"fmt"
	"strings"
)

// Side represents the direction of a trade (BUY or SELL).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// NormalizeSide maps loosely-typed caller input ("buy", "Sell", ...) onto the
// canonical Side constants. Anything else is rejected.
func NormalizeSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Buy):
		return Buy, nil
	case string(Sell):
		return Sell, nil
	default:
		return "", fmt.Errorf("side must be BUY or SELL, got %q", s)
	}
}

// IntentKind enumerates the supported trading mutations.
type IntentKind string

const (
	MarketOrder        IntentKind = "MARKET_ORDER"
	PlacePendingOrder  IntentKind = "PENDING_ORDER"
	ModifyPosition     IntentKind = "MODIFY_POSITION"
	ModifyPendingOrder IntentKind = "MODIFY_PENDING_ORDER"
	ClosePosition      IntentKind = "CLOSE_POSITION"
	CancelPendingOrder IntentKind = "CANCEL_PENDING_ORDER"
)

// TradeIntent is the normalized description of a requested mutation. It is
// created per call and never persisted.
type TradeIntent struct {
	Kind   IntentKind
	Symbol string
	Side   string  // raw caller input, normalized during validation
	Volume float64 // lot units, must be positive for order-creating kinds

	// Price is required for PendingOrder/ModifyPendingOrder. Market orders are
	// unpriced by definition; a supplied price is ignored there, not an error.
	Price float64

	StopLoss   float64
	TakeProfit float64

	// TargetID is the terminal ticket for Modify/Close/Cancel kinds.
	TargetID int64
}
