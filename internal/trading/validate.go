package trading

import (
	"fmt"

	"mtgateway/internal/domain"
)

// validateIntent runs the per-kind validation rules and returns the intent
// with its side normalized. Violations short-circuit dispatch: the gateway
// returns the error as a validation failure without any terminal call.
func validateIntent(intent domain.TradeIntent) (domain.TradeIntent, error) {
	switch intent.Kind {
	case domain.MarketOrder:
		return validateMarketOrder(intent)
	case domain.PlacePendingOrder:
		return validatePendingOrder(intent)
	case domain.ModifyPosition:
		return validateModifyPosition(intent)
	case domain.ModifyPendingOrder:
		return validateModifyPendingOrder(intent)
	case domain.ClosePosition, domain.CancelPendingOrder:
		return validateTargeted(intent)
	default:
		return intent, fmt.Errorf("kind: unsupported trade intent %q", intent.Kind)
	}
}

func validateMarketOrder(intent domain.TradeIntent) (domain.TradeIntent, error) {
	if err := requireSymbol(intent); err != nil {
		return intent, err
	}
	side, err := domain.NormalizeSide(intent.Side)
	if err != nil {
		return intent, err
	}
	intent.Side = string(side)
	if intent.Volume <= 0 {
		return intent, fmt.Errorf("volume: must be positive, got %v", intent.Volume)
	}
	// Market orders are unpriced by definition. A supplied price is ignored
	// rather than rejected (lenient-input policy).
	intent.Price = 0
	if err := checkStops(intent); err != nil {
		return intent, err
	}
	return intent, nil
}

func validatePendingOrder(intent domain.TradeIntent) (domain.TradeIntent, error) {
	if err := requireSymbol(intent); err != nil {
		return intent, err
	}
	side, err := domain.NormalizeSide(intent.Side)
	if err != nil {
		return intent, err
	}
	intent.Side = string(side)
	if intent.Volume <= 0 {
		return intent, fmt.Errorf("volume: must be positive, got %v", intent.Volume)
	}
	if intent.Price <= 0 {
		return intent, fmt.Errorf("price: required and must be positive for pending orders, got %v", intent.Price)
	}
	if err := checkStops(intent); err != nil {
		return intent, err
	}
	return intent, nil
}

func validateModifyPosition(intent domain.TradeIntent) (domain.TradeIntent, error) {
	if intent.TargetID <= 0 {
		return intent, fmt.Errorf("targetId: required and must be a positive ticket, got %d", intent.TargetID)
	}
	if err := checkStops(intent); err != nil {
		return intent, err
	}
	return intent, nil
}

func validateModifyPendingOrder(intent domain.TradeIntent) (domain.TradeIntent, error) {
	if intent.TargetID <= 0 {
		return intent, fmt.Errorf("targetId: required and must be a positive ticket, got %d", intent.TargetID)
	}
	if intent.Price <= 0 {
		return intent, fmt.Errorf("price: required and must be positive for pending order modification, got %v", intent.Price)
	}
	if err := checkStops(intent); err != nil {
		return intent, err
	}
	return intent, nil
}

func validateTargeted(intent domain.TradeIntent) (domain.TradeIntent, error) {
	if intent.TargetID <= 0 {
		return intent, fmt.Errorf("targetId: required and must be a positive ticket, got %d", intent.TargetID)
	}
	if intent.Volume < 0 {
		return intent, fmt.Errorf("volume: cannot be negative, got %v", intent.Volume)
	}
	return intent, nil
}

func requireSymbol(intent domain.TradeIntent) error {
	if intent.Symbol == "" {
		return fmt.Errorf("symbol: must not be empty")
	}
	return nil
}

// checkStops rejects negative stop levels only. No cross-check against the
// current price happens here; the terminal is authoritative and returns a
// domain error for nonsensical stops.
func checkStops(intent domain.TradeIntent) error {
	if intent.StopLoss < 0 {
		return fmt.Errorf("stopLoss: cannot be negative, got %v", intent.StopLoss)
	}
	if intent.TakeProfit < 0 {
		return fmt.Errorf("takeProfit: cannot be negative, got %v", intent.TakeProfit)
	}
	return nil
}
