package trading

import (
	"context"
	"fmt"

	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

// Bulk composes the query components with the order gateway to apply one
// mutation to a filtered set of positions or orders. Members execute
// sequentially, in enumeration order, and a member failure never aborts the
// batch: the aggregate reports per-target outcomes and fails iff any member
// failed.
type Bulk struct {
	positions *PositionQuery
	orders    *PendingOrderQuery
	gateway   *Gateway
	logger    ports.Logger
}

// NewBulk creates the bulk coordinator.
func NewBulk(positions *PositionQuery, orders *PendingOrderQuery, gateway *Gateway, logger ports.Logger) (*Bulk, error) {
	if positions == nil || orders == nil || gateway == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for bulk coordinator")
	}
	return &Bulk{positions: positions, orders: orders, gateway: gateway, logger: logger}, nil
}

// CloseAllPositions closes every open position.
func (b *Bulk) CloseAllPositions(ctx context.Context) domain.Result {
	targets, err := b.positions.All(ctx)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.closePositions(ctx, targets)
}

// CloseAllPositionsBySymbol closes every open position for one symbol.
func (b *Bulk) CloseAllPositionsBySymbol(ctx context.Context, symbol string) domain.Result {
	targets, err := b.positions.BySymbol(ctx, symbol)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.closePositions(ctx, targets)
}

// CloseAllProfitablePositions closes every position with profit > 0.
func (b *Bulk) CloseAllProfitablePositions(ctx context.Context) domain.Result {
	targets, err := b.positions.All(ctx)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.closePositions(ctx, filterPositions(targets, func(p domain.Position) bool { return p.Profit > 0 }))
}

// CloseAllLosingPositions closes every position with profit < 0.
func (b *Bulk) CloseAllLosingPositions(ctx context.Context) domain.Result {
	targets, err := b.positions.All(ctx)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.closePositions(ctx, filterPositions(targets, func(p domain.Position) bool { return p.Profit < 0 }))
}

// CancelAllPendingOrders cancels every resting order.
func (b *Bulk) CancelAllPendingOrders(ctx context.Context) domain.Result {
	targets, err := b.orders.All(ctx)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.cancelOrders(ctx, targets)
}

// CancelAllPendingOrdersBySymbol cancels every resting order for one symbol.
func (b *Bulk) CancelAllPendingOrdersBySymbol(ctx context.Context, symbol string) domain.Result {
	targets, err := b.orders.BySymbol(ctx, symbol)
	if err != nil {
		return domain.Fail("%s", err)
	}
	return b.cancelOrders(ctx, targets)
}

func (b *Bulk) closePositions(ctx context.Context, targets []domain.Position) domain.Result {
	items := make([]domain.ItemOutcome, 0, len(targets))
	for _, pos := range targets {
		res := b.gateway.Execute(ctx, domain.TradeIntent{
			Kind:     domain.ClosePosition,
			Symbol:   pos.Symbol,
			Side:     string(pos.Side),
			Volume:   pos.Volume,
			TargetID: pos.Ticket,
		})
		if res.Error {
			b.logger.Warn(ctx, "Bulk close member failed", map[string]interface{}{
				"ticket": pos.Ticket,
				"error":  res.Message,
			})
		}
		items = append(items, domain.ItemOutcome{TargetID: pos.Ticket, Error: res.Error, Message: res.Message})
	}
	return domain.BulkOutcome(items, "closed")
}

func (b *Bulk) cancelOrders(ctx context.Context, targets []domain.PendingOrder) domain.Result {
	items := make([]domain.ItemOutcome, 0, len(targets))
	for _, ord := range targets {
		res := b.gateway.Execute(ctx, domain.TradeIntent{
			Kind:     domain.CancelPendingOrder,
			Symbol:   ord.Symbol,
			Side:     string(ord.Side),
			TargetID: ord.Ticket,
		})
		if res.Error {
			b.logger.Warn(ctx, "Bulk cancel member failed", map[string]interface{}{
				"ticket": ord.Ticket,
				"error":  res.Message,
			})
		}
		items = append(items, domain.ItemOutcome{TargetID: ord.Ticket, Error: res.Error, Message: res.Message})
	}
	return domain.BulkOutcome(items, "cancelled")
}

func filterPositions(in []domain.Position, keep func(domain.Position) bool) []domain.Position {
	out := make([]domain.Position, 0, len(in))
	for _, p := range in {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
