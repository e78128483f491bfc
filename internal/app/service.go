package app

import (
	"context"
	"fmt"

	"mtgateway/config"
	"mtgateway/internal/connection"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
	"mtgateway/internal/trading"
)

// Service is the exposed surface of the terminal facade. Adapters (REST
// handlers, tool-call handlers) call these operations and serialize the
// returned Result/BulkResult into their own wire formats; no transport
// concern lives here.
type Service struct {
	cfg       *config.Config
	logger    ports.Logger
	conn      *connection.Manager
	gateway   *trading.Gateway
	positions *trading.PositionQuery
	orders    *trading.PendingOrderQuery
	bulk      *trading.Bulk
}

// NewService wires the core components around one terminal and one optional
// journal.
func NewService(cfg *config.Config, logger ports.Logger, terminal ports.Terminal, journal ports.TradeJournal) (*Service, error) {
	if cfg == nil || logger == nil || terminal == nil {
		return nil, fmt.Errorf("missing required dependencies for service")
	}

	conn, err := connection.New(connection.Config{
		Terminal:      terminal,
		Logger:        logger,
		MaxRetries:    cfg.MaxRetries,
		Cooldown:      cfg.Cooldown,
		BackoffFactor: cfg.BackoffFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build connection manager: %w", err)
	}
	gateway, err := trading.NewGateway(trading.GatewayConfig{
		Conn:     conn,
		Terminal: terminal,
		Journal:  journal,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build order gateway: %w", err)
	}
	positions, err := trading.NewPositionQuery(conn, terminal)
	if err != nil {
		return nil, fmt.Errorf("failed to build position query: %w", err)
	}
	orders, err := trading.NewPendingOrderQuery(conn, terminal)
	if err != nil {
		return nil, fmt.Errorf("failed to build pending order query: %w", err)
	}
	bulk, err := trading.NewBulk(positions, orders, gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk coordinator: %w", err)
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		conn:      conn,
		gateway:   gateway,
		positions: positions,
		orders:    orders,
		bulk:      bulk,
	}, nil
}

// --- Connection lifecycle ---

// Connect opens the terminal session with the configured credentials.
func (s *Service) Connect(ctx context.Context) domain.Result {
	return s.conn.Connect(ctx, ports.Credentials{
		Login:    s.cfg.Login,
		Password: s.cfg.Password,
		Server:   s.cfg.Server,
	})
}

// Disconnect releases the terminal session. Idempotent.
func (s *Service) Disconnect(ctx context.Context) domain.Result {
	s.conn.Disconnect(ctx)
	return domain.OK("connection: released", nil)
}

// IsConnected reports the session state without touching the terminal.
func (s *Service) IsConnected() bool {
	return s.conn.IsConnected()
}

// --- Single-intent mutations ---

// PlaceMarketOrder opens a position at the current market price.
func (s *Service) PlaceMarketOrder(ctx context.Context, symbol, side string, volume, stopLoss, takeProfit float64) domain.Result {
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:       domain.MarketOrder,
		Symbol:     symbol,
		Side:       side,
		Volume:     volume,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// PlacePendingOrder places a resting order at the given price condition.
func (s *Service) PlacePendingOrder(ctx context.Context, symbol, side string, volume, price, stopLoss, takeProfit float64) domain.Result {
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:       domain.PlacePendingOrder,
		Symbol:     symbol,
		Side:       side,
		Volume:     volume,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// ModifyPosition updates the stop loss / take profit of an open position.
func (s *Service) ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) domain.Result {
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:       domain.ModifyPosition,
		TargetID:   ticket,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// ModifyPendingOrder updates the price and stops of a resting order.
func (s *Service) ModifyPendingOrder(ctx context.Context, ticket int64, price, stopLoss, takeProfit float64) domain.Result {
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:       domain.ModifyPendingOrder,
		TargetID:   ticket,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// ClosePosition flattens one open position by ticket. The target is resolved
// first so the intent carries its symbol, side and volume.
func (s *Service) ClosePosition(ctx context.Context, ticket int64) domain.Result {
	if ticket <= 0 {
		return domain.Fail("validation: targetId: required and must be a positive ticket, got %d", ticket)
	}
	matches, err := s.positions.ByID(ctx, ticket)
	if err != nil {
		return domain.Fail("%s", err)
	}
	if len(matches) == 0 {
		return domain.Fail("domain: position %d not found", ticket)
	}
	pos := matches[0]
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:     domain.ClosePosition,
		Symbol:   pos.Symbol,
		Side:     string(pos.Side),
		Volume:   pos.Volume,
		TargetID: pos.Ticket,
	})
}

// CancelPendingOrder removes one resting order by ticket.
func (s *Service) CancelPendingOrder(ctx context.Context, ticket int64) domain.Result {
	if ticket <= 0 {
		return domain.Fail("validation: targetId: required and must be a positive ticket, got %d", ticket)
	}
	matches, err := s.orders.ByID(ctx, ticket)
	if err != nil {
		return domain.Fail("%s", err)
	}
	if len(matches) == 0 {
		return domain.Fail("domain: pending order %d not found", ticket)
	}
	ord := matches[0]
	return s.gateway.Execute(ctx, domain.TradeIntent{
		Kind:     domain.CancelPendingOrder,
		Symbol:   ord.Symbol,
		Side:     string(ord.Side),
		TargetID: ord.Ticket,
	})
}

// --- Queries ---

// GetPositions returns all open positions.
func (s *Service) GetPositions(ctx context.Context) domain.Result {
	return wrapPositions(s.positions.All(ctx))
}

// GetPositionsBySymbol returns open positions for one symbol.
func (s *Service) GetPositionsBySymbol(ctx context.Context, symbol string) domain.Result {
	return wrapPositions(s.positions.BySymbol(ctx, symbol))
}

// GetPositionsByCurrency returns open positions whose symbol contains the
// currency leg.
func (s *Service) GetPositionsByCurrency(ctx context.Context, currency string) domain.Result {
	return wrapPositions(s.positions.ByCurrency(ctx, currency))
}

// GetPositionByID returns the position with the given ticket.
func (s *Service) GetPositionByID(ctx context.Context, ticket int64) domain.Result {
	return wrapPositions(s.positions.ByID(ctx, ticket))
}

// GetPendingOrders returns all resting orders.
func (s *Service) GetPendingOrders(ctx context.Context) domain.Result {
	return wrapPendingOrders(s.orders.All(ctx))
}

// GetPendingOrdersBySymbol returns resting orders for one symbol.
func (s *Service) GetPendingOrdersBySymbol(ctx context.Context, symbol string) domain.Result {
	return wrapPendingOrders(s.orders.BySymbol(ctx, symbol))
}

// GetPendingOrderByID returns the resting order with the given ticket.
func (s *Service) GetPendingOrderByID(ctx context.Context, ticket int64) domain.Result {
	return wrapPendingOrders(s.orders.ByID(ctx, ticket))
}

// --- Bulk operations ---

// CloseAllPositions closes every open position.
func (s *Service) CloseAllPositions(ctx context.Context) domain.Result {
	return s.bulk.CloseAllPositions(ctx)
}

// CloseAllPositionsBySymbol closes every open position for one symbol.
func (s *Service) CloseAllPositionsBySymbol(ctx context.Context, symbol string) domain.Result {
	return s.bulk.CloseAllPositionsBySymbol(ctx, symbol)
}

// CloseAllProfitablePositions closes every position currently in profit.
func (s *Service) CloseAllProfitablePositions(ctx context.Context) domain.Result {
	return s.bulk.CloseAllProfitablePositions(ctx)
}

// CloseAllLosingPositions closes every position currently at a loss.
func (s *Service) CloseAllLosingPositions(ctx context.Context) domain.Result {
	return s.bulk.CloseAllLosingPositions(ctx)
}

// CancelAllPendingOrders cancels every resting order.
func (s *Service) CancelAllPendingOrders(ctx context.Context) domain.Result {
	return s.bulk.CancelAllPendingOrders(ctx)
}

// CancelAllPendingOrdersBySymbol cancels every resting order for one symbol.
func (s *Service) CancelAllPendingOrdersBySymbol(ctx context.Context, symbol string) domain.Result {
	return s.bulk.CancelAllPendingOrdersBySymbol(ctx, symbol)
}

func wrapPositions(positions []domain.Position, err error) domain.Result {
	if err != nil {
		return domain.Fail("%s", err)
	}
	return domain.OK(fmt.Sprintf("%d position(s)", len(positions)), positions)
}

func wrapPendingOrders(orders []domain.PendingOrder, err error) domain.Result {
	if err != nil {
		return domain.Fail("%s", err)
	}
	return domain.OK(fmt.Sprintf("%d pending order(s)", len(orders)), orders)
}
