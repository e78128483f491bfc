package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mtgateway/internal/connection"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"

	"github.com/google/uuid"
)

// Gateway accepts a single trading intent, validates it, dispatches it to the
// terminal through the connection manager and maps the heterogeneous native
// outcome into the uniform result contract.
//
// Resubmitting an already-filled market order is NOT idempotent: it opens a
// new position. That is a domain property of market execution, and deduping
// is a caller responsibility.
type Gateway struct {
	conn     *connection.Manager
	terminal ports.Terminal
	journal  ports.TradeJournal // optional, best-effort audit trail
	logger   ports.Logger
}

// GatewayConfig holds the gateway dependencies.
type GatewayConfig struct {
	Conn     *connection.Manager
	Terminal ports.Terminal
	Journal  ports.TradeJournal // may be nil
	Logger   ports.Logger
}

// NewGateway creates an order gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Conn == nil || cfg.Terminal == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for order gateway")
	}
	return &Gateway{
		conn:     cfg.Conn,
		terminal: cfg.Terminal,
		journal:  cfg.Journal,
		logger:   cfg.Logger,
	}, nil
}

// Execute validates and dispatches a trade intent. Every predictable failure
// path comes back as a Result; only truly unexpected faults (a panicking
// terminal adapter, say) escape the call.
func (g *Gateway) Execute(ctx context.Context, intent domain.TradeIntent) domain.Result {
	normalized, err := validateIntent(intent)
	if err != nil {
		g.logger.Debug(ctx, "Trade intent rejected by validation", map[string]interface{}{
			"kind":  string(intent.Kind),
			"error": err.Error(),
		})
		return domain.Fail("validation: %s", err)
	}

	if res := g.conn.EnsureConnected(ctx); res.Error {
		// Propagate unchanged so callers see one uniform failure shape
		// regardless of cause.
		return res
	}

	req := ports.OrderRequest{
		Kind:       normalized.Kind,
		Symbol:     normalized.Symbol,
		Side:       domain.Side(normalized.Side),
		Volume:     normalized.Volume,
		Price:      normalized.Price,
		StopLoss:   normalized.StopLoss,
		TakeProfit: normalized.TakeProfit,
		TargetID:   normalized.TargetID,
		ClientID:   uuid.NewString(),
	}

	trade, err := g.terminal.SubmitOrder(ctx, req)
	result := g.mapOutcome(req, trade, err)
	g.record(ctx, req, trade, result)
	return result
}

// mapOutcome turns the native submit outcome into the result contract.
// A transport/session error is a connection failure; a non-Done retcode is a
// broker refusal (domain error), surfaced verbatim and never retried here.
func (g *Gateway) mapOutcome(req ports.OrderRequest, trade *ports.TradeResult, err error) domain.Result {
	if err != nil {
		if errors.Is(err, ports.ErrNotConnected) ||
			errors.Is(err, ports.ErrConnectionFailed) ||
			errors.Is(err, ports.ErrTerminalUnavailable) ||
			errors.Is(err, ports.ErrTimeout) {
			return domain.Fail("connection: %s", err)
		}
		return domain.Fail("domain: %s", err)
	}
	if trade == nil {
		return domain.Fail("domain: terminal returned no trade result")
	}
	if trade.RetCode != ports.RetDone {
		msg := ports.RetCodeDescription(trade.RetCode)
		if trade.Comment != "" {
			msg = fmt.Sprintf("%s (%s)", msg, trade.Comment)
		}
		return domain.Fail("domain: broker refused request: %s [retcode %d]", msg, trade.RetCode)
	}

	switch req.Kind {
	case domain.ModifyPosition, domain.ModifyPendingOrder:
		return domain.OK("request completed", domain.ModifyData{
			Ticket:     trade.Ticket,
			Price:      req.Price,
			StopLoss:   req.StopLoss,
			TakeProfit: req.TakeProfit,
		})
	default:
		return domain.OK("request completed", domain.TicketData{Ticket: trade.Ticket})
	}
}

// record appends the dispatch to the journal. Journal failures never affect
// the trade outcome, they are only logged.
func (g *Gateway) record(ctx context.Context, req ports.OrderRequest, trade *ports.TradeResult, result domain.Result) {
	if g.journal == nil {
		return
	}
	entry := &domain.JournalEntry{
		RequestID: req.ClientID,
		Kind:      req.Kind,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Volume:    req.Volume,
		Price:     req.Price,
		Success:   !result.Error,
		Message:   result.Message,
		CreatedAt: time.Now().UTC(),
	}
	if trade != nil {
		entry.Ticket = trade.Ticket
	}
	if _, err := g.journal.Record(ctx, entry); err != nil {
		g.logger.Warn(ctx, "Failed to journal trade dispatch", map[string]interface{}{
			"requestID": req.ClientID,
			"error":     err.Error(),
		})
	}
}
