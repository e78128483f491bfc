package binanceterm

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"mtgateway/internal/domain"
	"mtgateway/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Compile-time interface check.
var _ ports.Terminal = (*Client)(nil)

// Client implements the ports.Terminal interface against Binance USD-M
// futures using the go-binance library.
//
// Credential mapping: Login carries the API key, Password the secret key and
// Server selects the environment ("testnet" or anything else for production).
//
// Binance has no position tickets; positions are keyed by symbol and side.
// The adapter synthesizes a stable ticket from that pair so the facade's
// ticket-oriented contract holds within a session.
type Client struct {
	logger ports.Logger

	mu            sync.Mutex
	futuresClient *futures.Client // nil while no session is open
}

// Config holds configuration specific to the Binance terminal adapter.
type Config struct {
	Logger ports.Logger
}

// New creates a new Binance terminal adapter. The session itself is opened
// later through Open; construction never touches the network.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance terminal adapter")
	}
	return &Client{logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -2014, -2015: // API-key format invalid / invalid key, IP or permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrTradeRejected
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrTradeRejected
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2019, -3005, -3041, -4047: // Margin/balance insufficient
			mappedErr = ports.ErrInsufficientFunds
		case -4003: // Qty not within permissible range
			mappedErr = ports.ErrInvalidRequest
		case -4014: // Price not within permissible range
			mappedErr = ports.ErrInvalidRequest
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// session returns the current futures client or a not-connected error.
func (c *Client) session() (*futures.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.futuresClient == nil {
		return nil, fmt.Errorf("binance terminal: %w", ports.ErrNotConnected)
	}
	return c.futuresClient, nil
}

// Open establishes a session: builds the REST client, synchronizes server
// time and verifies the credentials with an authenticated account call.
func (c *Client) Open(ctx context.Context, creds ports.Credentials) error {
	op := "Open"
	if creds.Login == "" || creds.Password == "" {
		return fmt.Errorf("%s failed: %w: empty API key pair", op, ports.ErrAuthenticationFailed)
	}

	client := futures.NewClient(creds.Login, creds.Password)
	if strings.EqualFold(creds.Server, "testnet") {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	c.logger.Info(ctx, "Binance terminal adapter configured", map[string]interface{}{"baseURL": client.BaseURL})

	if _, err := client.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}

	// Authenticated call so bad credentials surface here, not on the first trade.
	if _, err := client.NewGetAccountService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}

	c.mu.Lock()
	c.futuresClient = client
	c.mu.Unlock()
	c.logger.Info(ctx, op+" successful")
	return nil
}

// Probe checks connectivity of the current session.
func (c *Client) Probe(ctx context.Context) error {
	op := "Probe"
	client, err := c.session()
	if err != nil {
		return err
	}
	if err := client.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// Close releases the session. The REST client holds no persistent socket, so
// dropping the reference is sufficient.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.futuresClient = nil
	c.mu.Unlock()
	c.logger.Info(ctx, "Binance terminal session released")
	return nil
}

// SubmitOrder maps a normalized request onto the Binance futures order API.
func (c *Client) SubmitOrder(ctx context.Context, req ports.OrderRequest) (*ports.TradeResult, error) {
	client, err := c.session()
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case domain.MarketOrder:
		return c.placeMarketOrder(ctx, client, req)
	case domain.PlacePendingOrder:
		return c.placePendingOrder(ctx, client, req)
	case domain.ModifyPosition:
		return c.modifyPosition(ctx, client, req)
	case domain.ModifyPendingOrder:
		return c.modifyPendingOrder(ctx, client, req)
	case domain.ClosePosition:
		return c.closePosition(ctx, client, req)
	case domain.CancelPendingOrder:
		return c.cancelPendingOrder(ctx, client, req)
	default:
		return nil, fmt.Errorf("submit order: %w: unsupported kind %q", ports.ErrInvalidRequest, req.Kind)
	}
}

func (c *Client) placeMarketOrder(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "PlaceMarketOrder"
	order, err := client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(toBinanceSide(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatQuantity(req.Volume)).
		NewClientOrderID(req.ClientID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	// Protective close orders mirror the requested SL/TP levels. Failures
	// here leave the position open without protection, which the caller must
	// know about, so they surface as errors.
	if req.StopLoss > 0 {
		if err := c.placeProtective(ctx, client, req.Symbol, opposite(req.Side), futures.OrderTypeStopMarket, req.StopLoss); err != nil {
			return nil, err
		}
	}
	if req.TakeProfit > 0 {
		if err := c.placeProtective(ctx, client, req.Symbol, opposite(req.Side), futures.OrderTypeTakeProfitMarket, req.TakeProfit); err != nil {
			return nil, err
		}
	}

	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": req.Symbol, "side": req.Side, "volume": req.Volume, "orderID": order.OrderID,
	})
	return &ports.TradeResult{
		RetCode: ports.RetDone,
		Ticket:  positionTicket(req.Symbol, req.Side),
		Volume:  execQty,
		Price:   avgPrice,
		Comment: string(order.Status),
	}, nil
}

func (c *Client) placePendingOrder(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "PlacePendingOrder"
	order, err := client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(toBinanceSide(req.Side)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Quantity(formatQuantity(req.Volume)).
		Price(formatPrice(req.Price)).
		NewClientOrderID(req.ClientID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": req.Symbol, "side": req.Side, "price": req.Price, "orderID": order.OrderID,
	})
	return &ports.TradeResult{
		RetCode: ports.RetDone,
		Ticket:  order.OrderID,
		Volume:  req.Volume,
		Price:   req.Price,
		Comment: string(order.Status),
	}, nil
}

// modifyPosition replaces the protective close orders for the position's
// symbol with orders at the new SL/TP levels.
func (c *Client) modifyPosition(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "ModifyPosition"
	rec, err := c.findPosition(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	open, err := client.NewListOpenOrdersService().Symbol(rec.Symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	for _, o := range open {
		if o.ClosePosition && (o.Type == futures.OrderTypeStopMarket || o.Type == futures.OrderTypeTakeProfitMarket) {
			if _, err := client.NewCancelOrderService().Symbol(rec.Symbol).OrderID(o.OrderID).Do(ctx); err != nil {
				return nil, c.handleError(ctx, err, op)
			}
		}
	}

	if req.StopLoss > 0 {
		if err := c.placeProtective(ctx, client, rec.Symbol, opposite(rec.Side), futures.OrderTypeStopMarket, req.StopLoss); err != nil {
			return nil, err
		}
	}
	if req.TakeProfit > 0 {
		if err := c.placeProtective(ctx, client, rec.Symbol, opposite(rec.Side), futures.OrderTypeTakeProfitMarket, req.TakeProfit); err != nil {
			return nil, err
		}
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": rec.Symbol, "stopLoss": req.StopLoss, "takeProfit": req.TakeProfit,
	})
	return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID, Volume: rec.Volume}, nil
}

// modifyPendingOrder is a cancel-and-replace: Binance futures has no in-place
// order amendment on this endpoint, so a new ticket is returned.
func (c *Client) modifyPendingOrder(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "ModifyPendingOrder"
	prev, err := c.findOrder(ctx, client, req.TargetID)
	if err != nil {
		return nil, err
	}
	if _, err := client.NewCancelOrderService().Symbol(prev.Symbol).OrderID(prev.OrderID).Do(ctx); err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	volume := req.Volume
	if volume <= 0 {
		volume, _ = strconv.ParseFloat(prev.OrigQuantity, 64)
	}
	order, err := client.NewCreateOrderService().
		Symbol(prev.Symbol).
		Side(prev.Side).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Quantity(formatQuantity(volume)).
		Price(formatPrice(req.Price)).
		NewClientOrderID(req.ClientID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"previousOrderID": prev.OrderID, "orderID": order.OrderID, "price": req.Price,
	})
	return &ports.TradeResult{RetCode: ports.RetDone, Ticket: order.OrderID, Volume: volume, Price: req.Price}, nil
}

// closePosition flattens the position with a reduce-only market order on the
// opposite side.
func (c *Client) closePosition(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "ClosePosition"
	rec, err := c.findPosition(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	volume := req.Volume
	if volume <= 0 || volume > rec.Volume {
		volume = rec.Volume
	}

	order, err := client.NewCreateOrderService().
		Symbol(rec.Symbol).
		Side(toBinanceSide(opposite(rec.Side))).
		Type(futures.OrderTypeMarket).
		Quantity(formatQuantity(volume)).
		ReduceOnly(true).
		NewClientOrderID(req.ClientID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol": rec.Symbol, "volume": volume, "orderID": order.OrderID,
	})
	return &ports.TradeResult{RetCode: ports.RetDone, Ticket: req.TargetID, Volume: volume, Price: avgPrice}, nil
}

func (c *Client) cancelPendingOrder(ctx context.Context, client *futures.Client, req ports.OrderRequest) (*ports.TradeResult, error) {
	op := "CancelPendingOrder"
	symbol := req.Symbol
	if symbol == "" {
		prev, err := c.findOrder(ctx, client, req.TargetID)
		if err != nil {
			return nil, err
		}
		symbol = prev.Symbol
	}
	res, err := client.NewCancelOrderService().Symbol(symbol).OrderID(req.TargetID).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": res.OrderID})
	return &ports.TradeResult{RetCode: ports.RetDone, Ticket: res.OrderID, Comment: string(res.Status)}, nil
}

// placeProtective places a close-position stop or take-profit market order.
func (c *Client) placeProtective(ctx context.Context, client *futures.Client, symbol string, side domain.Side, orderType futures.OrderType, stopPrice float64) error {
	op := "PlaceProtectiveOrder"
	_, err := client.NewCreateOrderService().
		Symbol(symbol).
		Side(toBinanceSide(side)).
		Type(orderType).
		StopPrice(formatPrice(stopPrice)).
		ClosePosition(true).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{
		"symbol": symbol, "type": string(orderType), "stopPrice": stopPrice,
	})
	return nil
}

// Positions returns all open positions with synthesized tickets.
func (c *Client) Positions(ctx context.Context) ([]ports.PositionRecord, error) {
	op := "Positions"
	client, err := c.session()
	if err != nil {
		return nil, err
	}
	risks, err := client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]ports.PositionRecord, 0, len(risks))
	for _, r := range risks {
		rec, ok := translatePositionRisk(r)
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// PendingOrders returns all resting orders. Protective close orders belong to
// their position, not to the order book the facade exposes.
func (c *Client) PendingOrders(ctx context.Context) ([]ports.PendingOrderRecord, error) {
	op := "PendingOrders"
	client, err := c.session()
	if err != nil {
		return nil, err
	}
	orders, err := client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]ports.PendingOrderRecord, 0, len(orders))
	for _, o := range orders {
		if o.ClosePosition {
			continue
		}
		out = append(out, translateOpenOrder(o))
	}
	return out, nil
}

// findPosition resolves a synthesized position ticket back to its record.
func (c *Client) findPosition(ctx context.Context, ticket int64) (*ports.PositionRecord, error) {
	recs, err := c.Positions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].Ticket == ticket {
			return &recs[i], nil
		}
	}
	return nil, fmt.Errorf("find position %d: %w", ticket, ports.ErrPositionNotFound)
}

func (c *Client) findOrder(ctx context.Context, client *futures.Client, ticket int64) (*futures.Order, error) {
	op := "FindOrder"
	orders, err := client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	for _, o := range orders {
		if o.OrderID == ticket {
			return o, nil
		}
	}
	return nil, fmt.Errorf("find order %d: %w", ticket, ports.ErrOrderNotFound)
}

// --- Translation Helpers ---

func toBinanceSide(side domain.Side) futures.SideType {
	if side == domain.Sell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func opposite(side domain.Side) domain.Side {
	if side == domain.Buy {
		return domain.Sell
	}
	return domain.Buy
}

// positionTicket derives a stable per-session ticket for a symbol/side pair.
func positionTicket(symbol string, side domain.Side) int64 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(symbol)))
	h.Write([]byte(side))
	return int64(h.Sum32())
}

func translatePositionRisk(pos *futures.PositionRisk) (ports.PositionRecord, bool) {
	amt, _ := strconv.ParseFloat(pos.PositionAmt, 64)
	if amt == 0 {
		return ports.PositionRecord{}, false
	}
	entryPrice, _ := strconv.ParseFloat(pos.EntryPrice, 64)
	markPrice, _ := strconv.ParseFloat(pos.MarkPrice, 64)
	profit, _ := strconv.ParseFloat(pos.UnRealizedProfit, 64)

	side := domain.Buy
	volume := amt
	if amt < 0 {
		side = domain.Sell
		volume = -amt
	}
	return ports.PositionRecord{
		Ticket:       positionTicket(pos.Symbol, side),
		Symbol:       pos.Symbol,
		Side:         side,
		Volume:       volume,
		OpenPrice:    entryPrice,
		CurrentPrice: markPrice,
		Profit:       profit,
		UpdatedAt:    time.Now().UTC(),
	}, true
}

func translateOpenOrder(o *futures.Order) ports.PendingOrderRecord {
	price, _ := strconv.ParseFloat(o.Price, 64)
	qty, _ := strconv.ParseFloat(o.OrigQuantity, 64)
	stopPrice, _ := strconv.ParseFloat(o.StopPrice, 64)

	side := domain.Buy
	if o.Side == futures.SideTypeSell {
		side = domain.Sell
	}
	rec := ports.PendingOrderRecord{
		Ticket:   o.OrderID,
		Symbol:   o.Symbol,
		Side:     side,
		Volume:   qty,
		Price:    price,
		PlacedAt: time.UnixMilli(o.Time),
	}
	if price == 0 {
		rec.Price = stopPrice
	}
	return rec
}

// formatPrice formats a price for the Binance API.
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// formatQuantity formats a quantity for the Binance API.
func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}
