package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtgateway/internal/adapters/simterminal"
	"mtgateway/internal/connection"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

func newTestBulk(t *testing.T, term *simterminal.Terminal) (*Bulk, *connection.Manager) {
	t.Helper()
	conn := newTestManager(t, term)
	gw, err := NewGateway(GatewayConfig{Conn: conn, Terminal: term, Logger: &mockLogger{}})
	require.NoError(t, err)
	positions, err := NewPositionQuery(conn, term)
	require.NoError(t, err)
	orders, err := NewPendingOrderQuery(conn, term)
	require.NoError(t, err)
	b, err := NewBulk(positions, orders, gw, &mockLogger{})
	require.NoError(t, err)
	return b, conn
}

func TestCloseAllPositions_PartialFailure(t *testing.T) {
	term := simterminal.New()
	for i := int64(1); i <= 5; i++ {
		term.SeedPosition(ports.PositionRecord{Ticket: i, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1})
	}
	term.RejectTicket(2, ports.RetNoMoney)
	term.RejectTicket(4, ports.RetMarketClosed)
	b, conn := newTestBulk(t, term)
	connect(t, conn)

	res := b.CloseAllPositions(context.Background())

	assert.True(t, res.Error)
	assert.Equal(t, "bulk: 3 of 5 closed", res.Message)

	items, ok := res.Data.([]domain.ItemOutcome)
	require.True(t, ok)
	require.Len(t, items, 5)
	failed := 0
	for _, it := range items {
		if it.Error {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
	// Every member was attempted despite the failures in the middle.
	assert.Equal(t, 5, term.SubmitCalls())

	// The refused positions are still open.
	left, err := b.positions.All(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, int64(2), left[0].Ticket)
	assert.Equal(t, int64(4), left[1].Ticket)
}

func TestCloseAllPositions_EmptySetIsNotAnError(t *testing.T) {
	term := simterminal.New()
	b, conn := newTestBulk(t, term)
	connect(t, conn)

	res := b.CloseAllPositions(context.Background())

	assert.False(t, res.Error)
	assert.Equal(t, "bulk: 0 of 0 closed", res.Message)
}

func TestCloseAllPositionsBySymbol(t *testing.T) {
	term := simterminal.New()
	term.SeedPosition(ports.PositionRecord{Ticket: 1, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1})
	term.SeedPosition(ports.PositionRecord{Ticket: 2, Symbol: "USDJPY", Side: domain.Sell, Volume: 0.2})
	term.SeedPosition(ports.PositionRecord{Ticket: 3, Symbol: "EURUSD", Side: domain.Sell, Volume: 0.3})
	b, conn := newTestBulk(t, term)
	connect(t, conn)

	res := b.CloseAllPositionsBySymbol(context.Background(), "eurusd")

	require.False(t, res.Error, res.Message)
	assert.Equal(t, "bulk: 2 of 2 closed", res.Message)

	left, err := b.positions.All(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "USDJPY", left[0].Symbol)
}

func TestCloseAllProfitableAndLosingPositions(t *testing.T) {
	seed := func() *simterminal.Terminal {
		term := simterminal.New()
		term.SeedPosition(ports.PositionRecord{Ticket: 1, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1, Profit: 15.0})
		term.SeedPosition(ports.PositionRecord{Ticket: 2, Symbol: "USDJPY", Side: domain.Sell, Volume: 0.1, Profit: -8.0})
		term.SeedPosition(ports.PositionRecord{Ticket: 3, Symbol: "GBPUSD", Side: domain.Buy, Volume: 0.1, Profit: 0})
		return term
	}

	t.Run("profitable only", func(t *testing.T) {
		term := seed()
		b, conn := newTestBulk(t, term)
		connect(t, conn)

		res := b.CloseAllProfitablePositions(context.Background())

		require.False(t, res.Error, res.Message)
		assert.Equal(t, "bulk: 1 of 1 closed", res.Message)
		left, err := b.positions.All(context.Background())
		require.NoError(t, err)
		require.Len(t, left, 2) // the loser and the flat position remain
	})

	t.Run("losing only", func(t *testing.T) {
		term := seed()
		b, conn := newTestBulk(t, term)
		connect(t, conn)

		res := b.CloseAllLosingPositions(context.Background())

		require.False(t, res.Error, res.Message)
		assert.Equal(t, "bulk: 1 of 1 closed", res.Message)
		left, err := b.positions.All(context.Background())
		require.NoError(t, err)
		require.Len(t, left, 2)
		// Break-even positions are touched by neither filter.
		assert.Equal(t, int64(1), left[0].Ticket)
		assert.Equal(t, int64(3), left[1].Ticket)
	})
}

func TestCancelAllPendingOrders(t *testing.T) {
	term := simterminal.New()
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 11, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1, Price: 1.05})
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 12, Symbol: "AUDCAD", Side: domain.Sell, Volume: 0.2, Price: 0.9})
	term.RejectTicket(12, ports.RetRejected)
	b, conn := newTestBulk(t, term)
	connect(t, conn)

	res := b.CancelAllPendingOrders(context.Background())

	assert.True(t, res.Error)
	assert.Equal(t, "bulk: 1 of 2 cancelled", res.Message)

	left, err := b.orders.All(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, int64(12), left[0].Ticket)
}

func TestCancelAllPendingOrdersBySymbol(t *testing.T) {
	term := simterminal.New()
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 11, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1, Price: 1.05})
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 12, Symbol: "AUDCAD", Side: domain.Sell, Volume: 0.2, Price: 0.9})
	b, conn := newTestBulk(t, term)
	connect(t, conn)

	res := b.CancelAllPendingOrdersBySymbol(context.Background(), "AUDCAD")

	require.False(t, res.Error, res.Message)
	assert.Equal(t, "bulk: 1 of 1 cancelled", res.Message)

	left, err := b.orders.All(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "EURUSD", left[0].Symbol)
}

func TestBulk_ConnectionFailurePropagates(t *testing.T) {
	term := simterminal.New()
	b, _ := newTestBulk(t, term)

	res := b.CloseAllPositions(context.Background())

	assert.True(t, res.Error)
	assert.Contains(t, res.Message, "connection:")
	assert.Equal(t, 0, term.SubmitCalls())
}
