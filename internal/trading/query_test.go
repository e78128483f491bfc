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

func newPositionQuery(t *testing.T, term *simterminal.Terminal) (*PositionQuery, *connection.Manager) {
	t.Helper()
	conn := newTestManager(t, term)
	q, err := NewPositionQuery(conn, term)
	require.NoError(t, err)
	return q, conn
}

func newPendingOrderQuery(t *testing.T, term *simterminal.Terminal) (*PendingOrderQuery, *connection.Manager) {
	t.Helper()
	conn := newTestManager(t, term)
	q, err := NewPendingOrderQuery(conn, term)
	require.NoError(t, err)
	return q, conn
}

func seedThreePositions(term *simterminal.Terminal) {
	term.SeedPosition(ports.PositionRecord{Ticket: 1, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1, Profit: 12.5})
	term.SeedPosition(ports.PositionRecord{Ticket: 2, Symbol: "USDJPY", Side: domain.Sell, Volume: 0.2, Profit: -3.0})
	term.SeedPosition(ports.PositionRecord{Ticket: 3, Symbol: "GBPNZD", Side: domain.Buy, Volume: 0.3, Profit: 0})
}

func TestPositionQuery_All(t *testing.T) {
	term := simterminal.New()
	seedThreePositions(term)
	q, conn := newPositionQuery(t, term)
	connect(t, conn)

	got, err := q.All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Deterministic enumeration order.
	assert.Equal(t, int64(1), got[0].Ticket)
	assert.Equal(t, int64(2), got[1].Ticket)
	assert.Equal(t, int64(3), got[2].Ticket)
}

func TestPositionQuery_BySymbolCaseInsensitive(t *testing.T) {
	term := simterminal.New()
	seedThreePositions(term)
	q, conn := newPositionQuery(t, term)
	connect(t, conn)

	got, err := q.BySymbol(context.Background(), "eurusd")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EURUSD", got[0].Symbol)
	assert.Equal(t, domain.Buy, got[0].Side)
}

func TestPositionQuery_ByCurrencyLegMatch(t *testing.T) {
	term := simterminal.New()
	seedThreePositions(term)
	q, conn := newPositionQuery(t, term)
	connect(t, conn)

	got, err := q.ByCurrency(context.Background(), "usd")
	require.NoError(t, err)
	require.Len(t, got, 2) // EURUSD and USDJPY, not GBPNZD

	got, err = q.ByCurrency(context.Background(), "NZD")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GBPNZD", got[0].Symbol)
}

func TestPositionQuery_ByID(t *testing.T) {
	term := simterminal.New()
	seedThreePositions(term)
	q, conn := newPositionQuery(t, term)
	connect(t, conn)

	got, err := q.ByID(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "USDJPY", got[0].Symbol)

	// Unknown ticket is an empty result, not an error.
	got, err = q.ByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPositionQuery_EmptyTerminalIsNotAnError(t *testing.T) {
	term := simterminal.New()
	q, conn := newPositionQuery(t, term)
	connect(t, conn)

	got, err := q.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPositionQuery_RequiresConnection(t *testing.T) {
	term := simterminal.New()
	q, _ := newPositionQuery(t, term)

	_, err := q.All(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection:")
}

func TestPendingOrderQuery_Filters(t *testing.T) {
	term := simterminal.New()
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 11, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1, Price: 1.05})
	term.SeedOrder(ports.PendingOrderRecord{Ticket: 12, Symbol: "AUDCAD", Side: domain.Sell, Volume: 0.2, Price: 0.9})
	q, conn := newPendingOrderQuery(t, term)
	connect(t, conn)

	all, err := q.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySym, err := q.BySymbol(context.Background(), "AudCad")
	require.NoError(t, err)
	require.Len(t, bySym, 1)
	assert.Equal(t, int64(12), bySym[0].Ticket)

	byCur, err := q.ByCurrency(context.Background(), "EUR")
	require.NoError(t, err)
	require.Len(t, byCur, 1)
	assert.Equal(t, int64(11), byCur[0].Ticket)

	byID, err := q.ByID(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "AUDCAD", byID[0].Symbol)
}
