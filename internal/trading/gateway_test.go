package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtgateway/internal/adapters/simterminal"
	"mtgateway/internal/connection"
	"mtgateway/internal/domain"
	"mtgateway/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockJournal struct {
	entries []*domain.JournalEntry
	err     error
}

func (m *mockJournal) Record(ctx context.Context, entry *domain.JournalEntry) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, entry)
	return int64(len(m.entries)), nil
}

func (m *mockJournal) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	return m.entries, nil
}

func (m *mockJournal) CountToday(ctx context.Context) (int, error) {
	return len(m.entries), nil
}

// newTestManager builds a connection manager with a tight retry policy.
func newTestManager(t *testing.T, term *simterminal.Terminal) *connection.Manager {
	t.Helper()
	m, err := connection.New(connection.Config{
		Terminal:   term,
		Logger:     &mockLogger{},
		MaxRetries: 2,
		Cooldown:   time.Millisecond,
	})
	require.NoError(t, err)
	return m
}

func newTestGateway(t *testing.T, term *simterminal.Terminal, journal ports.TradeJournal) (*Gateway, *connection.Manager) {
	t.Helper()
	conn := newTestManager(t, term)
	g, err := NewGateway(GatewayConfig{Conn: conn, Terminal: term, Journal: journal, Logger: &mockLogger{}})
	require.NoError(t, err)
	return g, conn
}

func connect(t *testing.T, conn *connection.Manager) {
	t.Helper()
	res := conn.Connect(context.Background(), ports.Credentials{Login: "demo", Password: "demo"})
	require.False(t, res.Error, res.Message)
}

func TestExecute_ValidationShortCircuitsBeforeTerminal(t *testing.T) {
	term := simterminal.New()
	g, _ := newTestGateway(t, term, nil)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:   domain.MarketOrder,
		Symbol: "EURUSD",
		Side:   "buy",
		Volume: 0, // invalid
	})

	assert.True(t, res.Error)
	assert.Contains(t, res.Message, "validation:")
	assert.Contains(t, res.Message, "volume")
	assert.Nil(t, res.Data)
	// Nothing reached the connection manager or the terminal.
	assert.Equal(t, 0, term.OpenCalls())
	assert.Equal(t, 0, term.ProbeCalls())
	assert.Equal(t, 0, term.SubmitCalls())
}

func TestExecute_PropagatesConnectionFailureUnchanged(t *testing.T) {
	term := simterminal.New()
	g, _ := newTestGateway(t, term, nil)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:   domain.MarketOrder,
		Symbol: "EURUSD",
		Side:   "buy",
		Volume: 0.01,
	})

	assert.True(t, res.Error)
	assert.Contains(t, res.Message, "connection:")
	assert.Equal(t, 0, term.SubmitCalls())
}

func TestExecute_MarketOrderEchoesTicket(t *testing.T) {
	term := simterminal.New()
	term.SetQuote("EURUSD", 1.0850)
	g, conn := newTestGateway(t, term, nil)
	connect(t, conn)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:   domain.MarketOrder,
		Symbol: "EURUSD",
		Side:   "buy",
		Volume: 0.01,
	})

	require.False(t, res.Error, res.Message)
	data, ok := res.Data.(domain.TicketData)
	require.True(t, ok)
	assert.Equal(t, int64(1001), data.Ticket)
	assert.Equal(t, 1, term.SubmitCalls())
}

func TestExecute_ModificationEchoesUpdatedFields(t *testing.T) {
	term := simterminal.New()
	term.SeedPosition(ports.PositionRecord{Ticket: 7, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1})
	g, conn := newTestGateway(t, term, nil)
	connect(t, conn)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:       domain.ModifyPosition,
		TargetID:   7,
		StopLoss:   1.05,
		TakeProfit: 1.12,
	})

	require.False(t, res.Error, res.Message)
	data, ok := res.Data.(domain.ModifyData)
	require.True(t, ok)
	assert.Equal(t, int64(7), data.Ticket)
	assert.Equal(t, 1.05, data.StopLoss)
	assert.Equal(t, 1.12, data.TakeProfit)
}

func TestExecute_BrokerRefusalIsDomainError(t *testing.T) {
	term := simterminal.New()
	term.SeedPosition(ports.PositionRecord{Ticket: 9, Symbol: "EURUSD", Side: domain.Buy, Volume: 0.1})
	term.RejectTicket(9, ports.RetNoMoney)
	g, conn := newTestGateway(t, term, nil)
	connect(t, conn)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:     domain.ClosePosition,
		Symbol:   "EURUSD",
		TargetID: 9,
	})

	assert.True(t, res.Error)
	assert.Contains(t, res.Message, "domain:")
	assert.Contains(t, res.Message, "broker refused")
	assert.Contains(t, res.Message, "insufficient funds")
	// The refusal came back from the terminal, so the call was made.
	assert.Equal(t, 1, term.SubmitCalls())
}

func TestExecute_RecordsJournalEntry(t *testing.T) {
	term := simterminal.New()
	journal := &mockJournal{}
	g, conn := newTestGateway(t, term, journal)
	connect(t, conn)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:   domain.MarketOrder,
		Symbol: "EURUSD",
		Side:   "sell",
		Volume: 0.5,
	})
	require.False(t, res.Error, res.Message)

	require.Len(t, journal.entries, 1)
	entry := journal.entries[0]
	assert.Equal(t, domain.MarketOrder, entry.Kind)
	assert.Equal(t, "EURUSD", entry.Symbol)
	assert.Equal(t, domain.Sell, entry.Side)
	assert.True(t, entry.Success)
	assert.NotEmpty(t, entry.RequestID)
	assert.NotZero(t, entry.Ticket)
}

func TestExecute_JournalFailureDoesNotAffectOutcome(t *testing.T) {
	term := simterminal.New()
	journal := &mockJournal{err: ports.ErrUpdateFailed}
	g, conn := newTestGateway(t, term, journal)
	connect(t, conn)

	res := g.Execute(context.Background(), domain.TradeIntent{
		Kind:   domain.MarketOrder,
		Symbol: "EURUSD",
		Side:   "buy",
		Volume: 0.01,
	})

	assert.False(t, res.Error, res.Message)
}
