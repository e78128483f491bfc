package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtgateway/internal/domain"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewJournal(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestNewJournal_RequiresLogger(t *testing.T) {
	_, err := NewJournal(Config{DBPath: filepath.Join(t.TempDir(), "journal.db")})
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	first := &domain.JournalEntry{
		RequestID: "req-1",
		Kind:      domain.MarketOrder,
		Symbol:    "EURUSD",
		Side:      domain.Buy,
		Volume:    0.1,
		Ticket:    1001,
		Success:   true,
		Message:   "domain: order placed",
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	second := &domain.JournalEntry{
		RequestID: "req-2",
		Kind:      domain.ClosePosition,
		Symbol:    "EURUSD",
		Side:      domain.Sell,
		Volume:    0.1,
		Ticket:    1001,
		Success:   false,
		Message:   "domain: broker refused request",
	}

	id, err := j.Record(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, first.ID)

	_, err = j.Record(ctx, second)
	require.NoError(t, err)
	// CreatedAt was defaulted on insert.

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "req-2", entries[0].RequestID)
	assert.Equal(t, domain.ClosePosition, entries[0].Kind)
	assert.False(t, entries[0].Success)
	assert.False(t, entries[0].CreatedAt.IsZero())

	assert.Equal(t, "req-1", entries[1].RequestID)
	assert.Equal(t, domain.Buy, entries[1].Side)
	assert.Equal(t, int64(1001), entries[1].Ticket)
	assert.True(t, entries[1].Success)
}

func TestRecent_RespectsLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := j.Record(ctx, &domain.JournalEntry{
			RequestID: "req",
			Kind:      domain.MarketOrder,
			Symbol:    "EURUSD",
			Side:      domain.Buy,
			Success:   true,
		})
		require.NoError(t, err)
	}

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Non-positive limit falls back to the default.
	entries, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestRecord_RejectsNilEntry(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Record(context.Background(), nil)
	assert.Error(t, err)
}

func TestCountToday(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	count, err := j.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = j.Record(ctx, &domain.JournalEntry{
		RequestID: "req-old",
		Kind:      domain.MarketOrder,
		Symbol:    "EURUSD",
		Side:      domain.Buy,
		Success:   true,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = j.Record(ctx, &domain.JournalEntry{
		RequestID: "req-now",
		Kind:      domain.MarketOrder,
		Symbol:    "EURUSD",
		Side:      domain.Buy,
		Success:   true,
	})
	require.NoError(t, err)

	count, err = j.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
