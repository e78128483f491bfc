package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtgateway/internal/domain"
)

func TestValidateMarketOrder(t *testing.T) {
	base := domain.TradeIntent{Kind: domain.MarketOrder, Symbol: "EURUSD", Side: "buy", Volume: 0.01}

	t.Run("normalizes side", func(t *testing.T) {
		out, err := validateIntent(base)
		require.NoError(t, err)
		assert.Equal(t, string(domain.Buy), out.Side)
	})

	t.Run("rejects empty symbol", func(t *testing.T) {
		in := base
		in.Symbol = ""
		_, err := validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symbol")
	})

	t.Run("rejects unknown side", func(t *testing.T) {
		in := base
		in.Side = "hold"
		_, err := validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "side")
	})

	t.Run("rejects zero and negative volume", func(t *testing.T) {
		for _, v := range []float64{0, -0.5} {
			in := base
			in.Volume = v
			_, err := validateIntent(in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "volume")
		}
	})

	t.Run("supplied price is ignored not rejected", func(t *testing.T) {
		in := base
		in.Price = 1.2345
		out, err := validateIntent(in)
		require.NoError(t, err)
		assert.Zero(t, out.Price)
	})

	t.Run("rejects negative stops", func(t *testing.T) {
		in := base
		in.StopLoss = -1
		_, err := validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stopLoss")

		in = base
		in.TakeProfit = -1
		_, err = validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "takeProfit")
	})
}

func TestValidatePendingOrder(t *testing.T) {
	base := domain.TradeIntent{Kind: domain.PlacePendingOrder, Symbol: "EURUSD", Side: "SELL", Volume: 0.1, Price: 1.1}

	t.Run("valid", func(t *testing.T) {
		_, err := validateIntent(base)
		assert.NoError(t, err)
	})

	t.Run("missing price names the field", func(t *testing.T) {
		in := base
		in.Price = 0
		_, err := validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price")
	})

	t.Run("negative price rejected", func(t *testing.T) {
		in := base
		in.Price = -1.1
		_, err := validateIntent(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price")
	})
}

func TestValidateModifyKinds(t *testing.T) {
	t.Run("modify position requires ticket", func(t *testing.T) {
		_, err := validateIntent(domain.TradeIntent{Kind: domain.ModifyPosition})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "targetId")
	})

	t.Run("modify pending order requires ticket and price", func(t *testing.T) {
		_, err := validateIntent(domain.TradeIntent{Kind: domain.ModifyPendingOrder, Price: 1.1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "targetId")

		_, err = validateIntent(domain.TradeIntent{Kind: domain.ModifyPendingOrder, TargetID: 42})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price")
	})

	t.Run("valid modify position", func(t *testing.T) {
		_, err := validateIntent(domain.TradeIntent{Kind: domain.ModifyPosition, TargetID: 42, StopLoss: 1.0, TakeProfit: 1.2})
		assert.NoError(t, err)
	})
}

func TestValidateTargetedKinds(t *testing.T) {
	for _, kind := range []domain.IntentKind{domain.ClosePosition, domain.CancelPendingOrder} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := validateIntent(domain.TradeIntent{Kind: kind})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "targetId")

			_, err = validateIntent(domain.TradeIntent{Kind: kind, TargetID: 7})
			assert.NoError(t, err)
		})
	}
}

func TestValidateUnknownKind(t *testing.T) {
	_, err := validateIntent(domain.TradeIntent{Kind: "SPLIT_POSITION"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}
