package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/JoshuaSLim/Finance/internal/ledger"
	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		txns []models.Transaction
		want map[string]models.Holding
	}{
		{
			name: "Empty",
			txns: nil,
			want: map[string]models.Holding{},
		},
		{
			name: "BuyThenSell",
			txns: []models.Transaction{
				{ID: 1, Symbol: "AAPL", Shares: 10, Price: dec("150"), ExecutedAt: t0},
				{ID: 2, Symbol: "AAPL", Shares: -4, Price: dec("160"), ExecutedAt: t0.Add(time.Hour)},
			},
			want: map[string]models.Holding{
				"AAPL": {Symbol: "AAPL", Shares: 6, LastPrice: dec("160")},
			},
		},
		{
			name: "OutOfOrderInput",
			txns: []models.Transaction{
				{ID: 2, Symbol: "AAPL", Shares: -4, Price: dec("160"), ExecutedAt: t0.Add(time.Hour)},
				{ID: 1, Symbol: "AAPL", Shares: 10, Price: dec("150"), ExecutedAt: t0},
				{ID: 3, Symbol: "GOOG", Shares: 1, Price: dec("2800"), ExecutedAt: t0},
			},
			want: map[string]models.Holding{
				"AAPL": {Symbol: "AAPL", Shares: 6, LastPrice: dec("160")},
				"GOOG": {Symbol: "GOOG", Shares: 1, LastPrice: dec("2800")},
			},
		},
		{
			name: "SameTimestampHigherIDWins",
			txns: []models.Transaction{
				{ID: 5, Symbol: "MSFT", Shares: 1, Price: dec("301"), ExecutedAt: t0},
				{ID: 4, Symbol: "MSFT", Shares: 1, Price: dec("300"), ExecutedAt: t0},
			},
			want: map[string]models.Holding{
				"MSFT": {Symbol: "MSFT", Shares: 2, LastPrice: dec("301")},
			},
		},
		{
			name: "ZeroPositionKept",
			txns: []models.Transaction{
				{ID: 1, Symbol: "GOOG", Shares: 3, Price: dec("2800"), ExecutedAt: t0},
				{ID: 2, Symbol: "GOOG", Shares: -3, Price: dec("2900"), ExecutedAt: t0.Add(time.Minute)},
			},
			want: map[string]models.Holding{
				"GOOG": {Symbol: "GOOG", Shares: 0, LastPrice: dec("2900")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.Aggregate(tt.txns))
		})
	}
}

func TestSorted(t *testing.T) {
	got := ledger.Sorted(map[string]models.Holding{
		"MSFT": {Symbol: "MSFT"},
		"AAPL": {Symbol: "AAPL"},
		"GOOG": {Symbol: "GOOG"},
	})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
}

func TestPortfolio_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "10000.00")

	orders := []models.Order{
		{Symbol: "GOOG", Shares: 1, Direction: models.Buy},
		{Symbol: "AAPL", Shares: 10, Direction: models.Buy},
	}
	for _, o := range orders {
		_, err := f.ex.ExecuteOrder(ctx, alice, o)
		require.NoError(t, err)
	}
	_, err := f.ex.ExecuteOrder(ctx, alice, models.Order{Symbol: "GOOG", Shares: 1, Direction: models.Sell})
	require.NoError(t, err)

	s, err := f.pf.Summary(ctx, alice)
	require.NoError(t, err)
	assert.True(t, s.Cash.Equal(dec("8500")), "got %s", s.Cash)
	require.Len(t, s.Holdings, 1, "closed GOOG position is left out")
	assert.Equal(t, "AAPL", s.Holdings[0].Symbol)
	assert.Equal(t, 10, s.Holdings[0].Shares)
	assert.True(t, s.HoldingsValue.Equal(dec("1500")))
	assert.True(t, s.Total.Equal(dec("10000")))

	again, err := f.pf.Summary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, s, again)

	_, err = f.pf.Summary(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPortfolio_HistoryEmpty(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "10000.00")

	txns, err := f.pf.History(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)
}
