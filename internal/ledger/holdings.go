package ledger

import (
	"context"
	"sort"

	"github.com/JoshuaSLim/Finance/internal/models"
	"github.com/shopspring/decimal"
)

// Aggregate folds a transaction log into net holdings per symbol. The last
// known price of a symbol is the price of its latest transaction by
// (ExecutedAt, ID), so the result does not depend on the order of txns.
// Positions that net to zero are kept.
func Aggregate(txns []models.Transaction) map[string]models.Holding {
	holdings := make(map[string]models.Holding)
	latest := make(map[string]models.Transaction)

	for _, t := range txns {
		h := holdings[t.Symbol]
		h.Symbol = t.Symbol
		h.Shares += t.Shares

		prev, seen := latest[t.Symbol]
		if !seen || later(t, prev) {
			latest[t.Symbol] = t
			h.LastPrice = t.Price
		}
		holdings[t.Symbol] = h
	}
	return holdings
}

func later(a, b models.Transaction) bool {
	if a.ExecutedAt.Equal(b.ExecutedAt) {
		return a.ID > b.ID
	}
	return a.ExecutedAt.After(b.ExecutedAt)
}

// Sorted returns the holdings ordered by symbol
func Sorted(holdings map[string]models.Holding) []models.Holding {
	out := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Portfolio answers read-only questions about a user's positions
type Portfolio struct {
	store Store
}

// NewPortfolio creates a portfolio reader over store
func NewPortfolio(store Store) *Portfolio {
	return &Portfolio{store: store}
}

// CurrentHoldings recomputes the user's holdings from the transaction log
func (p *Portfolio) CurrentHoldings(ctx context.Context, userID int) (map[string]models.Holding, error) {
	txns, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Aggregate(txns), nil
}

// History returns the user's transactions in insertion order
func (p *Portfolio) History(ctx context.Context, userID int) ([]models.Transaction, error) {
	txns, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return txns, nil
}

// Summary returns cash, open positions sorted by symbol and their value at
// last known prices. Closed positions are left out.
func (p *Portfolio) Summary(ctx context.Context, userID int) (*models.PortfolioSummary, error) {
	cash, err := p.store.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := p.CurrentHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.PortfolioSummary{
		Cash:          cash,
		Holdings:      []models.Holding{},
		HoldingsValue: decimal.Zero,
	}
	for _, h := range Sorted(holdings) {
		if h.Shares == 0 {
			continue
		}
		summary.Holdings = append(summary.Holdings, h)
		summary.HoldingsValue = summary.HoldingsValue.Add(h.Value())
	}
	summary.Total = cash.Add(summary.HoldingsValue)
	return summary, nil
}
