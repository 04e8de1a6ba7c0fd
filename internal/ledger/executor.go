package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JoshuaSLim/Finance/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Executor validates orders and commits them to the store. It is the only
// writer of balances and transactions.
type Executor struct {
	store        Store
	quotes       QuoteProvider
	quoteTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithQuoteTimeout bounds each quote lookup. Zero means no bound beyond ctx.
func WithQuoteTimeout(d time.Duration) Option {
	return func(e *Executor) { e.quoteTimeout = d }
}

// WithClock replaces time.Now for transaction timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithLogger sets the logger used for order lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an executor over store and quotes
func NewExecutor(store Store, quotes QuoteProvider, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		quotes: quotes,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteOrder prices and applies one order for userID. On any error nothing
// is written.
func (e *Executor) ExecuteOrder(ctx context.Context, userID int, order models.Order) (*models.Receipt, error) {
	ref := uuid.NewString()
	log := e.log.With("order_id", ref, "user_id", userID)
	log.Debug("order received", "symbol", order.Symbol, "shares", order.Shares, "direction", order.Direction)

	receipt, err := e.execute(ctx, userID, order, ref)
	if err != nil {
		log.Debug("order rejected", "reason", models.ErrorCode(err), "error", err)
		return nil, err
	}
	log.Info("order committed",
		"symbol", receipt.Symbol,
		"direction", receipt.Direction,
		"shares", receipt.Shares,
		"price", receipt.Price.String(),
		"transaction_id", receipt.TransactionID,
	)
	return receipt, nil
}

func (e *Executor) execute(ctx context.Context, userID int, order models.Order, ref string) (*models.Receipt, error) {
	symbol := strings.ToUpper(strings.TrimSpace(order.Symbol))
	if symbol == "" {
		return nil, models.ErrInvalidSymbol
	}
	if order.Shares <= 0 {
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidShareCount, order.Shares)
	}
	if order.Direction != models.Buy && order.Direction != models.Sell {
		return nil, fmt.Errorf("%w: got %q", models.ErrInvalidDirection, order.Direction)
	}

	quote, err := e.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	shares := decimal.NewFromInt(int64(order.Shares))
	total := quote.Price.Mul(shares)
	receipt := &models.Receipt{
		OrderID:   ref,
		Symbol:    quote.Symbol,
		Name:      quote.Name,
		Direction: order.Direction,
		Shares:    order.Shares,
		Price:     quote.Price,
		Total:     total,
	}

	err = e.store.WithUserLock(ctx, userID, func(tx Tx) error {
		cash, err := tx.GetBalance(ctx, userID)
		if err != nil {
			return err
		}

		delta := order.Shares
		switch order.Direction {
		case models.Buy:
			if total.GreaterThan(cash) {
				return fmt.Errorf("%w: %s costs %s, balance is %s",
					models.ErrInsufficientFunds, quote.Symbol, models.USD(total), models.USD(cash))
			}
			cash = cash.Sub(total)
		case models.Sell:
			txns, err := tx.ListTransactions(ctx, userID)
			if err != nil {
				return err
			}
			held := Aggregate(txns)[quote.Symbol].Shares
			if order.Shares > held {
				return fmt.Errorf("%w: selling %d %s, holding %d",
					models.ErrInsufficientShares, order.Shares, quote.Symbol, held)
			}
			cash = cash.Add(total)
			delta = -order.Shares
		}

		if err := tx.SetBalance(ctx, userID, cash); err != nil {
			return err
		}
		entry := &models.Transaction{
			UserID:     userID,
			Symbol:     quote.Symbol,
			Shares:     delta,
			Price:      quote.Price,
			ExecutedAt: e.now().UTC(),
		}
		id, err := tx.AppendTransaction(ctx, entry)
		if err != nil {
			return err
		}

		receipt.TransactionID = id
		receipt.Cash = cash
		receipt.ExecutedAt = entry.ExecutedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Quote prices symbol the same way an order would: trimmed and uppercased,
// bounded by the quote timeout, with provider failures reported as
// ErrQuoteUnavailable.
func (e *Executor) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.Quote{}, models.ErrInvalidSymbol
	}
	return e.lookup(ctx, symbol)
}

func (e *Executor) lookup(ctx context.Context, symbol string) (models.Quote, error) {
	if e.quoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.quoteTimeout)
		defer cancel()
	}

	quote, err := e.quotes.Lookup(ctx, symbol)
	switch {
	case errors.Is(err, models.ErrUnknownSymbol), errors.Is(err, models.ErrQuoteUnavailable):
		return models.Quote{}, err
	case err != nil:
		return models.Quote{}, fmt.Errorf("%w: %s: %v", models.ErrQuoteUnavailable, symbol, err)
	case !quote.Price.IsPositive():
		return models.Quote{}, fmt.Errorf("%w: %s has non-positive price %s", models.ErrQuoteUnavailable, symbol, quote.Price)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	quote.Symbol = strings.ToUpper(quote.Symbol)
	return quote, nil
}
