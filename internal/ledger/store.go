package ledger

import (
	"context"

	"github.com/JoshuaSLim/Finance/internal/models"
	"github.com/shopspring/decimal"
)

// Tx is the view of the store available while a user's row is locked.
// Every call made through a Tx commits or rolls back together.
type Tx interface {
	GetBalance(ctx context.Context, userID int) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID int, amount decimal.Decimal) error
	AppendTransaction(ctx context.Context, t *models.Transaction) (int, error)
	ListTransactions(ctx context.Context, userID int) ([]models.Transaction, error)
}

// Store is the durable home of cash balances and the transaction log.
// Implemented by db.DB (Postgres) and db.SQLiteDB.
type Store interface {
	Tx

	// WithUserLock runs fn in a single database transaction that holds an
	// exclusive lock on userID. It commits only if fn returns nil and
	// returns models.ErrNotFound if the user does not exist.
	WithUserLock(ctx context.Context, userID int, fn func(tx Tx) error) error
}

// QuoteProvider looks up the current price of a symbol. Implementations
// return models.ErrUnknownSymbol for symbols they do not know.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (models.Quote, error)
}
