package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JoshuaSLim/Finance/internal/ledger"
	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite.sql
var sqliteSchema string

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteDB is a ledger store backed by a single SQLite file. Within a process
// all access goes through one connection. Across processes transactions begin
// IMMEDIATE so the write lock is taken up front, and busy_timeout makes a
// second writer wait instead of failing with SQLITE_BUSY.
type SQLiteDB struct {
	DB *sql.DB
	sqliteLedger
}

// NewSQLiteDB opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	return &SQLiteDB{DB: conn, sqliteLedger: sqliteLedger{q: conn}}, nil
}

func sqliteDSN(path string) string {
	const params = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	switch {
	case path == ":memory:":
		return "file::memory:?" + params
	case strings.HasPrefix(path, "file:") && strings.Contains(path, "?"):
		return path + "&" + params
	case strings.HasPrefix(path, "file:"):
		return path + "?" + params
	}
	return "file:" + path + "?" + params
}

// Close closes the underlying database
func (db *SQLiteDB) Close() error {
	return db.DB.Close()
}

// Migrate creates the users and transactions tables if they do not exist
func (db *SQLiteDB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateUser inserts a new user with a starting cash balance
func (db *SQLiteDB) CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (*models.User, error) {
	createdAt := time.Now().UTC()
	res, err := db.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, cash, created_at) VALUES (?, ?, ?, ?)",
		username, passwordHash, cash.String(), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return nil, fmt.Errorf("%w: %s", models.ErrUsernameTaken, username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &models.User{
		ID:           int(id),
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         cash,
		CreatedAt:    createdAt,
	}, nil
}

// GetUserByUsername retrieves a user by username
func (db *SQLiteDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, cash, created_at FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %q", models.ErrNotFound, username)
	}
	return user, err
}

// GetUser retrieves a user by id
func (db *SQLiteDB) GetUser(ctx context.Context, userID int) (*models.User, error) {
	row := db.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, cash, created_at FROM users WHERE id = ?", userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	return user, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user      models.User
		cash      string
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &cash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var err error
	if user.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("failed to parse cash of user %d: %w", user.ID, err)
	}
	if user.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at of user %d: %w", user.ID, err)
	}
	return &user, nil
}

// WithUserLock runs fn inside a transaction. The single connection already
// excludes every other writer, so the user check only reports ErrNotFound.
func (db *SQLiteDB) WithUserLock(ctx context.Context, userID int, fn func(tx ledger.Tx) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?", userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}

	if err := fn(sqliteLedger{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqliteLedger implements ledger.Tx. Money is stored as decimal text and
// times as RFC 3339 text so that nothing is rounded through float64.
type sqliteLedger struct {
	q sqlQuerier
}

// GetBalance returns the user's cash
func (l sqliteLedger) GetBalance(ctx context.Context, userID int) (decimal.Decimal, error) {
	var cash string
	err := l.q.QueryRowContext(ctx, "SELECT cash FROM users WHERE id = ?", userID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	amount, err := decimal.NewFromString(cash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance of user %d: %w", userID, err)
	}
	return amount, nil
}

// SetBalance overwrites the user's cash
func (l sqliteLedger) SetBalance(ctx context.Context, userID int, amount decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, "UPDATE users SET cash = ? WHERE id = ?", amount.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	return nil
}

// AppendTransaction inserts a ledger entry and returns its id
func (l sqliteLedger) AppendTransaction(ctx context.Context, t *models.Transaction) (int, error) {
	res, err := l.q.ExecContext(ctx,
		"INSERT INTO transactions (user_id, symbol, shares, price, executed_at) VALUES (?, ?, ?, ?, ?)",
		t.UserID, t.Symbol, t.Shares, t.Price.String(), t.ExecutedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}
	return int(id), nil
}

// ListTransactions retrieves all transactions for a user in insertion order
func (l sqliteLedger) ListTransactions(ctx context.Context, userID int) ([]models.Transaction, error) {
	rows, err := l.q.QueryContext(ctx,
		"SELECT id, user_id, symbol, shares, price, executed_at FROM transactions WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var (
			t          models.Transaction
			price      string
			executedAt string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Shares, &price, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse price of transaction %d: %w", t.ID, err)
		}
		if t.ExecutedAt, err = time.Parse(time.RFC3339Nano, executedAt); err != nil {
			return nil, fmt.Errorf("failed to parse executed_at of transaction %d: %w", t.ID, err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
