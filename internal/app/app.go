package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoshuaSLim/Finance/internal/auth"
	"github.com/JoshuaSLim/Finance/internal/config"
	"github.com/JoshuaSLim/Finance/internal/db"
	"github.com/JoshuaSLim/Finance/internal/ledger"
	"github.com/JoshuaSLim/Finance/internal/models"
	"github.com/JoshuaSLim/Finance/internal/quote"
)

// Store is what either backend provides to the rest of the application
type Store interface {
	ledger.Store
	auth.UserStore
	GetUser(ctx context.Context, userID int) (*models.User, error)
	Migrate(ctx context.Context) error
	Close() error
}

// App bundles the wired services shared by the server and the CLI
type App struct {
	Store     Store
	Executor  *ledger.Executor
	Portfolio *ledger.Portfolio
	Auth      *auth.AuthService
}

// Open connects the configured store, applies migrations and wires the
// ledger services on top of it
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.StoreDriver, err)
	}

	quotes, err := NewQuoteProvider(cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Store: store,
		Executor: ledger.NewExecutor(store, quotes,
			ledger.WithQuoteTimeout(cfg.QuoteTimeout),
			ledger.WithLogger(log),
		),
		Portfolio: ledger.NewPortfolio(store),
		Auth:      auth.NewAuthService(store, []byte(cfg.JWTSecret), cfg.TokenTTL, cfg.StartingCash),
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStore connects to Postgres or opens the SQLite file per STORE_DRIVER
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		store, err := db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store, nil
	case "sqlite", "":
		store, err := db.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NewQuoteProvider builds the configured quote source, cached when
// QUOTE_CACHE_TTL is set
func NewQuoteProvider(cfg *config.Config, log *slog.Logger) (ledger.QuoteProvider, error) {
	var provider ledger.QuoteProvider
	switch cfg.QuoteSource {
	case "http":
		provider = quote.NewHTTPProvider(quote.HTTPConfig{
			URL:    cfg.QuoteURL,
			APIKey: cfg.QuoteAPIKey,
			Paths: quote.Paths{
				Symbol: cfg.QuoteSymbolPath,
				Name:   cfg.QuoteNamePath,
				Price:  cfg.QuotePricePath,
			},
			RateLimit: cfg.QuoteRateLimit,
			Logger:    log,
		})
	case "static", "":
		static, err := quote.ParseStatic(cfg.QuoteStatic)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTE_STATIC: %w", err)
		}
		provider = static
	default:
		return nil, fmt.Errorf("unknown quote source %q", cfg.QuoteSource)
	}

	if cfg.QuoteCacheTTL > 0 {
		provider = quote.NewCachedProvider(provider, cfg.QuoteCacheTTL)
	}
	return provider, nil
}
