package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JoshuaSLim/Finance/internal/auth"
	"github.com/JoshuaSLim/Finance/internal/feed"
	"github.com/JoshuaSLim/Finance/internal/ledger"
	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Executor  *ledger.Executor
	Portfolio *ledger.Portfolio
	Auth      *auth.AuthService
	Feed      *feed.Hub
	Log       *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(ex *ledger.Executor, portfolio *ledger.Portfolio, authService *auth.AuthService,
	hub *feed.Hub, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Executor:  ex,
		Portfolio: portfolio,
		Auth:      authService,
		Feed:      hub,
		Log:       log,
	}
}

// Routes builds the HTTP router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Get("/quote", h.Quote)
		r.Post("/buy", h.Buy)
		r.Post("/sell", h.Sell)
		r.Get("/portfolio", h.GetPortfolio)
		r.Get("/history", h.GetHistory)
		r.Get("/ws", h.ServeWS)
	})
	return r
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Password     string `json:"password"`
		Confirmation string `json:"confirmation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Username, req.Password, req.Confirmation)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"cash":     user.Cash,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	token, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

type quoteResponse struct {
	models.Quote
	Display string `json:"display"`
}

// Quote looks up the current price of ?symbol=
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.Executor.Quote(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{Quote: q, Display: models.USD(q.Price)})
}

// Buy handles a market buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, models.Buy)
}

// Sell handles a market sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, models.Sell)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, direction models.Direction) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, codeInvalidCredentials, "unauthorized")
		return
	}

	var req struct {
		Symbol string      `json:"symbol"`
		Shares json.Number `json:"shares"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeErr(w, r, models.ErrInvalidSymbol)
		return
	}
	shares, err := parseShares(req.Shares)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	receipt, err := h.Executor.ExecuteOrder(r.Context(), userID, models.Order{
		Symbol:    req.Symbol,
		Shares:    shares,
		Direction: direction,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if h.Feed != nil {
		h.Feed.Publish(userID, "receipt", receipt)
	}
	WriteJSON(w, http.StatusCreated, receipt)
}

// parseShares accepts only whole positive counts; fractional or missing
// values are an invalid share count rather than a malformed request
func parseShares(n json.Number) (int, error) {
	if n == "" {
		return 0, fmt.Errorf("%w: missing", models.ErrInvalidShareCount)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0, fmt.Errorf("%w: got %s", models.ErrInvalidShareCount, n)
	}
	if d.GreaterThan(decimal.NewFromInt(1_000_000_000)) {
		return 0, fmt.Errorf("%w: got %s", models.ErrInvalidShareCount, n)
	}
	return int(d.IntPart()), nil
}

type portfolioResponse struct {
	*models.PortfolioSummary
	CashDisplay  string `json:"cash_display"`
	TotalDisplay string `json:"total_display"`
}

// GetPortfolio returns cash, open positions and the grand total
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, codeInvalidCredentials, "unauthorized")
		return
	}

	summary, err := h.Portfolio.Summary(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newPortfolioResponse(summary))
}

func newPortfolioResponse(s *models.PortfolioSummary) portfolioResponse {
	return portfolioResponse{
		PortfolioSummary: s,
		CashDisplay:      models.USD(s.Cash),
		TotalDisplay:     models.USD(s.Total),
	}
}

// GetHistory returns every transaction of the user in execution order
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, codeInvalidCredentials, "unauthorized")
		return
	}

	txns, err := h.Portfolio.History(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, txns)
}

// ServeWS subscribes the caller to their receipts, starting with a
// portfolio snapshot
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, codeInvalidCredentials, "unauthorized")
		return
	}

	summary, err := h.Portfolio.Summary(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Feed.ServeWS(w, r, userID, &feed.Event{Type: "portfolio", Data: newPortfolioResponse(summary)})
}
