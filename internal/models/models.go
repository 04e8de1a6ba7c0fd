package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of an order
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// User represents a registered user
type User struct {
	ID           int             `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Cash         decimal.Decimal `json:"cash"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Transaction is one immutable ledger entry. Shares is signed: positive for
// a buy, negative for a sell.
type Transaction struct {
	ID         int             `json:"id"`
	UserID     int             `json:"user_id"`
	Symbol     string          `json:"symbol"`
	Shares     int             `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Total returns the signed cash value of the transaction at its snapshot price
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(int64(t.Shares)))
}

// Holding is the net position in one symbol, derived from the ledger
type Holding struct {
	Symbol    string          `json:"symbol"`
	Shares    int             `json:"shares"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// Value is the position valued at the last known price
func (h Holding) Value() decimal.Decimal {
	return h.LastPrice.Mul(decimal.NewFromInt(int64(h.Shares)))
}

// Quote is a point-in-time price for a ticker symbol
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Order is a request to buy or sell a number of shares of one symbol
type Order struct {
	Symbol    string    `json:"symbol"`
	Shares    int       `json:"shares"`
	Direction Direction `json:"direction"`
}

// Receipt describes a committed order
type Receipt struct {
	OrderID       string          `json:"order_id"`
	TransactionID int             `json:"transaction_id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Direction     Direction       `json:"direction"`
	Shares        int             `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Total         decimal.Decimal `json:"total"`
	Cash          decimal.Decimal `json:"cash"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

// PortfolioSummary is a user's cash plus the positions valued at last known prices
type PortfolioSummary struct {
	Cash          decimal.Decimal `json:"cash"`
	Holdings      []Holding       `json:"holdings"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	Total         decimal.Decimal `json:"total"`
}
