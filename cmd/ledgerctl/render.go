package main

import (
	"fmt"
	"strings"

	"github.com/JoshuaSLim/Finance/internal/models"
)

func renderQuote(q models.Quote) string {
	return fmt.Sprintf("A share of **%s** (%s) costs **%s**.\n", q.Name, q.Symbol, models.USD(q.Price))
}

func renderReceipt(r *models.Receipt) string {
	verb := "Bought"
	if r.Direction == models.Sell {
		verb = "Sold"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s (%s) at %s for %s.\n\n", verb, r.Shares, r.Symbol, r.Name, models.USD(r.Price), models.USD(r.Total))
	fmt.Fprintf(&b, "Cash remaining: **%s**\n", models.USD(r.Cash))
	return b.String()
}

func renderPortfolio(username string, s *models.PortfolioSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio of %s\n\n", username)
	b.WriteString("| Symbol | Shares | Price | Value |\n")
	b.WriteString("|:---|---:|---:|---:|\n")
	for _, h := range s.Holdings {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", h.Symbol, h.Shares, models.USD(h.LastPrice), models.USD(h.Value()))
	}
	fmt.Fprintf(&b, "| Cash | | | %s |\n", models.USD(s.Cash))
	fmt.Fprintf(&b, "| **Total** | | | **%s** |\n", models.USD(s.Total))
	return b.String()
}

func renderHistory(username string, txns []models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# History of %s\n\n", username)
	if len(txns) == 0 {
		b.WriteString("No transactions.\n")
		return b.String()
	}
	b.WriteString("| Symbol | Shares | Price | Transacted |\n")
	b.WriteString("|:---|---:|---:|:---|\n")
	for _, t := range txns {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", t.Symbol, t.Shares, models.USD(t.Price), t.ExecutedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
