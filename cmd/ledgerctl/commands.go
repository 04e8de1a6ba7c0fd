package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/google/subcommands"
)

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

type registerCmd struct {
	env      *env
	username string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a user with the configured starting cash" }
func (*registerCmd) Usage() string {
	return `ledgerctl register -u <username> -p <password>

  Registers a new user. The password must contain a letter, a digit and a symbol.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username to register.")
	f.StringVar(&c.password, "p", "", "Password for the new user.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}
	user, err := a.Auth.Register(ctx, c.username, c.password, c.password)
	if err != nil {
		return fail(err)
	}
	c.env.printMarkdown(fmt.Sprintf("Registered **%s** (id %d) with %s.\n", user.Username, user.ID, models.USD(user.Cash)))
	return subcommands.ExitSuccess
}

type quoteCmd struct {
	env *env
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the current price of a symbol" }
func (*quoteCmd) Usage() string {
	return `ledgerctl quote <symbol>

  Prints the name and current price of a ticker symbol.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: quote takes exactly one symbol")
		return subcommands.ExitUsageError
	}
	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}
	q, err := a.Executor.Quote(ctx, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	c.env.printMarkdown(renderQuote(q))
	return subcommands.ExitSuccess
}

// orderCmd implements both buy and sell
type orderCmd struct {
	env       *env
	direction string
	username  string
}

func (c *orderCmd) Name() string     { return c.direction }
func (c *orderCmd) Synopsis() string { return c.direction + " shares at the current price" }
func (c *orderCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl %s -u <username> <symbol> <shares>

  Executes a market %s for the user at the current quote.
`, c.direction, c.direction)
}

func (c *orderCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "User placing the order.")
}

func (c *orderCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: %s takes a symbol and a share count\n", c.direction)
		return subcommands.ExitUsageError
	}
	shares, err := strconv.Atoi(f.Arg(1))
	if err != nil {
		return fail(fmt.Errorf("%w: got %q", models.ErrInvalidShareCount, f.Arg(1)))
	}

	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}
	userID, err := c.env.userID(ctx, a, c.username)
	if err != nil {
		return fail(err)
	}
	receipt, err := a.Executor.ExecuteOrder(ctx, userID, models.Order{
		Symbol:    f.Arg(0),
		Shares:    shares,
		Direction: models.Direction(c.direction),
	})
	if err != nil {
		return fail(err)
	}
	c.env.printMarkdown(renderReceipt(receipt))
	return subcommands.ExitSuccess
}

type portfolioCmd struct {
	env      *env
	username string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show cash, holdings and grand total" }
func (*portfolioCmd) Usage() string {
	return `ledgerctl portfolio -u <username>

  Shows the user's open positions valued at their last traded price.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "User to report on.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}
	userID, err := c.env.userID(ctx, a, c.username)
	if err != nil {
		return fail(err)
	}
	summary, err := a.Portfolio.Summary(ctx, userID)
	if err != nil {
		return fail(err)
	}
	c.env.printMarkdown(renderPortfolio(c.username, summary))
	return subcommands.ExitSuccess
}

type historyCmd struct {
	env      *env
	username string
	tail     int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list every transaction of a user" }
func (*historyCmd) Usage() string {
	return `ledgerctl history -u <username> [-tail <n>]

  Lists the user's transactions in execution order.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "User to report on.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}
	userID, err := c.env.userID(ctx, a, c.username)
	if err != nil {
		return fail(err)
	}
	txns, err := a.Portfolio.History(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if c.tail > 0 && len(txns) > c.tail {
		txns = txns[len(txns)-c.tail:]
	}
	c.env.printMarkdown(renderHistory(c.username, txns))
	return subcommands.ExitSuccess
}

// seedOrders is the sample activity created by the seed command
var seedOrders = []struct {
	username string
	order    models.Order
}{
	{"trader1", models.Order{Symbol: "AAPL", Shares: 10, Direction: models.Buy}},
	{"trader1", models.Order{Symbol: "GOOG", Shares: 1, Direction: models.Buy}},
	{"trader1", models.Order{Symbol: "AAPL", Shares: 4, Direction: models.Sell}},
	{"trader2", models.Order{Symbol: "MSFT", Shares: 5, Direction: models.Buy}},
	{"trader2", models.Order{Symbol: "NFLX", Shares: 2, Direction: models.Buy}},
}

const seedPassword = "passw0rd!"

type seedCmd struct {
	env *env
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "create sample users and trades" }
func (*seedCmd) Usage() string {
	return `ledgerctl seed

  Creates trader1 and trader2 and runs a few sample orders at current prices.
  Users that already have transactions are left alone.
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return fail(err)
	}

	// users keeps seedOrders' first-seen order so the report is stable
	var users []string
	ids := map[string]int{}
	skip := map[string]bool{}
	for _, s := range seedOrders {
		if _, ok := ids[s.username]; ok {
			continue
		}
		users = append(users, s.username)
		user, err := a.Store.GetUserByUsername(ctx, s.username)
		if errors.Is(err, models.ErrNotFound) {
			user, err = a.Auth.Register(ctx, s.username, seedPassword, seedPassword)
		}
		if err != nil {
			return fail(fmt.Errorf("failed to create %s: %w", s.username, err))
		}
		ids[s.username] = user.ID

		txns, err := a.Portfolio.History(ctx, user.ID)
		if err != nil {
			return fail(err)
		}
		skip[s.username] = len(txns) > 0
	}

	var b strings.Builder
	b.WriteString("# Seed\n\n")
	for _, s := range seedOrders {
		if skip[s.username] {
			continue
		}
		receipt, err := a.Executor.ExecuteOrder(ctx, ids[s.username], s.order)
		if err != nil {
			return fail(fmt.Errorf("failed to seed %s %s for %s: %w", s.order.Direction, s.order.Symbol, s.username, err))
		}
		fmt.Fprintf(&b, "- %s %s %d %s at %s\n", s.username, receipt.Direction, receipt.Shares, receipt.Symbol, models.USD(receipt.Price))
	}
	for _, name := range users {
		if skip[name] {
			fmt.Fprintf(&b, "- %s already has transactions, skipped\n", name)
		}
	}
	c.env.printMarkdown(b.String())
	return subcommands.ExitSuccess
}
