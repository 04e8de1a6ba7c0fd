package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var raw = flag.Bool("raw", false, "Print plain markdown instead of rendering it for the terminal")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	e := &env{out: os.Stdout}
	register(commander, e)

	flag.Parse()
	e.raw = *raw
	status := commander.Execute(context.Background())
	e.close()
	os.Exit(int(status))
}

// register adds the ledger subcommands to c
func register(c *subcommands.Commander, e *env) {
	c.Register(&registerCmd{env: e}, "users")
	c.Register(&seedCmd{env: e}, "users")

	c.Register(&quoteCmd{env: e}, "market")

	c.Register(&orderCmd{env: e, direction: "buy"}, "orders")
	c.Register(&orderCmd{env: e, direction: "sell"}, "orders")

	c.Register(&portfolioCmd{env: e}, "reports")
	c.Register(&historyCmd{env: e}, "reports")
}
