package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/JoshuaSLim/Finance/internal/app"
	"github.com/JoshuaSLim/Finance/internal/config"
	"github.com/JoshuaSLim/Finance/internal/logger"

	"github.com/charmbracelet/glamour"
)

// env is the state shared by every subcommand. The application is opened
// lazily so that help and flag listing never touch the database.
type env struct {
	app *app.App
	out io.Writer
	raw bool
}

func (e *env) open(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(os.Stderr, "warn")
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
		e.app = nil
	}
}

// userID resolves a username to its ledger id
func (e *env) userID(ctx context.Context, a *app.App, username string) (int, error) {
	if username == "" {
		return 0, fmt.Errorf("a username is required (-u)")
	}
	u, err := a.Store.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("user %q: %w", username, err)
	}
	return u.ID, nil
}

// printMarkdown renders md for the terminal, or writes it as is with -raw
func (e *env) printMarkdown(md string) {
	if e.raw {
		fmt.Fprint(e.out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(e.out, out)
			return
		}
	}
	fmt.Fprint(e.out, md)
}
