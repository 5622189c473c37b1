// Package repl provides the interactive airport search loop.
//
// Each round asks for a filter and then an airport name prefix, runs the
// query and prints the matching rows followed by a summary line. "!quit" at
// the filter prompt ends the session. The REPL is a client of the query
// engine: it owns no index and starts no background work.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"airportsearch/internal/filter"
	"airportsearch/internal/logging"
	"airportsearch/internal/query"
)

// QuitCommand ends the session when entered at the filter prompt.
const QuitCommand = "!quit"

const (
	filterPrompt = "Enter filter: "
	namePrompt   = "Enter airport name: "

	msgEmptyName    = "You need to input airport name. Try again."
	msgWrongFilter  = "Wrong filters format."
	msgIndexChanged = "Data files changed, refreshing the index."
)

// Searcher runs one query; *query.Engine satisfies it.
type Searcher interface {
	SearchText(ctx context.Context, prefix, filterText string) (*query.Result, error)
}

// Refresher brings the index up to date between queries;
// *reload.Reloader satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)

	// Stale returns a channel closed when the index is next marked stale.
	Stale() <-chan struct{}
}

// Config configures a REPL.
type Config struct {
	Searcher  Searcher
	Refresher Refresher // optional

	In  io.Reader
	Out io.Writer

	// Printer formats results. Defaults to the list format on Out.
	Printer *Printer

	// Prompt prints the input prompts. Off for piped input.
	Prompt bool

	Logger *slog.Logger
}

// REPL is the interactive read-eval-print loop.
type REPL struct {
	searcher  Searcher
	refresher Refresher
	stale     <-chan struct{}

	in      *bufio.Scanner
	out     io.Writer
	printer *Printer
	prompt  bool

	scanErr error
	logger  *slog.Logger
}

// New creates a REPL.
func New(cfg Config) *REPL {
	p := cfg.Printer
	if p == nil {
		p = &Printer{format: FormatList, w: cfg.Out}
	}
	var stale <-chan struct{}
	if cfg.Refresher != nil {
		stale = cfg.Refresher.Stale()
	}
	return &REPL{
		searcher:  cfg.Searcher,
		stale:     stale,
		refresher: cfg.Refresher,
		in:        bufio.NewScanner(cfg.In),
		out:       cfg.Out,
		printer:   p,
		prompt:    cfg.Prompt,
		logger:    logging.Default(cfg.Logger).With("component", "repl"),
	}
}

// Run reads queries until "!quit", end of input or ctx is done. Only an input
// read failure is returned as an error.
func (r *REPL) Run(ctx context.Context) error {
	lines := r.readLines(ctx)
	queries := 0
	defer func() { r.logger.Debug("session ended", "queries", queries) }()

	for {
		r.printPrompt(filterPrompt)
		filterText, ok := next(ctx, lines)
		if !ok {
			return r.endErr(ctx)
		}
		filterText = strings.TrimSpace(filterText)
		if filterText == QuitCommand {
			return nil
		}

		r.printPrompt(namePrompt)
		name, ok := next(ctx, lines)
		if !ok {
			return r.endErr(ctx)
		}
		if strings.TrimSpace(name) == "" {
			r.println(msgEmptyName)
			continue
		}

		r.refresh(ctx)
		r.query(ctx, name, filterText)
		queries++
	}
}

func (r *REPL) refresh(ctx context.Context) {
	if r.refresher == nil {
		return
	}
	select {
	case <-r.stale:
		r.stale = r.refresher.Stale()
		r.println(msgIndexChanged)
	default:
	}
	if _, err := r.refresher.Refresh(ctx); err != nil {
		r.logger.Debug("continuing with current index", "error", err)
	}
}

func (r *REPL) query(ctx context.Context, name, filterText string) {
	res, err := r.searcher.SearchText(ctx, name, filterText)
	switch {
	case err == nil:
	case errors.Is(err, query.ErrEmptyPrefix):
		r.println(msgEmptyName)
		return
	case errors.Is(err, filter.ErrMalformedFilter):
		r.logger.Debug("malformed filter", "filter", filterText, "error", err)
		r.println(msgWrongFilter)
		return
	default:
		r.println("Error: " + err.Error())
		return
	}

	if err := r.printer.Print(res); err != nil {
		r.logger.Warn("write result", "error", err)
	}
}

// readLines feeds input lines to a channel so Run can also watch ctx. The
// channel is closed at end of input; scanErr is set before the close.
func (r *REPL) readLines(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for r.in.Scan() {
			select {
			case ch <- r.in.Text():
			case <-ctx.Done():
				return
			}
		}
		r.scanErr = r.in.Err()
	}()
	return ch
}

// endErr is the result of Run once input stops. Cancellation is a normal
// end; scanErr is only read after the line channel is closed.
func (r *REPL) endErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return r.scanErr
}

func next(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		return line, ok
	}
}

func (r *REPL) printPrompt(p string) {
	if r.prompt {
		_, _ = fmt.Fprint(r.out, p)
	}
}

func (r *REPL) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}
