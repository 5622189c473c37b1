package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"airportsearch/internal/config"
	"airportsearch/internal/home"
	"airportsearch/internal/index"
	"airportsearch/internal/logging"
	"airportsearch/internal/query"
	"airportsearch/internal/record"
	"airportsearch/internal/reload"
	"airportsearch/internal/repl"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	src         *record.FileSource
	builder     *index.Builder
	engine      *query.Engine
	fingerprint string
}

func registerFlags(cmd *cobra.Command) {
	config.RegisterFlags(cmd.PersistentFlags())
}

// setup loads the configuration and builds (or loads) the name index.
func setup(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	homeFlag, _ := flags.GetString("home")
	if homeFlag == "" {
		homeFlag = os.Getenv(config.EnvPrefix + "_HOME")
	}

	hd, err := resolveHome(homeFlag)
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := config.Load(viper.New(), flags, configFile, hd.Root())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Home != "" {
		hd = home.New(cfg.Home)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger, levels, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, level)
	if err != nil {
		return nil, err
	}
	for component, lvl := range cfg.ComponentLevels() {
		levels.SetLevel(component, lvl)
	}

	var snapshotDir string
	if cfg.Snapshot {
		if err := hd.EnsureExists(); err != nil {
			return nil, err
		}
		snapshotDir = hd.IndexDir()
		logger.Info("home directory", "path", hd.Root())
	}

	src := record.NewFileSource(cfg.Data...)
	fp, err := src.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("open data files: %w", err)
	}

	builder := index.NewBuilder(index.BuilderConfig{
		SnapshotDir: snapshotDir,
		Logger:      logger,
	})
	idx, err := builder.Open(cmd.Context(), src)
	if err != nil {
		return nil, err
	}

	engine := query.New(query.Config{
		Index:      idx,
		Source:     src,
		FilterMode: cfg.Mode(),
		Logger:     logger,
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		src:         src,
		builder:     builder,
		engine:      engine,
		fingerprint: fp,
	}, nil
}

// resolveHome returns a Dir from the flag value, or the platform default.
func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

// interactive runs the REPL, with the reloader alongside when configured.
func (a *app) interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	printer, err := repl.NewPrinter(out, a.cfg.Output)
	if err != nil {
		return err
	}

	rcfg := repl.Config{
		Searcher: a.engine,
		In:       in,
		Out:      out,
		Printer:  printer,
		Prompt:   repl.ShowPrompts(a.cfg.Prompt, stdinFile(in)),
		Logger:   a.logger,
	}

	if !a.cfg.Reloading() {
		return repl.New(rcfg).Run(ctx)
	}

	reloader, err := a.newReloader()
	if err != nil {
		return err
	}
	rcfg.Refresher = reloader

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return repl.New(rcfg).Run(ctx)
	})
	g.Go(func() error {
		return reloader.Run(ctx)
	})
	return g.Wait()
}

func (a *app) newReloader() (*reload.Reloader, error) {
	return reload.New(reload.Config{
		Source:             a.src,
		Opener:             a.builder,
		Target:             a.engine,
		Fingerprint:        a.fingerprint,
		Watch:              a.cfg.Watch,
		PollInterval:       a.cfg.PollInterval,
		RebuildCron:        a.cfg.RebuildCron,
		MinRebuildInterval: a.cfg.MinRebuildInterval,
		Logger:             a.logger,
	})
}

// search runs one query and prints the result.
func (a *app) search(ctx context.Context, out io.Writer, name, filterText string) error {
	printer, err := repl.NewPrinter(out, a.cfg.Output)
	if err != nil {
		return err
	}
	res, err := a.engine.SearchText(ctx, name, filterText)
	if err != nil {
		if errors.Is(err, query.ErrEmptyPrefix) {
			return errors.New("airport name must not be empty")
		}
		return err
	}
	return printer.Print(res)
}

// printIndex writes the number of names per first letter, then the reload
// jobs an interactive session would schedule.
func (a *app) printIndex(out io.Writer) error {
	idx := a.engine.Index()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LETTER\tNAMES")
	for _, letter := range idx.Letters() {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", letter, len(idx.Bucket(letter)))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(out, "%d names, %d duplicate names, %d malformed rows skipped\n",
		idx.Len(), idx.Duplicates(), idx.Skipped())

	if !a.cfg.Reloading() {
		return nil
	}
	reloader, err := a.newReloader()
	if err != nil {
		return err
	}
	defer func() { _ = reloader.Close() }()

	jobs := reloader.Jobs()
	if len(jobs) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "JOB\tSCHEDULE")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", j.Name, j.Schedule)
	}
	return tw.Flush()
}
