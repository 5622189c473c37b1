// Command airportsearch finds airports by name prefix and column filters.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "airportsearch",
		Short: "Search airports by name prefix with column filters",
		Long: strings.TrimSpace(`
Interactive airport search. Each round asks for a filter, for example
  column[4]>1000&column[6]=JFK||column[3]<50
and then for the start of an airport name. Enter !quit at the filter
prompt to exit.`),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.interactive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	registerFlags(rootCmd)

	searchCmd := &cobra.Command{
		Use:   "search NAME...",
		Short: "Run a single query and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filterText, _ := cmd.Flags().GetString("filter")
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.search(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), filterText)
		},
	}
	searchCmd.Flags().StringP("filter", "f", "", "filter expression")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the name index and print bucket sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.printIndex(cmd.OutOrStdout())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(searchCmd, indexCmd, versionCmd)
	return rootCmd
}

// stdinFile returns r as an *os.File when it is one, for terminal detection.
func stdinFile(r io.Reader) *os.File {
	f, _ := r.(*os.File)
	return f
}
