package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/notify"
	"github.com/Sternrassler/movie-catalog/pkg/pagination"
	"github.com/Sternrassler/movie-catalog/pkg/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search movies by title",
	Example: `  movies search matrix
  movies search "the godfather"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := loadDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		return runSearch(ctx, cmd.OutOrStdout(), d.client, d.probe, d.cfg.SearchSessionConfig(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

// runSearch submits query once and prints the first result page.
func runSearch(ctx context.Context, out io.Writer, searcher pagination.Searcher, probe connectivity.Probe, cfg search.Config, query string) error {
	session := search.NewSession(searcher, probe, search.WithConfig(cfg))

	var mu sync.Mutex
	var alert *notify.Alert
	cancel := session.Subscribe(func(u search.Update) {
		if u.Alert == nil {
			return
		}
		mu.Lock()
		alert = u.Alert
		mu.Unlock()
	})
	defer cancel()

	session.Submit(ctx, query)
	session.Wait()

	mu.Lock()
	defer mu.Unlock()
	if alert != nil {
		if alert.Kind == notify.AlertNoInternet {
			return fmt.Errorf("%s: %w", alert.Message, connectivity.ErrOffline)
		}
		return errors.New(alert.Message)
	}

	st := session.State()
	if !st.ShowResultsLabel {
		return fmt.Errorf("query must be at least %d characters", cfg.MinChars)
	}
	fmt.Fprintf(out, "%d results for %q\n", st.Count, st.Query)
	if st.ShowEmptyPlaceholder {
		fmt.Fprintln(out, "No movies found.")
		return nil
	}
	printMovies(out, 0, st.Results)
	return nil
}
