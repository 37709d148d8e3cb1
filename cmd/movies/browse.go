package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/pagination"
	"github.com/spf13/cobra"
)

var (
	browsePages int
	browseQuery string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Page through the top rated listing",
	Long: `Refresh the listing and keep loading batches of two pages until at
least --pages pages are loaded or the catalog is exhausted. With --query
the search results are paged instead.

Examples:
  movies browse
  movies browse --pages 10
  movies browse --query "star wars"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := loadDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		var fetcher pagination.PageFetcher = d.client
		if q := strings.TrimSpace(browseQuery); q != "" {
			fetcher = pagination.SearchFetcher(d.client, q)
		}

		return runBrowse(ctx, cmd.OutOrStdout(), fetcher, d.probe, browseOptions{
			pages:      browsePages,
			minDisplay: d.cfg.Loader.MinDisplay,
		})
	},
}

func init() {
	browseCmd.Flags().IntVar(&browsePages, "pages", 4, "minimum number of pages to load")
	browseCmd.Flags().StringVar(&browseQuery, "query", "", "page through search results instead")

	rootCmd.AddCommand(browseCmd)
}

type browseOptions struct {
	pages      int
	minDisplay time.Duration
}

// runBrowse drives an Engine until opts.pages pages are merged, the
// listing ends or a batch fails.
func runBrowse(ctx context.Context, out io.Writer, fetcher pagination.PageFetcher, probe connectivity.Probe, opts browseOptions) error {
	if opts.pages < 1 {
		opts.pages = 1
	}

	engine := pagination.NewEngine(fetcher, probe, pagination.WithMinDisplay(opts.minDisplay))
	engine.Start(ctx)
	defer engine.Close()

	// failure is only touched by the handler, which runs on the engine loop
	var failure error
	done := make(chan error, 1)
	cancel := engine.Subscribe(func(ev pagination.Event) {
		switch ev.Kind {
		case pagination.EventBatchAppended:
			printMovies(out, ev.Range.Lower, engine.Items(ev.Range))
		case pagination.EventError, pagination.EventOffline:
			failure = ev.Err
		case pagination.EventGenericError:
			failure = errors.New(ev.Message)
		case pagination.EventLoadingChanged:
			if ev.Loading {
				return
			}
			snap := engine.Snapshot()
			if failure == nil && snap.HasMore && snap.CurrentPage < opts.pages {
				engine.LoadNextBatch()
				return
			}
			select {
			case done <- failure:
			default:
			}
		}
	})
	defer cancel()

	engine.Refresh()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	snap := engine.Snapshot()
	fmt.Fprintf(out, "\n%d movies from %d pages", len(snap.Items), snap.CurrentPage)
	if avg, ok := engine.AverageScore(); ok {
		fmt.Fprintf(out, ", average score %.2f", avg)
	}
	fmt.Fprintln(out)

	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	return nil
}
