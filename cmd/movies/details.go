package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/details"
	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/spf13/cobra"
)

var detailsToggle bool

var detailsCmd = &cobra.Command{
	Use:   "details ID",
	Short: "Show one movie",
	Example: `  movies details 278
  movies details 278 --toggle-favorite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseMovieID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		d, err := loadDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		return runDetails(ctx, cmd.OutOrStdout(), d.client, d.probe, d.favorites, id, detailsToggle)
	},
}

func init() {
	detailsCmd.Flags().BoolVar(&detailsToggle, "toggle-favorite", false, "flip the favorite flag after loading")

	rootCmd.AddCommand(detailsCmd)
}

func runDetails(ctx context.Context, out io.Writer, fetcher details.Fetcher, probe connectivity.Probe, favs *favorites.Service, id int, toggle bool) error {
	model := details.NewModel(id, fetcher, probe, favs)
	defer model.Close()

	if err := model.Fetch(ctx); err != nil {
		return err
	}
	if toggle {
		if _, err := model.ToggleFavorite(ctx); err != nil {
			return err
		}
	}

	st := model.State()
	printDetails(out, st.Details, st.IsFavorite)
	return nil
}

func parseMovieID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid movie id %q", s)
	}
	return id, nil
}
