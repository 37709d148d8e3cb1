package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/spf13/cobra"
)

var favoritesIDsOnly bool

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage favorite movies",
	Long: `Manage favorite movies. Favorites are stored in Redis under
redis.favorites_key; without redis.addr they only live for one command.`,
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites sorted by title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := loadDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		if favoritesIDsOnly {
			return listFavoriteIDs(ctx, cmd.OutOrStdout(), d.favorites)
		}
		return listFavorites(ctx, cmd.OutOrStdout(), favorites.NewLoader(d.favorites, d.client, 0))
	},
}

func favoriteAction(use, short string, fn func(ctx context.Context, out io.Writer, svc *favorites.Service, id int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
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

			return fn(ctx, cmd.OutOrStdout(), d.favorites, id)
		},
	}
}

func init() {
	favoritesListCmd.Flags().BoolVar(&favoritesIDsOnly, "ids", false, "print ids only, without fetching details")

	favoritesCmd.AddCommand(
		favoritesListCmd,
		favoriteAction("add", "Add a favorite", func(ctx context.Context, out io.Writer, svc *favorites.Service, id int) error {
			if err := svc.Add(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "added %d\n", id)
			return nil
		}),
		favoriteAction("remove", "Remove a favorite", func(ctx context.Context, out io.Writer, svc *favorites.Service, id int) error {
			if err := svc.Remove(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %d\n", id)
			return nil
		}),
		favoriteAction("toggle", "Flip a favorite", toggleFavorite),
	)

	rootCmd.AddCommand(favoritesCmd)
}

func toggleFavorite(ctx context.Context, out io.Writer, svc *favorites.Service, id int) error {
	fav, err := svc.Toggle(ctx, id)
	if err != nil {
		return err
	}
	if fav {
		fmt.Fprintf(out, "added %d\n", id)
	} else {
		fmt.Fprintf(out, "removed %d\n", id)
	}
	return nil
}

func listFavoriteIDs(ctx context.Context, out io.Writer, svc *favorites.Service) error {
	ids, err := svc.IDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func listFavorites(ctx context.Context, out io.Writer, loader *favorites.Loader) error {
	movies, err := loader.Load(ctx)
	printMovies(out, 0, movies)
	if len(movies) == 0 && err == nil {
		fmt.Fprintln(out, "No favorites yet.")
	}
	return err
}
