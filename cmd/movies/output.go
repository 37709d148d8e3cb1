package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
)

func printMovies(out io.Writer, offset int, movies []catalog.Movie) {
	for i, m := range movies {
		fmt.Fprintf(out, "%4d. %-48s %4s  %s\n", offset+i+1, truncate(m.Title, 48), m.RatingText(), m.FormattedReleaseDate())
	}
}

func printDetails(out io.Writer, d *catalog.MovieDetails, favorite bool) {
	fmt.Fprintf(out, "%s (#%d)\n", d.Title, d.ID)
	if d.Tagline != "" {
		fmt.Fprintf(out, "  %s\n", d.Tagline)
	}
	fmt.Fprintf(out, "Released: %s\n", d.FormattedReleaseDate())
	fmt.Fprintf(out, "Rating:   %s\n", d.RatingText())
	if d.Runtime > 0 {
		fmt.Fprintf(out, "Runtime:  %d min\n", d.Runtime)
	}
	if genres := d.GenreNames(); len(genres) > 0 {
		fmt.Fprintf(out, "Genres:   %s\n", strings.Join(genres, ", "))
	}
	fmt.Fprintf(out, "Favorite: %t\n", favorite)
	if d.Overview != "" {
		fmt.Fprintf(out, "\n%s\n", d.Overview)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
