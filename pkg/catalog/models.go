package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ImageBaseURL is the upstream image CDN prefix for poster paths.
const ImageBaseURL = "https://image.tmdb.org/t/p/"

// Poster sizes served by the image CDN.
const (
	PosterSizeList    = "w500"
	PosterSizeDetails = "w200"
)

const releaseDateLayout = "2006-01-02"

// Movie is one catalog entry as returned by list and search endpoints.
// Identity is ID; the remaining fields are display data.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview,omitempty"`
	PosterPath  string   `json:"poster_path,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
}

// PosterURL returns the absolute poster URL for the given size,
// or "" when the movie has no poster.
func (m Movie) PosterURL(size string) string {
	return posterURL(m.PosterPath, size)
}

// FormattedReleaseDate renders the release date as "Jan 02, 2006".
// Unparsable dates are returned verbatim and missing dates as "N/A".
func (m Movie) FormattedReleaseDate() string {
	if m.ReleaseDate == "" {
		return "N/A"
	}
	t, err := time.Parse(releaseDateLayout, m.ReleaseDate)
	if err != nil {
		return m.ReleaseDate
	}
	return t.Format("Jan 02, 2006")
}

// RatingText renders the score with one decimal.
func (m Movie) RatingText() string {
	if m.VoteAverage == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *m.VoteAverage)
}

// Page is one server-returned chunk of movies plus pagination metadata.
// TotalPages is nil when the server did not report it.
type Page struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   *int    `json:"total_pages,omitempty"`
	TotalResults *int    `json:"total_results,omitempty"`
}

// Genre is a named movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the full record for a single movie.
type MovieDetails struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Tagline     string   `json:"tagline,omitempty"`
	Overview    string   `json:"overview,omitempty"`
	PosterPath  string   `json:"poster_path,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
	Genres      []Genre  `json:"genres,omitempty"`
}

// Movie converts the details record into a list entry.
func (d MovieDetails) Movie() Movie {
	return Movie{
		ID:          d.ID,
		Title:       d.Title,
		Overview:    d.Overview,
		PosterPath:  d.PosterPath,
		ReleaseDate: d.ReleaseDate,
		VoteAverage: d.VoteAverage,
	}
}

// PosterURL returns the absolute poster URL for the given size.
func (d MovieDetails) PosterURL(size string) string {
	return posterURL(d.PosterPath, size)
}

// FormattedReleaseDate renders the release date as "2 january 2006".
func (d MovieDetails) FormattedReleaseDate() string {
	if d.ReleaseDate == "" {
		return "N/A"
	}
	t, err := time.Parse(releaseDateLayout, d.ReleaseDate)
	if err != nil {
		return d.ReleaseDate
	}
	return strings.ToLower(t.Format("2 January 2006"))
}

// RatingText renders the score rounded to an integer.
func (d MovieDetails) RatingText() string {
	if d.VoteAverage == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", math.Round(*d.VoteAverage))
}

// GenreNames returns the genre names in server order.
func (d MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

func posterURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = PosterSizeList
	}
	return ImageBaseURL + size + path
}
