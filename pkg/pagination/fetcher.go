package pagination

import (
	"context"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
)

// PageFetcher fetches one page of a listing.
// *catalog.Client satisfies it for the top rated listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*catalog.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page int) (*catalog.Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) (*catalog.Page, error) {
	return f(ctx, page)
}

// Searcher fetches one page of search results.
type Searcher interface {
	SearchPage(ctx context.Context, query string, page int) (*catalog.Page, error)
}

// SearchFetcher paginates the search results for query.
func SearchFetcher(s Searcher, query string) PageFetcher {
	return PageFetcherFunc(func(ctx context.Context, page int) (*catalog.Page, error) {
		return s.SearchPage(ctx, query, page)
	})
}
