package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/Sternrassler/movie-catalog/pkg/pagination"
	"github.com/Sternrassler/movie-catalog/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunBrowse_LoadsUntilExhausted(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	var out bytes.Buffer

	err := runBrowse(testContext(t), &out, client, connectivity.NewStatic(true), browseOptions{pages: 10})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "   1. Movie 001")
	assert.Contains(t, text, "  45. Movie 045")
	assert.Contains(t, text, "45 movies from 3 pages, average score 4.83")
	assert.ElementsMatch(t, []int{1, 2, 3}, mock.RequestedPages())
}

func TestRunBrowse_StopsAtPageLimit(t *testing.T) {
	mock := newMockCatalog(t, 100)
	client := newTestClient(t, mock)
	var out bytes.Buffer

	err := runBrowse(testContext(t), &out, client, nil, browseOptions{pages: 1})
	require.NoError(t, err)

	// one batch is two pages
	assert.Contains(t, out.String(), "40 movies from 2 pages")
	assert.ElementsMatch(t, []int{1, 2}, mock.RequestedPages())
}

func TestRunBrowse_SearchResults(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	var out bytes.Buffer

	err := runBrowse(testContext(t), &out, pagination.SearchFetcher(client, "Movie 04"), nil, browseOptions{pages: 2})
	require.NoError(t, err)

	// the second page of the first batch is empty but still counts
	assert.Contains(t, out.String(), "6 movies from 2 pages")
}

func TestRunBrowse_Offline(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	var out bytes.Buffer

	err := runBrowse(testContext(t), &out, client, connectivity.NewStatic(false), browseOptions{pages: 2})

	assert.ErrorIs(t, err, connectivity.ErrOffline)
	assert.Zero(t, mock.RequestCount())
}

func TestRunBrowse_FirstBatchFails(t *testing.T) {
	mock := newMockCatalog(t, 45)
	mock.FailPage(1, 1)
	mock.FailPage(2, 1)
	client := newTestClient(t, mock)
	var out bytes.Buffer

	err := runBrowse(testContext(t), &out, client, nil, browseOptions{pages: 2})

	assert.Error(t, err)
	assert.Contains(t, out.String(), "0 movies from 0 pages")
}

func TestRunSearch(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	ctx := testContext(t)

	t.Run("results", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runSearch(ctx, &out, client, nil, search.DefaultConfig(), "  Movie 00 "))
		assert.Contains(t, out.String(), `9 results for "Movie 00"`)
		assert.Contains(t, out.String(), "Movie 009")
	})

	t.Run("no results", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runSearch(ctx, &out, client, nil, search.DefaultConfig(), "zzz"))
		assert.Contains(t, out.String(), "No movies found.")
	})

	t.Run("too short", func(t *testing.T) {
		var out bytes.Buffer
		err := runSearch(ctx, &out, client, nil, search.DefaultConfig(), "ab")
		assert.ErrorContains(t, err, "at least 3 characters")
	})

	t.Run("offline", func(t *testing.T) {
		var out bytes.Buffer
		err := runSearch(ctx, &out, client, connectivity.NewStatic(false), search.DefaultConfig(), "matrix")
		assert.ErrorIs(t, err, connectivity.ErrOffline)
	})
}

func TestRunDetails(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	favs := favorites.NewService(favorites.NewMemoryStore())
	ctx := testContext(t)

	var out bytes.Buffer
	require.NoError(t, runDetails(ctx, &out, client, nil, favs, 7, true))

	text := out.String()
	assert.Contains(t, text, "Movie 007 (#7)")
	assert.Contains(t, text, "Released: 31 march 1999")
	assert.Contains(t, text, "Rating:   8")
	assert.Contains(t, text, "Genres:   Drama")
	assert.Contains(t, text, "Favorite: true")

	fav, err := favs.IsFavorite(ctx, 7)
	require.NoError(t, err)
	assert.True(t, fav)

	err = runDetails(ctx, &out, client, nil, favs, 999, false)
	assert.Error(t, err)
}

func TestFavoritesCommands(t *testing.T) {
	mock := newMockCatalog(t, 45)
	client := newTestClient(t, mock)
	svc := favorites.NewService(favorites.NewMemoryStore())
	ctx := testContext(t)

	var out bytes.Buffer
	require.NoError(t, listFavorites(ctx, &out, favorites.NewLoader(svc, client, 0)))
	assert.Contains(t, out.String(), "No favorites yet.")

	require.NoError(t, svc.Add(ctx, 3))
	require.NoError(t, svc.Add(ctx, 1))
	require.NoError(t, toggleFavorite(ctx, &out, svc, 12))
	require.NoError(t, toggleFavorite(ctx, &out, svc, 12))
	assert.Contains(t, out.String(), "added 12")
	assert.Contains(t, out.String(), "removed 12")

	out.Reset()
	require.NoError(t, listFavorites(ctx, &out, favorites.NewLoader(svc, client, 0)))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Movie 001")
	assert.Contains(t, lines[1], "Movie 003")

	out.Reset()
	require.NoError(t, listFavoriteIDs(ctx, &out, svc))
	assert.ElementsMatch(t, []string{"1", "3"}, strings.Fields(out.String()))
}

func TestParseMovieID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"278", 278, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMovieID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url: https://api.themoviedb.org/3")

	// refuses to overwrite without --force
	rootCmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, rootCmd.Execute())
}
