package movies

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/catalogtest"
	"github.com/s0up4200/reelshelf/querycache"
)

var (
	casablanca = catalog.CreateMovieRequest{Title: "Casablanca", Year: 1942, Format: catalog.FormatDVD, Actors: []string{"Humphrey Bogart"}}
	alien      = catalog.CreateMovieRequest{Title: "Alien", Year: 1979, Format: catalog.FormatBluRay, Actors: []string{"Sigourney Weaver"}}
	jaws       = catalog.CreateMovieRequest{Title: "Jaws", Year: 1975, Format: catalog.FormatVHS, Actors: []string{"Roy Scheider"}}
)

func newTestService(t *testing.T) (*Service, *catalogtest.Server) {
	t.Helper()
	srv := catalogtest.New(t)
	token := srv.AddUser("user@example.com", "User", "secret1")

	client, err := catalog.NewClient(srv.URL(), zerolog.Nop(), catalog.WithTokenSource(catalog.StaticToken(token)))
	require.NoError(t, err)

	return NewService(client, querycache.New(), zerolog.Nop()), srv
}

func titles(movies []catalog.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func TestListMovies_Cached(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Seed(casablanca, alien)
	ctx := context.Background()

	first, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alien", "Casablanca"}, titles(first.Data))

	// explicit defaults share the cache entry with the zero value
	second, err := svc.ListMovies(ctx, catalog.ListParams{Sort: catalog.SortByTitle, Order: catalog.OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, srv.Hits(catalog.EndpointListMovies.Name))

	_, err = svc.ListMovies(ctx, catalog.ListParams{Title: "ali"})
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(catalog.EndpointListMovies.Name))
}

func TestCreateMovie_ListShowsNewEntry(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Seed(casablanca)
	ctx := context.Background()

	before, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	require.Len(t, before.Data, 1)

	created, err := svc.CreateMovie(ctx, alien)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	after, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alien", "Casablanca"}, titles(after.Data))
	assert.Equal(t, 2, srv.Hits(catalog.EndpointListMovies.Name))
}

func TestCreateMovie_FailureKeepsCache(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Seed(casablanca)
	ctx := context.Background()

	_, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)

	_, err = svc.CreateMovie(ctx, casablanca)
	require.Error(t, err)
	apiErr, ok := catalog.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.Contains("movie_exists"))

	_, err = svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits(catalog.EndpointListMovies.Name))
}

func TestUpdateMovie_OnlyThatItemRefetched(t *testing.T) {
	svc, srv := newTestService(t)
	ids := srv.Seed(casablanca, alien)
	ctx := context.Background()

	for _, id := range ids {
		_, err := svc.GetMovie(ctx, id)
		require.NoError(t, err)
	}
	_, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 2, srv.Hits(catalog.EndpointGetMovie.Name))

	newTitle := "Casablanca (Restored)"
	_, err = svc.UpdateMovie(ctx, ids[0], catalog.UpdateMovieRequest{Title: &newTitle})
	require.NoError(t, err)

	// the other movie is served from cache
	other, err := svc.GetMovie(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Alien", other.Title)
	assert.Equal(t, 2, srv.Hits(catalog.EndpointGetMovie.Name))

	updated, err := svc.GetMovie(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, 3, srv.Hits(catalog.EndpointGetMovie.Name))

	list, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Contains(t, titles(list.Data), newTitle)
	assert.Equal(t, 2, srv.Hits(catalog.EndpointListMovies.Name))
}

func TestDeleteMovie_RemovedFromList(t *testing.T) {
	svc, srv := newTestService(t)
	ids := srv.Seed(casablanca, alien)
	ctx := context.Background()

	_, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	_, err = svc.GetMovie(ctx, ids[0])
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMovie(ctx, ids[0]))

	list, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alien"}, titles(list.Data))

	_, err = svc.GetMovie(ctx, ids[0])
	require.Error(t, err)
	apiErr, ok := catalog.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
}

func TestImportMovies_Invalidates(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	empty, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, empty.Data)

	file := "Title: Jaws\nRelease Year: 1975\nFormat: VHS\nStars: Roy Scheider, Robert Shaw\n\n" +
		"Title: Alien\nRelease Year: 1979\nFormat: Blu-Ray\nStars: Sigourney Weaver\n"
	resp, err := svc.ImportMovies(ctx, "movies.txt", strings.NewReader(file))
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)

	list, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alien", "Jaws"}, titles(list.Data))
	assert.Equal(t, 2, srv.Hits(catalog.EndpointListMovies.Name))
}

func TestInvalidateAll(t *testing.T) {
	svc, srv := newTestService(t)
	ids := srv.Seed(casablanca)
	ctx := context.Background()

	_, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	_, err = svc.GetMovie(ctx, ids[0])
	require.NoError(t, err)

	assert.Equal(t, 2, svc.InvalidateAll())

	for _, e := range svc.Cache().Entries() {
		assert.True(t, e.Stale, e.Key)
	}
	assert.Equal(t, 0, svc.InvalidateAll(), "already stale entries are not counted")

	_, err = svc.GetMovie(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(catalog.EndpointGetMovie.Name))
}

func TestLookupTitle(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Seed(casablanca, alien, jaws, catalog.CreateMovieRequest{Title: "Aliens", Year: 1986, Format: catalog.FormatDVD, Actors: []string{"Sigourney Weaver"}})
	ctx := context.Background()

	m, err := svc.LookupTitle(ctx, "alien")
	require.NoError(t, err)
	assert.Equal(t, "Alien", m.Title)

	m, err = svc.LookupTitle(ctx, "jaw")
	require.NoError(t, err)
	assert.Equal(t, "Jaws", m.Title)

	_, err = svc.LookupTitle(ctx, "a")
	assert.ErrorContains(t, err, "use the id")

	_, err = svc.LookupTitle(ctx, "zzz")
	assert.ErrorContains(t, err, "no movie matches")
}

func TestBatchDelete(t *testing.T) {
	svc, srv := newTestService(t)
	ids := srv.Seed(casablanca, alien, jaws)
	ctx := context.Background()

	_, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)

	result := svc.BatchDelete(ctx, []int64{ids[0], ids[2], 999})
	assert.Equal(t, 3, result.Requested)
	assert.ElementsMatch(t, []int64{ids[0], ids[2]}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(999), result.Failed[0].MovieID)
	assert.Contains(t, result.Failed[0].Error(), "999")

	list, err := svc.ListMovies(ctx, catalog.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alien"}, titles(list.Data))

	empty := svc.BatchDelete(ctx, nil)
	assert.Zero(t, empty.Requested)
}

func TestConsoleFormatter(t *testing.T) {
	f := NewConsoleFormatter(false)

	assert.Equal(t, "No movies found", f.FormatMovieList(nil, FormatOptions{}))

	movies := []catalog.Movie{
		{ID: 1, Title: "Alien", Year: 1979, Format: catalog.FormatBluRay, Actors: []catalog.Actor{{Name: "Sigourney Weaver"}}},
		{ID: 2, Title: "Jaws", Year: 1975, Format: catalog.FormatVHS},
	}
	out := f.FormatMovieList(movies, FormatOptions{ShowActors: true, ShowIDs: true})
	assert.Contains(t, out, "Movies (2):")
	assert.Contains(t, out, "├── Alien (1979) [Blu-ray] #1")
	assert.Contains(t, out, "╰── Jaws (1975) [VHS] #2")
	assert.Contains(t, out, "Stars: Sigourney Weaver")

	detail := f.FormatMovie(movies[0])
	assert.Contains(t, detail, "Format: Blu-ray")
	assert.Contains(t, detail, "- Sigourney Weaver")

	del := f.FormatMoviesToDelete(movies[:1])
	assert.Contains(t, del, "Movie to be deleted (1):")
}
