// Package app ties the session, the movie service and input validation
// together behind the navigable routes of the catalog client.
package app

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Route paths
const (
	RouteLogin       = "/login"
	RouteRegister    = "/register"
	RouteMovies      = "/movies"
	RouteMovie       = "/movies/{id}"
	RouteEditMovie   = "/movies/edit/{id}"
	RouteAddMovie    = "/movies/add"
	RouteImportMovie = "/movies/import"
)

// Resolution is where a requested path ends up
type Resolution struct {
	// Path is the concrete path shown, e.g. /movies/7
	Path string
	// Pattern is the matched route, e.g. /movies/{id}
	Pattern string
	// ID is set for routes that name a movie
	ID int64
	// Redirected reports that Path differs from the requested path
	Redirected bool
}

var public = map[string]bool{
	RouteLogin:    true,
	RouteRegister: true,
}

var router = newRouter()

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	for _, pattern := range []string{RouteLogin, RouteRegister, RouteMovies, RouteAddMovie, RouteImportMovie} {
		r.Get(pattern, noop)
	}
	r.Get("/movies/{id:[0-9]+}", noop)
	r.Get("/movies/edit/{id:[0-9]+}", noop)
	return r
}

// Resolve maps a requested path to the route that is shown. Private routes
// redirect to /login without a session and unknown paths redirect to
// /movies.
func Resolve(path string, authenticated bool) Resolution {
	res, ok := match(path)
	if !ok {
		res, _ = match(RouteMovies)
		res.Redirected = true
	}
	if !public[res.Pattern] && !authenticated {
		res, _ = match(RouteLogin)
		res.Redirected = true
	}
	return res
}

// IsPrivate reports whether a route pattern requires a session
func IsPrivate(pattern string) bool {
	return !public[pattern]
}

// MoviePath renders a movie route for id
func MoviePath(id int64) string {
	return "/movies/" + strconv.FormatInt(id, 10)
}

// EditMoviePath renders the edit route for id
func EditMoviePath(id int64) string {
	return "/movies/edit/" + strconv.FormatInt(id, 10)
}

func match(path string) (Resolution, bool) {
	rctx := chi.NewRouteContext()
	if !router.Match(rctx, http.MethodGet, path) {
		return Resolution{}, false
	}

	pattern := rctx.RoutePattern()
	switch pattern {
	case "/movies/{id:[0-9]+}":
		pattern = RouteMovie
	case "/movies/edit/{id:[0-9]+}":
		pattern = RouteEditMovie
	}

	res := Resolution{Path: path, Pattern: pattern}
	if raw := rctx.URLParam("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Resolution{}, false
		}
		res.ID = id
	}
	return res, true
}
