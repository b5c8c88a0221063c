// Package catalogtest runs an in-memory movie catalog server for tests.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/reelshelf/catalog"
)

// APIPrefix is where the catalog routes are mounted
const APIPrefix = "/api/v1"

type user struct {
	name     string
	password string
}

// Server is a fake catalog API backed by maps
type Server struct {
	t   testing.TB
	srv *httptest.Server

	mu     sync.Mutex
	users  map[string]user
	tokens map[string]string
	movies map[int64]catalog.Movie
	nextID int64
	hits   map[string]int
	// Fail forces the named endpoint to answer with the given status and message
	fail map[string]failure
}

type failure struct {
	status  int
	message string
}

// New starts a server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		t:      t,
		users:  make(map[string]user),
		tokens: make(map[string]string),
		movies: make(map[int64]catalog.Movie),
		nextID: 1,
		hits:   make(map[string]int),
		fail:   make(map[string]failure),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API base URL
func (s *Server) URL() string {
	return s.srv.URL + APIPrefix
}

// Close stops the server early, which turns further requests into network errors
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account and returns a valid token for it
func (s *Server) AddUser(email, name, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{name: name, password: password}
	token := fmt.Sprintf("token-%d", len(s.tokens)+1)
	s.tokens[token] = email
	return token
}

// IssueToken makes token valid for email
func (s *Server) IssueToken(email, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = email
}

// Seed inserts movies directly and returns their ids
func (s *Server) Seed(reqs ...catalog.CreateMovieRequest) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, s.insertLocked(r).ID)
	}
	return ids
}

// Fail makes the named endpoint reply with an error until cleared with status 0
func (s *Server) Fail(endpoint string, status int, message string) {
	s.checkEndpoint(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, endpoint)
		return
	}
	s.fail[endpoint] = failure{status: status, message: message}
}

// Hits returns how many requests reached the named endpoint
func (s *Server) Hits(endpoint string) int {
	s.checkEndpoint(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[endpoint]
}

// TotalHits returns the number of requests served
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// routes mounts one handler per entry of catalog.Endpoints, so the fake
// serves exactly the method, path and auth the client declares
func (s *Server) routes() http.Handler {
	handlers := map[string]http.HandlerFunc{
		catalog.EndpointLogin.Name:        s.handleLogin,
		catalog.EndpointRegister.Name:     s.handleRegister,
		catalog.EndpointListMovies.Name:   s.handleList,
		catalog.EndpointCreateMovie.Name:  s.handleCreate,
		catalog.EndpointImportMovies.Name: s.handleImport,
		catalog.EndpointGetMovie.Name:     s.handleGet,
		catalog.EndpointUpdateMovie.Name:  s.handleUpdate,
		catalog.EndpointDeleteMovie.Name:  s.handleDelete,
	}

	r := chi.NewRouter()
	r.Route(APIPrefix, func(r chi.Router) {
		public := r.With()
		private := r.With(s.requireToken)
		for name, ep := range catalog.Endpoints {
			h, ok := handlers[name]
			if !ok {
				s.t.Fatalf("catalogtest: no handler for endpoint %q", name)
			}
			router := public
			if ep.Auth {
				router = private
			}
			router.Method(ep.Method, ep.Path, s.track(name, h))
		}
	})
	return r
}

func (s *Server) checkEndpoint(name string) {
	s.t.Helper()
	if _, ok := catalog.Endpoints[name]; !ok {
		s.t.Fatalf("catalogtest: unknown endpoint %q", name)
	}
}

func (s *Server) track(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		f, failing := s.fail[name]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]any{"message": f.message})
			return
		}
		next(w, r)
	}
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		_, ok := s.tokens[r.Header.Get("Authorization")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds catalog.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[creds.Email]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "User not found"})
		return
	}
	if u.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid password"})
		return
	}
	token := fmt.Sprintf("token-%d", len(s.tokens)+1)
	s.tokens[token] = creds.Email
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "status": 1})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg catalog.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[reg.Email]; exists {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": 0,
			"error": map[string]any{
				"code":   "EMAIL_NOT_UNIQUE",
				"fields": map[string]string{"email": "NOT_UNIQUE"},
			},
		})
		return
	}
	if reg.Password != reg.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "passwords do not match"})
		return
	}
	s.users[reg.Email] = user{name: reg.Name, password: reg.Password}
	writeJSON(w, http.StatusOK, map[string]any{"status": 1})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title := strings.ToLower(q.Get("title"))
	actor := strings.ToLower(q.Get("actor"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	s.mu.Lock()
	var out []catalog.Movie
	for _, m := range s.movies {
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		if actor != "" && !hasActor(m, actor) {
			continue
		}
		listed := m
		listed.Actors = nil
		out = append(out, listed)
	}
	s.mu.Unlock()

	sortMovies(out, q.Get("sort"), q.Get("order"))
	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []catalog.Movie{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "meta": map[string]int{"total": total}, "status": 1})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	m, found := s.movies[id]
	s.mu.Unlock()
	if !found {
		writeNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": m, "status": 1})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if strings.EqualFold(m.Title, req.Title) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": 0,
				"error": map[string]any{
					"code":   "MOVIE_EXISTS",
					"fields": map[string]string{"title": "NOT_UNIQUE"},
				},
			})
			return
		}
	}
	m := s.insertLocked(req)
	writeJSON(w, http.StatusOK, map[string]any{"data": m, "status": 1})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	var req catalog.UpdateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, found := s.movies[id]
	if !found {
		writeNotFound(w, id)
		return
	}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Year != nil {
		m.Year = *req.Year
	}
	if req.Format != nil {
		m.Format = *req.Format
	}
	if req.Actors != nil {
		m.Actors = s.actorsLocked(*req.Actors)
	}
	m.UpdatedAt = time.Now().UTC()
	s.movies[id] = m
	writeJSON(w, http.StatusOK, map[string]any{"data": m, "status": 1})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.movies[id]; !found {
		writeNotFound(w, id)
		return
	}
	delete(s.movies, id)
	writeJSON(w, http.StatusOK, map[string]any{"status": 1})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("movies")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "missing movies file"})
		return
	}
	defer file.Close()

	reqs, err := catalog.ParseImportFile(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}

	s.mu.Lock()
	imported := make([]catalog.Movie, 0, len(reqs))
	for _, req := range reqs {
		m := s.insertLocked(req)
		m.Actors = nil
		imported = append(imported, m)
	}
	total := len(s.movies)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   imported,
		"meta":   map[string]int{"imported": len(imported), "total": total},
		"status": 1,
	})
}

func (s *Server) insertLocked(req catalog.CreateMovieRequest) catalog.Movie {
	now := time.Now().UTC()
	m := catalog.Movie{
		ID:        s.nextID,
		Title:     req.Title,
		Year:      req.Year,
		Format:    req.Format,
		Actors:    s.actorsLocked(req.Actors),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.movies[m.ID] = m
	return m
}

func (s *Server) actorsLocked(names []string) []catalog.Actor {
	now := time.Now().UTC()
	actors := make([]catalog.Actor, 0, len(names))
	for i, name := range names {
		actors = append(actors, catalog.Actor{ID: int64(i + 1), Name: name, CreatedAt: now, UpdatedAt: now})
	}
	return actors
}

func hasActor(m catalog.Movie, needle string) bool {
	for _, a := range m.Actors {
		if strings.Contains(strings.ToLower(a.Name), needle) {
			return true
		}
	}
	return false
}

func sortMovies(movies []catalog.Movie, field, order string) {
	less := func(a, b catalog.Movie) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	switch field {
	case "id":
		less = func(a, b catalog.Movie) bool { return a.ID < b.ID }
	case "year":
		less = func(a, b catalog.Movie) bool { return a.Year < b.Year }
	}
	desc := strings.EqualFold(order, "DESC")
	sort.SliceStable(movies, func(i, j int) bool {
		if desc {
			return less(movies[j], movies[i])
		}
		return less(movies[i], movies[j])
	})
}

func movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeNotFound(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": 0,
		"error": map[string]any{
			"code":   "MOVIE_NOT_FOUND",
			"fields": map[string]string{"id": strconv.FormatInt(id, 10)},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
