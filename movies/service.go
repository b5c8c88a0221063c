// Package movies binds catalog operations to the query cache: reads are
// cached under tags and successful writes invalidate them.
package movies

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/querycache"
)

// TagType is the cache tag type for movie results
const TagType = "Movies"

// Cache operation names
const (
	opListMovies = "listMovies"
	opGetMovie   = "getMovie"
)

// ListTag is provided by every list read
var ListTag = querycache.ListTag(TagType)

// ItemTag is provided by the read of a single movie
func ItemTag(id int64) querycache.Tag {
	return querycache.ItemTag(TagType, id)
}

// Service exposes cached queries and invalidating mutations
type Service struct {
	api    catalog.API
	cache  *querycache.Cache
	logger zerolog.Logger
}

// NewService creates a movie service over api and cache
func NewService(api catalog.API, cache *querycache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		cache:  cache,
		logger: logger.With().Str("component", "movies").Logger(),
	}
}

// Cache returns the underlying cache
func (s *Service) Cache() *querycache.Cache {
	return s.cache
}

// ListMovies returns the movie list for params, served from cache when fresh
func (s *Service) ListMovies(ctx context.Context, params catalog.ListParams) (*catalog.MoviesResponse, error) {
	params = params.WithDefaults()
	return querycache.Fetch(ctx, s.cache, opListMovies, params, []querycache.Tag{ListTag},
		func(ctx context.Context) (*catalog.MoviesResponse, error) {
			return s.api.ListMovies(ctx, params)
		})
}

// GetMovie returns one movie, served from cache when fresh
func (s *Service) GetMovie(ctx context.Context, id int64) (*catalog.Movie, error) {
	return querycache.Fetch(ctx, s.cache, opGetMovie, id, []querycache.Tag{ItemTag(id)},
		func(ctx context.Context) (*catalog.Movie, error) {
			return s.api.GetMovie(ctx, id)
		})
}

// CreateMovie creates a movie and invalidates the list
func (s *Service) CreateMovie(ctx context.Context, req catalog.CreateMovieRequest) (*catalog.Movie, error) {
	movie, err := s.api.CreateMovie(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate("create", ListTag)
	return movie, nil
}

// UpdateMovie updates a movie and invalidates the list and that movie
func (s *Service) UpdateMovie(ctx context.Context, id int64, req catalog.UpdateMovieRequest) (*catalog.Movie, error) {
	movie, err := s.api.UpdateMovie(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate("update", ListTag, ItemTag(id))
	return movie, nil
}

// DeleteMovie deletes a movie and invalidates the list and that movie
func (s *Service) DeleteMovie(ctx context.Context, id int64) error {
	if err := s.api.DeleteMovie(ctx, id); err != nil {
		return err
	}
	s.invalidate("delete", ListTag, ItemTag(id))
	return nil
}

// ImportMovies uploads an import file and invalidates the list
func (s *Service) ImportMovies(ctx context.Context, filename string, content io.Reader) (*catalog.MoviesResponse, error) {
	resp, err := s.api.ImportMovies(ctx, filename, content)
	if err != nil {
		return nil, err
	}
	s.invalidate("import", ListTag)
	return resp, nil
}

// InvalidateAll marks every cached movie result stale and returns how many
// entries were affected
func (s *Service) InvalidateAll() int {
	tags := []querycache.Tag{ListTag}
	for _, e := range s.cache.Entries() {
		for _, t := range e.Tags {
			if t.Type == TagType && t.ID != "" {
				tags = append(tags, t)
			}
		}
	}
	return s.invalidate("refresh", tags...)
}

func (s *Service) invalidate(mutation string, tags ...querycache.Tag) int {
	n := s.cache.Invalidate(tags...)
	s.logger.Debug().
		Str("mutation", mutation).
		Int("entries", n).
		Msg("Invalidated cached movies")
	return n
}

// LookupTitle resolves a title to a movie id using the cached list. An
// exact (case-insensitive) match wins; otherwise the title must be unique
// among substring matches.
func (s *Service) LookupTitle(ctx context.Context, title string) (*catalog.Movie, error) {
	resp, err := s.ListMovies(ctx, catalog.ListParams{Title: title})
	if err != nil {
		return nil, err
	}
	for i := range resp.Data {
		if strings.EqualFold(strings.TrimSpace(resp.Data[i].Title), strings.TrimSpace(title)) {
			return &resp.Data[i], nil
		}
	}
	switch len(resp.Data) {
	case 0:
		return nil, fmt.Errorf("no movie matches %q", title)
	case 1:
		return &resp.Data[0], nil
	default:
		return nil, fmt.Errorf("%d movies match %q, use the id instead", len(resp.Data), title)
	}
}
