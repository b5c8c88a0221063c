package catalog

import (
	"context"
	"io"
)

// API defines the catalog operations, one per server endpoint
type API interface {
	// Login exchanges credentials for a session token
	Login(ctx context.Context, creds Credentials) (*Session, error)

	// Register creates a user account
	Register(ctx context.Context, reg Registration) error

	// ListMovies searches the catalog by title and actor
	ListMovies(ctx context.Context, params ListParams) (*MoviesResponse, error)

	// GetMovie fetches one movie including actors
	GetMovie(ctx context.Context, id int64) (*Movie, error)

	CreateMovie(ctx context.Context, body CreateMovieRequest) (*Movie, error)
	UpdateMovie(ctx context.Context, id int64, body UpdateMovieRequest) (*Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	// ImportMovies uploads a text file of movies
	ImportMovies(ctx context.Context, filename string, content io.Reader) (*MoviesResponse, error)
}

var _ API = (*Client)(nil)
