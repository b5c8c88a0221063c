package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a movie catalog API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	tokens     TokenSource
	logger     zerolog.Logger
}

// NewClient creates a new catalog client
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q is not an absolute URL", ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "reelshelf",
		tokens:    StaticToken(""),
		logger:    logger.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do dispatches any endpoint and decodes a successful body into out (if non-nil)
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	path, err := r.path()
	if err != nil {
		return err
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", r.Endpoint.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Endpoint.Method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", r.Endpoint.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", token)
	} else if r.Endpoint.Auth {
		c.logger.Debug().Str("endpoint", r.Endpoint.Name).Msg("No session token for authenticated endpoint")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: r.Endpoint.Name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Endpoint: r.Endpoint.Name, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug().
		Str("endpoint", r.Endpoint.Name).
		Str("method", r.Endpoint.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Catalog API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 || isFailureEnvelope(respBody) {
		return parseError(r.Endpoint.Name, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: %w: %v", r.Endpoint.Name, ErrUnexpectedResponse, err)
	}
	return nil
}

func encodeBody(r Request) (io.Reader, string, error) {
	switch r.Endpoint.Body {
	case BodyJSON:
		if r.Body == nil {
			return nil, "", nil
		}
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	case BodyMultipart:
		if r.File == nil || r.File.Content == nil {
			return nil, "", fmt.Errorf("multipart endpoint requires a file")
		}
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile(r.File.Field, r.File.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, r.File.Content); err != nil {
			return nil, "", err
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	default:
		return nil, "", nil
	}
}

// Login exchanges credentials for a session token
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var session Session
	if err := c.Do(ctx, Request{Endpoint: EndpointLogin, Body: creds}, &session); err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, fmt.Errorf("login: %w: no token in response", ErrUnexpectedResponse)
	}
	c.logger.Debug().Str("email", creds.Email).Msg("Session created")
	return &session, nil
}

// Register creates a user account
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.Do(ctx, Request{Endpoint: EndpointRegister, Body: reg}, nil)
}

// ListMovies searches the catalog
func (c *Client) ListMovies(ctx context.Context, params ListParams) (*MoviesResponse, error) {
	params = params.WithDefaults()

	q := url.Values{}
	if params.Title != "" {
		q.Set("title", params.Title)
	}
	if params.Actor != "" {
		q.Set("actor", params.Actor)
	}
	q.Set("sort", string(params.Sort))
	q.Set("order", string(params.Order))
	q.Set("limit", strconv.Itoa(params.Limit))

	var resp MoviesResponse
	if err := c.Do(ctx, Request{Endpoint: EndpointListMovies, Query: q}, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(resp.Data)).Int("total", resp.Meta.Total).Msg("Retrieved movies")
	return &resp, nil
}

// GetMovie fetches one movie with its actors
func (c *Client) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	var env movieEnvelope
	if err := c.Do(ctx, Request{Endpoint: EndpointGetMovie, ID: id}, &env); err != nil {
		return nil, err
	}
	if env.Data.ID == 0 {
		return nil, &APIError{Endpoint: EndpointGetMovie.Name, StatusCode: http.StatusNotFound, Message: "movie not found"}
	}
	return &env.Data, nil
}

// CreateMovie adds a movie to the catalog
func (c *Client) CreateMovie(ctx context.Context, body CreateMovieRequest) (*Movie, error) {
	var env movieEnvelope
	if err := c.Do(ctx, Request{Endpoint: EndpointCreateMovie, Body: body}, &env); err != nil {
		return nil, err
	}
	c.logger.Info().Int64("movie_id", env.Data.ID).Str("title", env.Data.Title).Msg("Created movie")
	return &env.Data, nil
}

// UpdateMovie patches the given fields of a movie
func (c *Client) UpdateMovie(ctx context.Context, id int64, body UpdateMovieRequest) (*Movie, error) {
	var env movieEnvelope
	if err := c.Do(ctx, Request{Endpoint: EndpointUpdateMovie, ID: id, Body: body}, &env); err != nil {
		return nil, err
	}
	c.logger.Info().Int64("movie_id", id).Msg("Updated movie")
	return &env.Data, nil
}

// DeleteMovie removes a movie from the catalog
func (c *Client) DeleteMovie(ctx context.Context, id int64) error {
	var resp deleteResponse
	if err := c.Do(ctx, Request{Endpoint: EndpointDeleteMovie, ID: id}, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return &APIError{Endpoint: EndpointDeleteMovie.Name, StatusCode: http.StatusOK, Message: "server did not confirm deletion"}
	}
	c.logger.Info().Int64("movie_id", id).Msg("Deleted movie")
	return nil
}

// ImportMovies uploads a movies text file as multipart field "movies"
func (c *Client) ImportMovies(ctx context.Context, filename string, content io.Reader) (*MoviesResponse, error) {
	req := Request{
		Endpoint: EndpointImportMovies,
		File:     &FilePart{Field: "movies", Filename: filename, Content: content},
	}
	var resp MoviesResponse
	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	c.logger.Info().Str("file", filename).Int("imported", len(resp.Data)).Msg("Imported movies")
	return &resp, nil
}
