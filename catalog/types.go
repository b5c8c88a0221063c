package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Format represents the physical media format of a movie
type Format string

const (
	// FormatVHS is a VHS cassette
	FormatVHS Format = "VHS"
	// FormatDVD is a DVD disc
	FormatDVD Format = "DVD"
	// FormatBluRay is a Blu-ray disc
	FormatBluRay Format = "Blu-ray"
)

// Formats lists every format the catalog accepts
var Formats = []Format{FormatVHS, FormatDVD, FormatBluRay}

// ParseFormat converts user input into a Format, ignoring case and the
// optional hyphen in Blu-ray
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vhs":
		return FormatVHS, nil
	case "dvd":
		return FormatDVD, nil
	case "blu-ray", "bluray", "blu ray":
		return FormatBluRay, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be VHS, DVD or Blu-ray)", s)
	}
}

// Valid reports whether f is one of the accepted formats
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Actor represents an actor nested under a movie
type Actor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Movie represents a catalog movie. List responses may omit actors.
type Movie struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year"`
	Format    Format    `json:"format"`
	Actors    []Actor   `json:"actors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActorNames returns the names of the movie's actors in order
func (m *Movie) ActorNames() []string {
	names := make([]string, 0, len(m.Actors))
	for _, a := range m.Actors {
		names = append(names, a.Name)
	}
	return names
}

// Meta carries list metadata
type Meta struct {
	Total    int `json:"total"`
	Imported int `json:"imported,omitempty"`
}

// MoviesResponse is the envelope returned by list and import
type MoviesResponse struct {
	Data   []Movie `json:"data"`
	Meta   Meta    `json:"meta"`
	Status int     `json:"status"`
}

// movieEnvelope wraps a single movie
type movieEnvelope struct {
	Data   Movie `json:"data"`
	Status int   `json:"status"`
}

// Credentials are sent to create a session
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by a successful login
type Session struct {
	Token string `json:"token"`
}

// Registration describes a new user account
type Registration struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SortField is a field the server can sort the movie list by
type SortField string

const (
	SortByID    SortField = "id"
	SortByTitle SortField = "title"
	SortByYear  SortField = "year"
)

// SortOrder is the direction of the movie list sort
type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// DefaultListLimit asks the server for the whole catalog in one page
const DefaultListLimit = 999999

// ListParams are the query parameters of the movie list
type ListParams struct {
	Title string    `json:"title,omitempty"`
	Actor string    `json:"actor,omitempty"`
	Sort  SortField `json:"sort,omitempty"`
	Order SortOrder `json:"order,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// WithDefaults fills unset sort, order and limit
func (p ListParams) WithDefaults() ListParams {
	if p.Sort == "" {
		p.Sort = SortByTitle
	}
	if p.Order == "" {
		p.Order = OrderAsc
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	return p
}

// CreateMovieRequest is the body for creating a movie
type CreateMovieRequest struct {
	Title  string   `json:"title"`
	Year   int      `json:"year"`
	Format Format   `json:"format"`
	Actors []string `json:"actors"`
}

// UpdateMovieRequest is a partial movie body; nil fields are left untouched
type UpdateMovieRequest struct {
	Title  *string   `json:"title,omitempty"`
	Year   *int      `json:"year,omitempty"`
	Format *Format   `json:"format,omitempty"`
	Actors *[]string `json:"actors,omitempty"`
}

// IsEmpty reports whether the update carries no fields
func (r UpdateMovieRequest) IsEmpty() bool {
	return r.Title == nil && r.Year == nil && r.Format == nil && r.Actors == nil
}

// deleteResponse accepts both {"success":true} and {"status":1}
type deleteResponse struct {
	Success *bool `json:"success"`
	Status  *int  `json:"status"`
}

func (r deleteResponse) ok() bool {
	if r.Success != nil {
		return *r.Success
	}
	if r.Status != nil {
		return *r.Status == 1
	}
	return true
}
