package catalog

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// BodyKind describes how an endpoint's request body is encoded
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyMultipart
)

// Endpoint is a declarative description of one server operation
type Endpoint struct {
	Name   string
	Method string
	// Path is a template; "{id}" is substituted from Request.ID
	Path string
	Auth bool
	Body BodyKind
}

// The catalog API surface.
var (
	EndpointLogin        = Endpoint{Name: "login", Method: http.MethodPost, Path: "/sessions", Body: BodyJSON}
	EndpointRegister     = Endpoint{Name: "register", Method: http.MethodPost, Path: "/users", Body: BodyJSON}
	EndpointListMovies   = Endpoint{Name: "listMovies", Method: http.MethodGet, Path: "/movies", Auth: true}
	EndpointGetMovie     = Endpoint{Name: "getMovie", Method: http.MethodGet, Path: "/movies/{id}", Auth: true}
	EndpointCreateMovie  = Endpoint{Name: "createMovie", Method: http.MethodPost, Path: "/movies", Auth: true, Body: BodyJSON}
	EndpointUpdateMovie  = Endpoint{Name: "updateMovie", Method: http.MethodPatch, Path: "/movies/{id}", Auth: true, Body: BodyJSON}
	EndpointDeleteMovie  = Endpoint{Name: "deleteMovie", Method: http.MethodDelete, Path: "/movies/{id}", Auth: true}
	EndpointImportMovies = Endpoint{Name: "importMovies", Method: http.MethodPost, Path: "/movies/import", Auth: true, Body: BodyMultipart}
)

// Endpoints lists every operation, keyed by name
var Endpoints = map[string]Endpoint{
	EndpointLogin.Name:        EndpointLogin,
	EndpointRegister.Name:     EndpointRegister,
	EndpointListMovies.Name:   EndpointListMovies,
	EndpointGetMovie.Name:     EndpointGetMovie,
	EndpointCreateMovie.Name:  EndpointCreateMovie,
	EndpointUpdateMovie.Name:  EndpointUpdateMovie,
	EndpointDeleteMovie.Name:  EndpointDeleteMovie,
	EndpointImportMovies.Name: EndpointImportMovies,
}

// FilePart is a file sent in a multipart body
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Request is one invocation of an Endpoint
type Request struct {
	Endpoint Endpoint
	ID       int64
	Query    url.Values
	// Body is JSON-encoded for BodyJSON endpoints
	Body any
	// File is sent for BodyMultipart endpoints
	File *FilePart
}

// path expands the endpoint template
func (r Request) path() (string, error) {
	p := r.Endpoint.Path
	if strings.Contains(p, "{id}") {
		if r.ID <= 0 {
			return "", fmt.Errorf("%s: invalid movie id %d", r.Endpoint.Name, r.ID)
		}
		p = strings.ReplaceAll(p, "{id}", fmt.Sprintf("%d", r.ID))
	}
	if len(r.Query) > 0 {
		p += "?" + r.Query.Encode()
	}
	return p, nil
}
