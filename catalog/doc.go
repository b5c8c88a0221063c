// Package catalog provides a client for the movie catalog REST API.
//
// Every server operation is described by an Endpoint (method, path template,
// body encoding) and dispatched through a single Client.Do. The typed methods
// (Login, ListMovies, CreateMovie, ...) are thin wrappers over that table.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := catalog.NewClient(
//		"http://localhost:8000/api/v1",
//		logger,
//		catalog.WithTimeout(10*time.Second),
//		catalog.WithTokenSource(sessionStore),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	movies, err := client.ListMovies(ctx, catalog.ListParams{Actor: "Mel Brooks"})
//
// # Authentication
//
// The session token is read from the TokenSource on every request and sent
// verbatim in the Authorization header. The client never refreshes tokens.
//
// # Error Handling
//
// Server rejections are returned as *APIError, carrying the HTTP status and
// whatever message, code and per-field errors the server sent. The server may
// also signal failure with HTTP 200 and {"status":0,"error":{...}}; those are
// reported the same way. Requests that never got a response are returned as
// *NetworkError, which matches ErrNetwork:
//
//	if errors.Is(err, catalog.ErrNetwork) {
//		// connectivity problem
//	} else if apiErr, ok := catalog.AsAPIError(err); ok && apiErr.IsUnauthorized() {
//		// token rejected
//	}
package catalog
