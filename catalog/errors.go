package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid catalog client configuration")
	// ErrNetwork matches every transport-level failure
	ErrNetwork = errors.New("could not reach the catalog server")
	// ErrUnexpectedResponse indicates a 2xx body that could not be decoded
	ErrUnexpectedResponse = errors.New("unexpected response from catalog server")
)

// APIError is a rejection reported by the catalog server
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Detail())
}

// Detail returns the most specific human readable text the server sent
func (e *APIError) Detail() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.StatusCode)
	}
}

// Contains reports whether the server message, code or field errors mention
// any of the given substrings, ignoring case
func (e *APIError) Contains(substrs ...string) bool {
	haystack := strings.ToLower(e.Message + " " + e.Code)
	for _, v := range e.Fields {
		haystack += " " + strings.ToLower(v)
	}
	for _, s := range substrs {
		if strings.Contains(haystack, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || strings.Contains(strings.ToUpper(e.Code), "NOT_FOUND")
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// NetworkError wraps a request that never produced a response
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNetwork) match any NetworkError
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// AsAPIError extracts an APIError from err
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseError builds an APIError from a response body. The server sometimes
// reports failures as HTTP 200 with {"status":0,"error":{...}}.
func parseError(endpoint string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       string(body),
	}
	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	doc := gjson.ParseBytes(body)
	for _, path := range []string{"message", "error.message", "data.message"} {
		if v := doc.Get(path); v.Exists() && v.Type == gjson.String {
			apiErr.Message = v.String()
			break
		}
	}
	if e := doc.Get("error"); e.Type == gjson.String && apiErr.Message == "" {
		apiErr.Message = e.String()
	}
	apiErr.Code = doc.Get("error.code").String()

	if fields := doc.Get("error.fields"); fields.IsObject() {
		apiErr.Fields = make(map[string]string)
		fields.ForEach(func(key, value gjson.Result) bool {
			apiErr.Fields[key.String()] = value.String()
			return true
		})
	}
	return apiErr
}

// isFailureEnvelope detects {"status":0,"error":...} bodies
func isFailureEnvelope(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	status := gjson.GetBytes(body, "status")
	return status.Exists() && status.Type == gjson.Number && status.Int() == 0 &&
		gjson.GetBytes(body, "error").Exists()
}
