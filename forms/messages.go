package forms

import (
	"github.com/s0up4200/reelshelf/catalog"
)

// Success messages
const (
	MovieCreated   = "Movie created successfully!"
	MovieUpdated   = "Movie updated successfully!"
	MovieDeleted   = "Movie deleted successfully!"
	MoviesImported = "Movies imported successfully!"
	LoginRequired  = "Please log in to continue."
)

// LoginFailure maps a failed login to the message shown to the user
func LoginFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok {
		switch {
		case apiErr.Contains("invalid password", "wrong password"):
			return "Incorrect password. Please try again."
		case apiErr.Contains("user not found", "no user with this email"):
			return "No user found with this email. Please check your email or register an account."
		case apiErr.Contains("invalid credentials", "authentication_failed"):
			return "Invalid credentials. Please check your email and password."
		default:
			return "Login failed: " + apiErr.Detail()
		}
	}
	if catalog.IsNetworkError(err) {
		return "Could not connect to the server. Please check your internet connection or try again later."
	}
	return "Login failed. An unexpected error occurred. Please try again."
}

// RegisterFailure maps a failed registration to the message shown to the user
func RegisterFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok {
		if apiErr.Contains("user with this email already exists", "duplicate key", "email is already taken", "email_not_unique") {
			return "A user with this email already exists. Please try logging in or use a different email."
		}
		return "Registration failed: " + apiErr.Detail()
	}
	return "Registration failed. Please try again. Network or server error."
}

// CreateFailure maps a failed movie creation to the message shown to the user
func CreateFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok && apiErr.Contains("already exists", "movie_exists") {
		return "The movie with this title already exists."
	}
	return "Failed to create movie. Please check your data and try again."
}

// UpdateFailure maps a failed movie update to the message shown to the user
func UpdateFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok {
		switch {
		case apiErr.IsNotFound():
			return "Movie not found."
		case apiErr.Contains("already exists", "movie_exists"):
			return "The movie with this title already exists."
		}
	}
	return "Failed to update movie. Please check your data and try again."
}

// DeleteFailure maps a failed delete to the message shown to the user
func DeleteFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok && apiErr.IsNotFound() {
		return "Movie not found."
	}
	return "Failed to delete movie. Please try again."
}

// ImportFailure maps a failed import to the message shown to the user
func ImportFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok && apiErr.Detail() != "" {
		return "Failed to import movies: " + apiErr.Detail()
	}
	return "Failed to import movies. Please check the file format and try again."
}

// LoadFailure maps a failed read to the message shown to the user
func LoadFailure(err error) string {
	if apiErr, ok := catalog.AsAPIError(err); ok {
		switch {
		case apiErr.IsNotFound():
			return "Movie not found."
		case apiErr.IsUnauthorized():
			return "Your session is no longer valid. Please log in again."
		}
		return "Failed to load movies: " + apiErr.Detail()
	}
	if catalog.IsNetworkError(err) {
		return "Could not connect to the server. Please check your internet connection or try again later."
	}
	return "Failed to load movies. Please try again."
}
