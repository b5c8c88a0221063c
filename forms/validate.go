// Package forms validates user input before it is sent to the catalog and
// maps server failures to the messages shown to the user.
package forms

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/s0up4200/reelshelf/catalog"
)

// Year bounds accepted for a movie
const (
	MinYear = 1850
	MaxYear = 2021
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// ImportExtension is the only accepted import file extension
const ImportExtension = ".txt"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	actorPattern = regexp.MustCompile(`^[a-zA-Z\s\-.']+$`)
)

// ErrValidation matches every ValidationError
var ErrValidation = errors.New("validation failed")

// ValidationError reports input rejected before any request is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidateEmail checks the address shape
func ValidateEmail(email string) error {
	if email == "" || !emailPattern.MatchString(email) {
		return invalid("email", "Please enter a valid email address.")
	}
	return nil
}

// ValidateLogin checks login credentials
func ValidateLogin(creds catalog.Credentials) error {
	if err := ValidateEmail(creds.Email); err != nil {
		return err
	}
	if creds.Password == "" {
		return invalid("password", "Please enter your password.")
	}
	return nil
}

// ValidateRegistration checks a sign-up form
func ValidateRegistration(reg catalog.Registration) error {
	if err := ValidateEmail(reg.Email); err != nil {
		return err
	}
	if strings.TrimSpace(reg.Name) == "" {
		return invalid("name", "Please enter your full name.")
	}
	if len(reg.Password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}
	if reg.Password != reg.ConfirmPassword {
		return invalid("confirmPassword", "Passwords do not match.")
	}
	return nil
}

// MovieForm is raw movie input; Actors is a comma separated list
type MovieForm struct {
	Title  string
	Year   int
	Format string
	Actors string
}

// ValidateMovie checks a movie form and returns the request to send
func ValidateMovie(form MovieForm) (catalog.CreateMovieRequest, error) {
	title, err := validateTitle(form.Title)
	if err != nil {
		return catalog.CreateMovieRequest{}, err
	}
	if err := validateYear(form.Year); err != nil {
		return catalog.CreateMovieRequest{}, err
	}
	format, err := validateFormat(form.Format)
	if err != nil {
		return catalog.CreateMovieRequest{}, err
	}
	actors, err := validateActors(form.Actors)
	if err != nil {
		return catalog.CreateMovieRequest{}, err
	}

	return catalog.CreateMovieRequest{
		Title:  title,
		Year:   form.Year,
		Format: format,
		Actors: actors,
	}, nil
}

// MovieUpdateForm is raw partial movie input; nil fields are unchanged
type MovieUpdateForm struct {
	Title  *string
	Year   *int
	Format *string
	Actors *string
}

// ValidateMovieUpdate applies the movie rules to the supplied fields
func ValidateMovieUpdate(form MovieUpdateForm) (catalog.UpdateMovieRequest, error) {
	var req catalog.UpdateMovieRequest

	if form.Title != nil {
		title, err := validateTitle(*form.Title)
		if err != nil {
			return req, err
		}
		req.Title = &title
	}
	if form.Year != nil {
		if err := validateYear(*form.Year); err != nil {
			return req, err
		}
		year := *form.Year
		req.Year = &year
	}
	if form.Format != nil {
		format, err := validateFormat(*form.Format)
		if err != nil {
			return req, err
		}
		req.Format = &format
	}
	if form.Actors != nil {
		actors, err := validateActors(*form.Actors)
		if err != nil {
			return req, err
		}
		req.Actors = &actors
	}

	if req.IsEmpty() {
		return req, invalid("", "Nothing to update.")
	}
	return req, nil
}

// ValidateImportFile checks the selected import file. An empty name means
// no file was selected.
func ValidateImportFile(name string, size int64) error {
	if name == "" {
		return invalid("file", "Please select a file to import.")
	}
	if size == 0 {
		return invalid("file", "The file is empty.")
	}
	if !strings.EqualFold(filepath.Ext(name), ImportExtension) {
		return invalid("file", "Please select a .txt file.")
	}
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title", "Movie title cannot be empty or just spaces.")
	}
	return title, nil
}

func validateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return invalid("year", fmt.Sprintf("Year must be between %d and %d.", MinYear, MaxYear))
	}
	return nil
}

func validateFormat(raw string) (catalog.Format, error) {
	format, err := catalog.ParseFormat(raw)
	if err != nil {
		return "", invalid("format", "Please choose a format: VHS, DVD or Blu-ray.")
	}
	return format, nil
}

func validateActors(raw string) ([]string, error) {
	actors := catalog.SplitActors(raw)
	for _, actor := range actors {
		if !actorPattern.MatchString(actor) {
			return nil, invalid("actors", "Actor names can only contain letters, spaces, hyphens (-), dots (.), and apostrophes (').")
		}
	}
	if len(actors) == 0 {
		return nil, invalid("actors", "Please enter at least one actor.")
	}
	return actors, nil
}
