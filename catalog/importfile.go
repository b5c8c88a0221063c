package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Import file keys. Records are blocks of "Key: value" lines separated by
// blank lines.
const (
	importKeyTitle  = "title"
	importKeyYear   = "release year"
	importKeyFormat = "format"
	importKeyStars  = "stars"
)

// ImportFileError points at the offending line of an import file
type ImportFileError struct {
	Line   int
	Reason string
}

func (e *ImportFileError) Error() string {
	return fmt.Sprintf("import file line %d: %s", e.Line, e.Reason)
}

// ParseImportFile reads movies in the text format accepted by the import endpoint
func ParseImportFile(r io.Reader) ([]CreateMovieRequest, error) {
	var (
		movies  []CreateMovieRequest
		current *CreateMovieRequest
		start   int
		lineNo  int
	)

	flush := func() error {
		if current == nil {
			return nil
		}
		switch {
		case current.Title == "":
			return &ImportFileError{Line: start, Reason: "record has no Title"}
		case current.Year == 0:
			return &ImportFileError{Line: start, Reason: "record has no Release Year"}
		case current.Format == "":
			return &ImportFileError{Line: start, Reason: "record has no Format"}
		}
		if current.Actors == nil {
			current.Actors = []string{}
		}
		movies = append(movies, *current)
		current = nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ImportFileError{Line: lineNo, Reason: fmt.Sprintf("expected \"Key: value\", got %q", line)}
		}
		if current == nil {
			current = &CreateMovieRequest{}
			start = lineNo
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case importKeyTitle:
			current.Title = value
		case importKeyYear:
			year, err := strconv.Atoi(value)
			if err != nil {
				return nil, &ImportFileError{Line: lineNo, Reason: fmt.Sprintf("invalid year %q", value)}
			}
			current.Year = year
		case importKeyFormat:
			format, err := ParseFormat(value)
			if err != nil {
				return nil, &ImportFileError{Line: lineNo, Reason: err.Error()}
			}
			current.Format = format
		case importKeyStars:
			current.Actors = SplitActors(value)
		default:
			return nil, &ImportFileError{Line: lineNo, Reason: fmt.Sprintf("unknown key %q", key)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return movies, nil
}

// WriteImportFile writes movies in the import text format
func WriteImportFile(w io.Writer, movies []Movie) error {
	bw := bufio.NewWriter(w)
	for i, m := range movies {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "Title: %s\n", m.Title)
		fmt.Fprintf(bw, "Release Year: %d\n", m.Year)
		fmt.Fprintf(bw, "Format: %s\n", m.Format)
		fmt.Fprintf(bw, "Stars: %s\n", strings.Join(m.ActorNames(), ", "))
	}
	return bw.Flush()
}

// SplitActors splits a comma separated actor list, trimming blanks and
// dropping empty names
func SplitActors(s string) []string {
	parts := strings.Split(s, ",")
	actors := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			actors = append(actors, name)
		}
	}
	return actors
}
