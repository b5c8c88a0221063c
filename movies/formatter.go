package movies

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/s0up4200/reelshelf/catalog"
)

// FormatOptions controls what is shown for each movie
type FormatOptions struct {
	ShowActors bool
	ShowIDs    bool
	ShowDates  bool
}

// ConsoleFormatter provides console output formatting for movies
type ConsoleFormatter struct {
	title  lipgloss.Style
	muted  lipgloss.Style
	format lipgloss.Style
	header lipgloss.Style
}

// NewConsoleFormatter creates a console formatter. With color false every
// style renders plain text.
func NewConsoleFormatter(color bool) *ConsoleFormatter {
	if !color {
		plain := lipgloss.NewStyle()
		return &ConsoleFormatter{title: plain, muted: plain, format: plain, header: plain}
	}
	return &ConsoleFormatter{
		title:  lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		format: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
	}
}

// FormatMovieList formats a list of movies for console display
func (f *ConsoleFormatter) FormatMovieList(movies []catalog.Movie, options FormatOptions) string {
	if len(movies) == 0 {
		return "No movies found"
	}

	var sb strings.Builder

	header := "Movie"
	if len(movies) != 1 {
		header += "s"
	}
	fmt.Fprintf(&sb, "\n%s\n\n", f.header.Render(fmt.Sprintf("%s (%d):", header, len(movies))))

	for i, movie := range movies {
		isLast := i == len(movies)-1
		f.formatMovie(&sb, movie, isLast, options)

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatMovie formats a single movie with all of its details
func (f *ConsoleFormatter) FormatMovie(movie catalog.Movie) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d)\n", f.title.Render(movie.Title), movie.Year)
	fmt.Fprintf(&sb, "  ID:     %d\n", movie.ID)
	fmt.Fprintf(&sb, "  Format: %s\n", f.format.Render(string(movie.Format)))
	if len(movie.Actors) > 0 {
		sb.WriteString("  Actors:\n")
		for _, name := range movie.ActorNames() {
			fmt.Fprintf(&sb, "    - %s\n", name)
		}
	} else {
		sb.WriteString("  Actors: none listed\n")
	}
	if !movie.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "  %s\n", f.muted.Render("Added "+movie.CreatedAt.Format("2006-01-02")))
	}
	return sb.String()
}

// FormatMoviesToDelete formats movies for deletion confirmation
func (f *ConsoleFormatter) FormatMoviesToDelete(movies []catalog.Movie) string {
	if len(movies) == 0 {
		return ""
	}

	var sb strings.Builder
	header := "Movie"
	if len(movies) != 1 {
		header += "s"
	}
	fmt.Fprintf(&sb, "\n%s to be deleted (%d):\n\n", header, len(movies))

	for i, movie := range movies {
		isLast := i == len(movies)-1
		prefix := "├"
		if isLast {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s (%d) %s\n", prefix, f.title.Render(movie.Title), movie.Year,
			f.muted.Render(fmt.Sprintf("#%d", movie.ID)))
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatBatchDelete summarises a batch delete
func (f *ConsoleFormatter) FormatBatchDelete(result BatchDeleteResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Deleted %d of %d movie(s)\n", len(result.Successful), result.Requested)
	for _, failure := range result.Failed {
		fmt.Fprintf(&sb, "  %s\n", failure.Error())
	}
	return sb.String()
}

// formatMovie formats a single movie entry
func (f *ConsoleFormatter) formatMovie(sb *strings.Builder, movie catalog.Movie, isLast bool, options FormatOptions) {
	prefix := "├"
	if isLast {
		prefix = "╰"
	}

	line := fmt.Sprintf("%s── %s (%d) %s", prefix, f.title.Render(movie.Title), movie.Year,
		f.format.Render("["+string(movie.Format)+"]"))
	if options.ShowIDs {
		line += " " + f.muted.Render(fmt.Sprintf("#%d", movie.ID))
	}
	sb.WriteString(line + "\n")

	indent := "│   "
	if isLast {
		indent = "    "
	}

	if options.ShowActors && len(movie.Actors) > 0 {
		fmt.Fprintf(sb, "%sStars: %s\n", indent, strings.Join(movie.ActorNames(), ", "))
	}

	if options.ShowDates && !movie.CreatedAt.IsZero() {
		dates := "Added: " + movie.CreatedAt.Format("2006-01-02")
		if !movie.UpdatedAt.IsZero() && !movie.UpdatedAt.Equal(movie.CreatedAt) {
			dates += " | Updated: " + movie.UpdatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(sb, "%s%s\n", indent, f.muted.Render(dates))
	}
}
