package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/filter"
	"github.com/s0up4200/reelshelf/forms"
	"github.com/s0up4200/reelshelf/movies"
)

var (
	listTitle   string
	listActor   string
	listSort    string
	listOrder   string
	listLimit   int
	listFilter  string
	listDetails bool

	movieTitle  string
	movieYear   int
	movieFormat string
	movieActors string

	deleteYes bool
	findLimit int
)

var moviesCmd = &cobra.Command{
	Use:     "movies",
	Aliases: []string{"m"},
	Short:   "Browse and manage movies",
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List movies",
	Long: `List movies from the catalog. --title and --actor are searched on the
server; --filter applies an expression (or the name of a configured filter)
to the result, for example:

  reelshelf movies list --filter 'Year < 1980 && isFormat("VHS")'
  reelshelf movies list --filter 'hasActor("Harrison Ford")'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := cfg.ListParams()
		params.Title = listTitle
		params.Actor = listActor
		if listSort != "" {
			params.Sort = catalog.SortField(strings.ToLower(listSort))
		}
		if listOrder != "" {
			params.Order = catalog.SortOrder(strings.ToUpper(listOrder))
		}
		if listLimit > 0 {
			params.Limit = listLimit
		}

		resp, err := controller.ListMovies(cmd.Context(), params)
		if err != nil {
			return fail(err)
		}

		list := resp.Data
		if listFilter != "" {
			list, err = filters.Apply(cmd.Context(), listFilter, list)
			if err != nil {
				return err
			}
			logger.Debug().
				Int("total", len(resp.Data)).
				Int("matched", len(list)).
				Str("filter", listFilter).
				Msg("Filter applied")
		}

		fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMovieList(list, movies.FormatOptions{
			ShowActors: listDetails,
			ShowIDs:    true,
			ShowDates:  listDetails,
		}))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id|title>",
	Short: "Show one movie with its actors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveMovieID(cmd, args[0])
		if err != nil {
			return err
		}
		movie, err := controller.GetMovie(cmd.Context(), id)
		if err != nil {
			return fail(err)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMovie(*movie))
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a movie",
	Long: `Add a movie. Missing fields are prompted for. Actors are a comma
separated list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readMovieForm(cmd)
		if err != nil {
			return err
		}
		outcome, err := controller.CreateMovie(cmd.Context(), form)
		if err != nil {
			return fail(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, outcome.Message)
		if outcome.Movie != nil {
			fmt.Fprint(out, formatter.FormatMovie(*outcome.Movie))
		}
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id|title>",
	Short: "Change fields of a movie",
	Long:  `Change fields of a movie. Only the flags you pass are sent.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveMovieID(cmd, args[0])
		if err != nil {
			return err
		}

		var form forms.MovieUpdateForm
		flags := cmd.Flags()
		if flags.Changed("title") {
			form.Title = &movieTitle
		}
		if flags.Changed("year") {
			form.Year = &movieYear
		}
		if flags.Changed("format") {
			form.Format = &movieFormat
		}
		if flags.Changed("actors") {
			form.Actors = &movieActors
		}

		outcome, err := controller.UpdateMovie(cmd.Context(), id, form)
		if err != nil {
			return fail(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, outcome.Message)
		if outcome.Movie != nil {
			fmt.Fprint(out, formatter.FormatMovie(*outcome.Movie))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id|title>...",
	Aliases: []string{"rm"},
	Short:   "Delete one or more movies",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 && deleteYes {
			id, err := resolveMovieID(cmd, args[0])
			if err != nil {
				return err
			}
			outcome, err := controller.DeleteMovie(ctx, id)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(out, outcome.Message)
			return nil
		}

		if err := sess.Require(); err != nil {
			return errors.New(forms.LoginRequired)
		}

		targets := make([]catalog.Movie, 0, len(args))
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := resolveMovieID(cmd, arg)
			if err != nil {
				return err
			}
			movie, err := controller.GetMovie(ctx, id)
			if err != nil {
				return fail(err)
			}
			targets = append(targets, *movie)
			ids = append(ids, id)
		}

		fmt.Fprint(out, formatter.FormatMoviesToDelete(targets))
		if !deleteYes && !confirm(out, "Delete these movies?") {
			fmt.Fprintln(out, "Aborted")
			return nil
		}

		result := service.BatchDelete(ctx, ids)
		fmt.Fprint(out, formatter.FormatBatchDelete(result))
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d of %d deletes failed", len(result.Failed), result.Requested)
		}
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Fuzzy search titles and actors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := controller.ListMovies(cmd.Context(), cfg.ListParams())
		if err != nil {
			return fail(err)
		}

		matches := filter.Fuzzy(strings.Join(args, " "), resp.Data)
		if findLimit > 0 && len(matches) > findLimit {
			matches = matches[:findLimit]
		}
		found := make([]catalog.Movie, 0, len(matches))
		for _, m := range matches {
			found = append(found, m.Movie)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMovieList(found, movies.FormatOptions{ShowIDs: true}))
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Mark cached movie results stale so the next read refetches",
	Long: `Mark every cached movie list and movie stale. Mostly useful inside the
shell, where results stay cached between commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n := service.InvalidateAll()
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d cached result(s) stale\n", n)
		return nil
	},
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the named filters from the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		names := filters.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "No filters configured")
			return nil
		}
		for _, name := range names {
			f, _ := filters.Named(name)
			fmt.Fprintf(out, "%-16s %s\n", name, f.Expression())
		}
		return nil
	},
}

// resolveMovieID accepts a numeric id or a title looked up in the catalog
func resolveMovieID(cmd *cobra.Command, arg string) (int64, error) {
	if id, err := parseID(arg); err == nil {
		return id, nil
	}
	if err := sess.Require(); err != nil {
		return 0, errors.New(forms.LoginRequired)
	}
	movie, err := service.LookupTitle(cmd.Context(), arg)
	if err != nil {
		return 0, err
	}
	return movie.ID, nil
}

// readMovieForm takes fields from flags and prompts for the rest
func readMovieForm(cmd *cobra.Command) (forms.MovieForm, error) {
	out := cmd.OutOrStdout()
	flags := cmd.Flags()
	form := forms.MovieForm{
		Title:  movieTitle,
		Year:   movieYear,
		Format: movieFormat,
		Actors: movieActors,
	}

	var err error
	if !flags.Changed("title") {
		if form.Title, err = prompt(out, "Title: "); err != nil {
			return form, err
		}
	}
	if !flags.Changed("year") {
		raw, err := prompt(out, "Year: ")
		if err != nil {
			return form, err
		}
		if _, err := fmt.Sscan(strings.TrimSpace(raw), &form.Year); err != nil {
			form.Year = 0
		}
	}
	if !flags.Changed("format") {
		if form.Format, err = promptDefault(out, "Format (VHS, DVD, Blu-Ray)", string(catalog.FormatDVD)); err != nil {
			return form, err
		}
	}
	if !flags.Changed("actors") {
		if form.Actors, err = prompt(out, "Actors (comma separated): "); err != nil {
			return form, err
		}
	}
	return form, nil
}

func addMovieFlags(c *cobra.Command) {
	c.Flags().StringVarP(&movieTitle, "title", "t", "", "movie title")
	c.Flags().IntVarP(&movieYear, "year", "y", 0, fmt.Sprintf("release year (%d-%d)", forms.MinYear, forms.MaxYear))
	c.Flags().StringVarP(&movieFormat, "format", "f", "", "format: VHS, DVD or Blu-Ray")
	c.Flags().StringVarP(&movieActors, "actors", "a", "", "comma separated actor names")
}

func init() {
	listCmd.Flags().StringVarP(&listTitle, "title", "t", "", "search by title")
	listCmd.Flags().StringVarP(&listActor, "actor", "a", "", "search by actor")
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort by id, title or year (default from config)")
	listCmd.Flags().StringVar(&listOrder, "order", "", "ASC or DESC (default from config)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum movies to fetch")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "filter expression or configured filter name")
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show actors and dates")

	addMovieFlags(addCmd)
	addMovieFlags(editCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", 10, "maximum matches to show")

	moviesCmd.AddCommand(listCmd, showCmd, addCmd, editCmd, deleteCmd, findCmd, filtersCmd, refreshCmd)
	rootCmd.AddCommand(moviesCmd)
}
