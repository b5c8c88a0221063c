package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/s0up4200/reelshelf/app"
	"github.com/s0up4200/reelshelf/forms"
	"github.com/s0up4200/reelshelf/querycache"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session that keeps results cached between commands",
	Long: `Start an interactive shell. Any reelshelf command can be typed without
the program name. Navigation commands:

  open <path>   go to a route: /movies, /movies/7, /movies/edit/7,
                /movies/add, /movies/import, /login, /register
  cache         show cache statistics and entries
  help          list commands
  exit          leave the shell`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initialized = true
		unsubscribe := service.Cache().Subscribe(func(ev querycache.Event) {
			logger.Debug().
				Str("event", ev.Kind.String()).
				Str("key", ev.Key).
				Msg("Cache event")
		})
		defer unsubscribe()

		sh := &shell{
			ctx: cmd.Context(),
			out: cmd.OutOrStdout(),
		}
		return sh.run()
	},
}

type shell struct {
	ctx   context.Context
	out   io.Writer
	route app.Resolution
}

func (s *shell) run() error {
	s.navigate(app.RouteMovies, false)

	for {
		if err := s.ctx.Err(); err != nil {
			return nil
		}

		line, err := prompt(s.out, fmt.Sprintf("reelshelf %s> ", s.route.Path))
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(s.out, "already in the shell")
		case "open", "cd":
			target := app.RouteMovies
			if len(args) > 1 {
				target = args[1]
			}
			s.navigate(target, true)
		case "cache":
			s.printCache()
		default:
			s.exec(args)
			s.navigate(s.route.Path, false)
		}
	}
}

// navigate resolves path against the session and, when render is set, runs
// the view for the resulting route
func (s *shell) navigate(path string, render bool) {
	authenticated := sess.Authenticated()
	res := app.Resolve(path, authenticated)
	if authenticated && !app.IsPrivate(res.Pattern) && !render {
		res = app.Resolve(app.RouteMovies, true)
	}
	if res.Redirected && render {
		fmt.Fprintf(s.out, "%s is not available, showing %s\n", path, res.Path)
	}
	s.route = res
	logger.Debug().Str("path", res.Path).Str("pattern", res.Pattern).Msg("Route")

	if render {
		s.render()
	}
}

func (s *shell) render() {
	id := strconv.FormatInt(s.route.ID, 10)

	switch s.route.Pattern {
	case app.RouteLogin:
		s.exec([]string{"login"})
	case app.RouteRegister:
		s.exec([]string{"register"})
	case app.RouteMovies:
		s.exec([]string{"movies", "list"})
	case app.RouteMovie:
		s.exec([]string{"movies", "show", id})
	case app.RouteAddMovie:
		s.exec([]string{"movies", "add"})
	case app.RouteEditMovie:
		s.edit(s.route.ID)
	case app.RouteImportMovie:
		path, err := prompt(s.out, "File to import: ")
		if err != nil || strings.TrimSpace(path) == "" {
			fmt.Fprintln(s.out, "Please select a file to import.")
			return
		}
		s.exec([]string{"import", strings.TrimSpace(path)})
	}
	s.navigate(s.route.Path, false)
}

// edit prompts for every field with the current value as default and sends
// only what changed
func (s *shell) edit(id int64) {
	movie, err := controller.GetMovie(s.ctx, id)
	if err != nil {
		fmt.Fprintln(s.out, fail(err))
		return
	}
	fmt.Fprint(s.out, formatter.FormatMovie(*movie))

	var form forms.MovieUpdateForm
	currentActors := strings.Join(movie.ActorNames(), ", ")
	currentYear := strconv.Itoa(movie.Year)

	title, err := promptDefault(s.out, "Title", movie.Title)
	if err != nil {
		return
	}
	if title != movie.Title {
		form.Title = &title
	}
	rawYear, err := promptDefault(s.out, "Year", currentYear)
	if err != nil {
		return
	}
	if rawYear != currentYear {
		year, _ := strconv.Atoi(strings.TrimSpace(rawYear))
		form.Year = &year
	}
	format, err := promptDefault(s.out, "Format", string(movie.Format))
	if err != nil {
		return
	}
	if format != string(movie.Format) {
		form.Format = &format
	}
	actors, err := promptDefault(s.out, "Actors", currentActors)
	if err != nil {
		return
	}
	if actors != currentActors {
		form.Actors = &actors
	}

	outcome, err := controller.UpdateMovie(s.ctx, id, form)
	if err != nil {
		fmt.Fprintln(s.out, fail(err))
		return
	}
	fmt.Fprintln(s.out, outcome.Message)
	s.route = app.Resolve(app.MoviePath(id), sess.Authenticated())
}

// exec runs a command line through the cobra tree and resets its flags
func (s *shell) exec(args []string) {
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	target, _, findErr := rootCmd.Find(args)
	err := rootCmd.ExecuteContext(s.ctx)
	if findErr == nil {
		resetFlags(target)
	}
	if err != nil {
		fmt.Fprintln(s.out, err)
	}
}

func (s *shell) printCache() {
	cache := service.Cache()
	stats := cache.Stats()
	fmt.Fprintf(s.out, "%d entries, %d hits, %d misses, %d refetches, %d invalidations, %d evictions\n",
		cache.Len(), stats.Hits, stats.Misses, stats.Refetches, stats.Invalidations, stats.Evictions)
	for _, e := range cache.Entries() {
		state := "fresh"
		if e.Stale {
			state = "stale"
		}
		tags := make([]string, 0, len(e.Tags))
		for _, t := range e.Tags {
			tags = append(tags, t.String())
		}
		fmt.Fprintf(s.out, "  %-5s %s [%s] %s\n", state, e.Key, strings.Join(tags, ","),
			e.FetchedAt.Format("15:04:05"))
	}
}

// resetFlags restores defaults so flags from one shell line do not leak
// into the next
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

// splitArgs splits a shell line on whitespace, honouring single and double
// quotes
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
