package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/reelshelf/catalog"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	extra      map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.extra, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) Compiler {
	c := &exprCompiler{
		extra: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	extra map[string]any
	cache *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter. Expressions are
// type checked against a movie environment, so unknown names are errors.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(createEnvironment(catalog.Movie{}, c.extra)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		extra:      c.extra,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Matches runs the compiled program against movie
func (f *exprFilter) Matches(movie catalog.Movie) bool {
	result, err := expr.Run(f.program, createEnvironment(movie, f.extra))
	if err != nil {
		// movies that make the expression fail at runtime do not match
		return false
	}
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// helpers are available to every expression
var helpers = map[string]any{
	"now":   time.Now,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,

	"daysSince": func(t time.Time) int { return int(time.Since(t) / (24 * time.Hour)) },
	"daysAgo":   func(n int) time.Time { return time.Now().AddDate(0, 0, -n) },
	"yearsAgo":  func(n int) time.Time { return time.Now().AddDate(-n, 0, 0) },
	// parseDate yields the zero time for anything that is not YYYY-MM-DD
	"parseDate": func(s string) time.Time {
		t, _ := time.Parse(time.DateOnly, s)
		return t
	},

	"contains":   foldMatch(strings.Contains),
	"startsWith": foldMatch(strings.HasPrefix),
	"endsWith":   foldMatch(strings.HasSuffix),
}

func foldMatch(match func(s, sub string) bool) func(s, sub string) bool {
	return func(s, sub string) bool {
		return match(strings.ToLower(s), strings.ToLower(sub))
	}
}

// createEnvironment builds the evaluation environment for one movie
func createEnvironment(movie catalog.Movie, extra map[string]any) map[string]any {
	env := make(map[string]any, len(helpers)+len(extra)+11)
	maps.Copy(env, helpers)

	actors := movie.ActorNames()
	env["Movie"] = movie
	env["ID"] = movie.ID
	env["Title"] = movie.Title
	env["Year"] = movie.Year
	env["Format"] = string(movie.Format)
	env["Actors"] = actors
	env["Added"] = movie.CreatedAt
	env["Updated"] = movie.UpdatedAt

	env["hasActor"] = createHasActorFunc(actors)
	env["actorCount"] = func() int { return len(actors) }
	env["isFormat"] = func(format string) bool {
		parsed, err := catalog.ParseFormat(format)
		return err == nil && parsed == movie.Format
	}

	maps.Copy(env, extra)
	return env
}

func createHasActorFunc(actors []string) func(string) bool {
	lower := make([]string, len(actors))
	for i, a := range actors {
		lower[i] = strings.ToLower(a)
	}
	return func(name string) bool {
		target := strings.ToLower(name)
		return slices.ContainsFunc(lower, func(a string) bool {
			return strings.Contains(a, target)
		})
	}
}

// CompileFilter compiles expression with a default compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}
