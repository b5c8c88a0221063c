package filter

import (
	"context"

	"github.com/s0up4200/reelshelf/catalog"
)

// Filter reports whether a movie should be kept
type Filter interface {
	Matches(movie catalog.Movie) bool
}

// CompiledFilter is a Filter built from an expression
type CompiledFilter interface {
	Filter
	Expression() string
}

// Compiler turns expression source into a CompiledFilter
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// Selector returns the subset of movies a filter keeps, in input order
type Selector interface {
	Select(ctx context.Context, filter Filter, movies []catalog.Movie) ([]catalog.Movie, error)
}
