package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/s0up4200/reelshelf/catalog"
)

func testMovies() []catalog.Movie {
	added := time.Now().AddDate(-2, 0, 0)
	return []catalog.Movie{
		{
			ID: 1, Title: "Casablanca", Year: 1942, Format: catalog.FormatDVD, CreatedAt: added,
			Actors: []catalog.Actor{{Name: "Humphrey Bogart"}, {Name: "Ingrid Bergman"}},
		},
		{
			ID: 2, Title: "Alien", Year: 1979, Format: catalog.FormatBluRay, CreatedAt: time.Now(),
			Actors: []catalog.Actor{{Name: "Sigourney Weaver"}},
		},
		{
			ID: 3, Title: "Jaws", Year: 1975, Format: catalog.FormatVHS, CreatedAt: added,
		},
	}
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasActor("bogart")`,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasActor("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown identifier",
			expression: `Director == "Scott"`,
			wantErr:    true,
		},
		{
			name:       "not boolean",
			expression: `Year + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `Year > 1970 and Format == "Blu-ray" and contains(Title, "ali")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileFilter(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var compErr *CompilationError
				if !errors.As(err, &compErr) {
					t.Errorf("expected *CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter == nil {
				t.Fatalf("expected filter but got nil")
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	movies := testMovies()

	tests := []struct {
		expression string
		want       []int64
	}{
		{`hasActor("bogart")`, []int64{1}},
		{`Year < 1976`, []int64{1, 3}},
		{`isFormat("bluray")`, []int64{2}},
		{`actorCount() == 0`, []int64{3}},
		{`"Sigourney Weaver" in Actors`, []int64{2}},
		{`daysSince(Added) > 365`, []int64{1, 3}},
		{`Added < yearsAgo(1) and not hasActor("weaver")`, []int64{1, 3}},
		{`startsWith(Title, "ja") or endsWith(Title, "CA")`, []int64{1, 3}},
		{`Movie.ID == 2`, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			filter, err := CompileFilter(tt.expression)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}

			var got []int64
			for _, m := range movies {
				if filter.Matches(m) {
					got = append(got, m.ID)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompilerCache(t *testing.T) {
	c := NewExprCompiler(WithCache(1)).(*exprCompiler)

	first, err := c.Compile(`Year > 1950`)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compile(` Year > 1950 `)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected cached filter to be reused")
	}

	if _, err := c.Compile(`Year < 1950`); err != nil {
		t.Fatal(err)
	}
	if c.cache.Len() != 1 {
		t.Errorf("cache size = %d, want 1", c.cache.Len())
	}
	if _, ok := c.cache.Get(`Year > 1950`); ok {
		t.Errorf("expected oldest expression to be evicted")
	}
}

func TestCustomFunctions(t *testing.T) {
	c := NewExprCompiler(WithCustomFunctions(map[string]any{
		"classic": func(year int) bool { return year < 1960 },
	}))
	filter, err := c.Compile(`classic(Year)`)
	if err != nil {
		t.Fatal(err)
	}
	if !filter.Matches(testMovies()[0]) || filter.Matches(testMovies()[1]) {
		t.Errorf("custom function not applied")
	}
}

func TestConcurrentEvaluator(t *testing.T) {
	var movies []catalog.Movie
	for i := 1; i <= 1000; i++ {
		movies = append(movies, catalog.Movie{ID: int64(i), Title: fmt.Sprintf("Movie %d", i), Year: 1900 + i%120})
	}

	filter, err := CompileFilter(`Year >= 2000`)
	if err != nil {
		t.Fatal(err)
	}

	e := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	got, err := e.Select(context.Background(), filter, movies)
	if err != nil {
		t.Fatal(err)
	}

	want := evaluateChunk(filter, movies)
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID {
			t.Fatalf("order differs at %d: %d != %d", i, got[i].ID, want[i].ID)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Select(ctx, filter, movies); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestManager(t *testing.T) {
	m := NewManager()
	err := m.Register(map[string]string{
		"classics": `Year < 1960`,
		"bogart":   `hasActor("bogart")`,
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Names(); fmt.Sprint(got) != "[bogart classics]" {
		t.Errorf("Names() = %v", got)
	}

	ctx := context.Background()
	got, err := m.Apply(ctx, "classics", testMovies())
	if err != nil || len(got) != 1 || got[0].Title != "Casablanca" {
		t.Errorf("Apply(classics) = %v, %v", got, err)
	}

	got, err = m.Apply(ctx, `Format == "VHS"`, testMovies())
	if err != nil || len(got) != 1 || got[0].Title != "Jaws" {
		t.Errorf("Apply(expr) = %v, %v", got, err)
	}

	var unknown *UnknownFilterError
	if _, err := m.ApplyNamed(ctx, "missing", testMovies()); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownFilterError, got %v", err)
	}

	err = m.Register(map[string]string{"ok": `Year > 1`, "broken": `Year >`})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if _, ok := m.Named("ok"); ok {
		t.Errorf("no filter should be registered when one fails")
	}
}

func TestFuzzy(t *testing.T) {
	movies := testMovies()

	matches := Fuzzy("casa", movies)
	if len(matches) == 0 || matches[0].Movie.Title != "Casablanca" {
		t.Fatalf("Fuzzy(casa) = %+v", matches)
	}

	matches = Fuzzy("weaver", movies)
	if len(matches) != 1 || matches[0].Movie.ID != 2 {
		t.Errorf("actor match failed: %+v", matches)
	}

	if got := Fuzzy("", movies); got != nil {
		t.Errorf("empty pattern should match nothing, got %v", got)
	}
	if got := Fuzzy("zzzz", movies); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}
