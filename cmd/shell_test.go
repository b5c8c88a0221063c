package cmd

import (
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "", want: nil},
		{line: "movies list", want: []string{"movies", "list"}},
		{line: `movies add --title "Star Wars" --actors 'Mark Hamill, Carrie Fisher'`,
			want: []string{"movies", "add", "--title", "Star Wars", "--actors", "Mark Hamill, Carrie Fisher"}},
		{line: "  open\t/movies/7  ", want: []string{"open", "/movies/7"}},
		{line: `find ""`, want: []string{"find", ""}},
		{line: `movies add --title "oops`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("splitArgs(%q) expected error", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitArgs(%q) unexpected error: %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitArgs(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestResetFlags(t *testing.T) {
	var title string
	var limit int
	c := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	c.Flags().StringVar(&title, "title", "", "")
	c.Flags().IntVar(&limit, "limit", 10, "")

	if err := c.ParseFlags([]string{"--title", "Alien", "--limit", "3"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	resetFlags(c)

	if title != "" || limit != 10 {
		t.Errorf("flags not reset: title=%q limit=%d", title, limit)
	}
	if c.Flags().Changed("title") {
		t.Error("title still marked changed")
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"login"}, {"register"}, {"logout"}, {"whoami"},
		{"movies", "list"}, {"movies", "show"}, {"movies", "add"}, {"movies", "edit"},
		{"movies", "delete"}, {"movies", "find"}, {"movies", "filters"}, {"movies", "refresh"},
		{"import"}, {"export"}, {"shell"}, {"version"}, {"update"},
	} {
		c, _, err := rootCmd.Find(path)
		if err != nil || c.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}
