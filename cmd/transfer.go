package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/forms"
	"github.com/s0up4200/reelshelf/movies"
)

var (
	importDryRun bool
	exportOutput string
)

var importCmd = &cobra.Command{
	Use:   "import <file.txt>",
	Short: "Import movies from a text file",
	Long: `Import movies from a text file of blank-line separated records:

  Title: Casablanca
  Release Year: 1942
  Format: DVD
  Stars: Humphrey Bogart, Ingrid Bergman`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := args[0]

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)

		if importDryRun {
			if err := forms.ValidateImportFile(name, info.Size()); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			parsed, err := catalog.ParseImportFile(f)
			if err != nil {
				return err
			}
			preview := make([]catalog.Movie, 0, len(parsed))
			for _, req := range parsed {
				m := catalog.Movie{Title: req.Title, Year: req.Year, Format: req.Format}
				for _, a := range req.Actors {
					m.Actors = append(m.Actors, catalog.Actor{Name: a})
				}
				preview = append(preview, m)
			}
			fmt.Fprint(out, formatter.FormatMovieList(preview, movies.FormatOptions{ShowActors: true}))
			fmt.Fprintln(out, "Dry run: nothing was imported")
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		outcome, err := controller.ImportMovies(cmd.Context(), name, info.Size(), f)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintln(out, outcome.Message)
		fmt.Fprint(out, formatter.FormatMovieList(outcome.Imported, movies.FormatOptions{ShowIDs: true}))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog in the import file format",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resp, err := controller.ListMovies(ctx, cfg.ListParams())
		if err != nil {
			return fail(err)
		}

		// list responses omit actors, so fetch each movie
		full := make([]catalog.Movie, len(resp.Data))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(movies.DeleteConcurrency)
		for i, m := range resp.Data {
			g.Go(func() error {
				movie, err := controller.GetMovie(gctx, m.ID)
				if err != nil {
					return err
				}
				full[i] = *movie
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fail(err)
		}

		var buf bytes.Buffer
		if err := catalog.WriteImportFile(&buf, full); err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			if err := os.WriteFile(exportOutput, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", exportOutput, err)
			}
			logger.Info().Int("movies", len(full)).Str("file", exportOutput).Msg("Exported catalog")
			return nil
		}
		_, err = w.Write(buf.Bytes())
		return err
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and show the file without importing")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default stdout)")

	rootCmd.AddCommand(importCmd, exportCmd)
}
