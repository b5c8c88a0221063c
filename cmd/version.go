package cmd

import (
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"

	updateCheckOnly bool
)

// SetVersion records build information injected by the linker
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipInit: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reelshelf %s (built %s, %s/%s)\n", version, buildTime, runtime.GOOS, runtime.GOARCH)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update reelshelf to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		current, err := semver.ParseTolerant(version)
		if err != nil {
			return fmt.Errorf("cannot update a development build (version %q)", version)
		}

		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(cfg.Update.Repository))
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}
		if !found {
			return fmt.Errorf("no release found for %s/%s in %s", runtime.GOOS, runtime.GOARCH, cfg.Update.Repository)
		}

		next, err := semver.ParseTolerant(latest.Version())
		if err != nil {
			return fmt.Errorf("release has invalid version %q: %w", latest.Version(), err)
		}
		if next.LTE(current) {
			fmt.Fprintf(out, "reelshelf %s is up to date\n", current)
			return nil
		}

		fmt.Fprintf(out, "New version available: %s (current %s)\n", next, current)
		if updateCheckOnly {
			return nil
		}

		exe, err := selfupdate.ExecutablePath()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
			return fmt.Errorf("failed to update %s: %w", exe, err)
		}

		logger.Info().Str("version", next.String()).Str("path", exe).Msg("Updated")
		fmt.Fprintf(out, "Updated to %s\n", next)
		if latest.ReleaseNotes != "" {
			fmt.Fprintf(out, "\n%s\n", latest.ReleaseNotes)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only report whether an update is available")

	rootCmd.AddCommand(versionCmd, updateCmd)
}
