package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/reelshelf/app"
	"github.com/s0up4200/reelshelf/catalog"
	"github.com/s0up4200/reelshelf/config"
	"github.com/s0up4200/reelshelf/filter"
	"github.com/s0up4200/reelshelf/movies"
	"github.com/s0up4200/reelshelf/querycache"
	"github.com/s0up4200/reelshelf/session"
)

// skipInit marks commands that run without configuration or clients
const skipInit = "skip-init"

var (
	cfgFile  string
	apiURL   string
	logLevel string

	cfg        *config.Config
	logger     zerolog.Logger
	persister  *session.BoltPersister
	sess       *session.Store
	client     *catalog.Client
	service    *movies.Service
	controller *app.Controller
	filters    *filter.Manager
	formatter  *movies.ConsoleFormatter

	// initialized stays true inside the shell so every command shares one
	// session and cache
	initialized bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reelshelf",
	Short: "A command-line client for a movie catalog",
	Long: `reelshelf talks to a movie catalog REST API. Log in, then search, add,
edit, delete, import and export movies, or start an interactive shell that
keeps results cached between commands.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.reelshelf/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "catalog API base URL (overrides api.url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// initializeApp loads configuration and wires the session, cache and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	if initialized || cmd.Annotations[skipInit] == "true" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile,
		config.WithOverride("api.url", apiURL),
		config.WithOverride("logging.level", logLevel),
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	var p session.Persister
	if cfg.Session.Path != "" {
		persister, err = session.OpenBolt(cfg.Session.Path, cfg.API.URL)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		p = persister
	}
	sess, err = session.NewStore(p, logger)
	if err != nil {
		return err
	}

	client, err = catalog.NewClient(cfg.API.URL, logger,
		catalog.WithTimeout(cfg.API.Timeout),
		catalog.WithUserAgent(cfg.API.UserAgent+"/"+version),
		catalog.WithTokenSource(sess),
	)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	cache := querycache.New(
		querycache.WithMaxEntries(cfg.Cache.MaxEntries),
		querycache.WithTTL(cfg.Cache.TTL),
		querycache.WithLogger(logger),
	)
	service = movies.NewService(client, cache, logger)
	controller = app.NewController(client, sess, service, logger)

	filters = filter.NewManager()
	if err := filters.Register(cfg.Filter); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	formatter = movies.NewConsoleFormatter(cfg.Logging.Color && isTerminal(os.Stdout))

	logger.Debug().
		Str("api", client.BaseURL()).
		Bool("authenticated", sess.Authenticated()).
		Msg("Initialized")

	return nil
}

// shutdown releases the session database
func shutdown() {
	if persister != nil {
		if err := persister.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close session store")
		}
		persister = nil
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// fail prints a user facing error. FormErrors carry their own message, so
// only the message is shown unless debug logging is on.
func fail(err error) error {
	var fe *app.FormError
	if asFormError(err, &fe) {
		logger.Debug().Err(fe.Err).Str("op", fe.Op).Msg("Action failed")
		return fmt.Errorf("%s", fe.Message)
	}
	return err
}
