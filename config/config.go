package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/reelshelf/catalog"
)

// EnvPrefix prefixes every environment override, e.g. REELSHELF_API_URL
const EnvPrefix = "REELSHELF"

// LoadOption adjusts how Load builds the configuration
type LoadOption func(v *viper.Viper)

// WithOverride sets key above every other source, as command-line flags do.
// Empty strings are ignored so unset flags fall through.
func WithOverride(key string, value any) LoadOption {
	return func(v *viper.Viper) {
		if s, ok := value.(string); ok && s == "" {
			return
		}
		v.Set(key, value)
	}
}

// Load loads the configuration from file, .env and the environment. A
// missing config file is not an error; defaults apply. Overrides are
// validated like every other source.
func Load(configPath string, opts ...LoadOption) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the web client reads API_URL
	_ = v.BindEnv("api.url", EnvPrefix+"_API_URL", "API_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}

		v.AddConfigPath("/etc/reelshelf/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Session.Path != "" {
		cfg.Session.Path = expandHome(cfg.Session.Path)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Dir returns the per-user configuration directory
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".reelshelf"), nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", catalog.DefaultBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "reelshelf")

	v.SetDefault("session.path", "~/.reelshelf/session.db")

	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.ttl", 0)

	v.SetDefault("movies.sort", string(catalog.SortByTitle))
	v.SetDefault("movies.order", string(catalog.OrderAsc))
	v.SetDefault("movies.limit", catalog.DefaultListLimit)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("update.repository", "s0up4200/reelshelf")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(cfg.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.url must be an absolute URL: %q", cfg.API.URL)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	validSorts := map[string]bool{
		string(catalog.SortByID):    true,
		string(catalog.SortByTitle): true,
		string(catalog.SortByYear):  true,
	}
	if !validSorts[cfg.Movies.Sort] {
		return fmt.Errorf("invalid movies.sort: %s (must be id, title or year)", cfg.Movies.Sort)
	}
	cfg.Movies.Order = strings.ToUpper(cfg.Movies.Order)
	if cfg.Movies.Order != string(catalog.OrderAsc) && cfg.Movies.Order != string(catalog.OrderDesc) {
		return fmt.Errorf("invalid movies.order: %s (must be ASC or DESC)", cfg.Movies.Order)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	for name, expr := range cfg.Filter {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("filter.%s has an empty expression", name)
		}
	}

	return nil
}

// ListParams returns the configured list defaults
func (c *Config) ListParams() catalog.ListParams {
	return catalog.ListParams{
		Sort:  catalog.SortField(c.Movies.Sort),
		Order: catalog.SortOrder(c.Movies.Order),
		Limit: c.Movies.Limit,
	}
}
