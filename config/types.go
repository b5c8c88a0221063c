package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Movies  MoviesConfig  `mapstructure:"movies"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
	Update  UpdateConfig  `mapstructure:"update"`
}

// APIConfig holds catalog API connection details
type APIConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SessionConfig controls where the login token is kept
type SessionConfig struct {
	// Path is the bbolt file; empty keeps the token in memory only
	Path string `mapstructure:"path"`
}

// CacheConfig bounds the response cache
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// MoviesConfig holds list defaults
type MoviesConfig struct {
	Sort  string `mapstructure:"sort"`
	Order string `mapstructure:"order"`
	Limit int    `mapstructure:"limit"`
}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// UpdateConfig names the release repository used by self update
type UpdateConfig struct {
	Repository string `mapstructure:"repository"`
}
