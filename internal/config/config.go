// Package config handles run options and per-database credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Option keys, shared by flags, the config file and CITEGRAPH_* environment
// variables.
const (
	KeyMaxDepth         = "max_depth"
	KeyMaxCitations     = "max_citations_per_paper"
	KeyPolitenessFactor = "politeness_factor"
	KeyMaxRequestErrors = "max_request_errors"
	KeyClearCache       = "clear_cache"
	KeyCachePath        = "cache_path"
	KeyExclude          = "exclude"
	KeyDatabaseConfig   = "database_config"
	KeyDatabase         = "database"
	KeyOutput           = "output"
	KeyFormat           = "format"
	KeyGraph            = "graph"
	KeyLayout           = "layout"
	KeyVerbose          = "verbose"
)

const (
	// EnvPrefix prefixes environment variables that set options.
	EnvPrefix = "CITEGRAPH"
	// ConfigName is the base name of the optional options file.
	ConfigName = "citegraph"
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "citegraph"
)

// Output formats of the paper list.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatBibTeX = "bibtex"
)

// ValidFormats lists the supported list formats.
var ValidFormats = []string{FormatCSV, FormatJSON, FormatBibTeX}

// ErrInvalidOption is wrapped by every validation error.
var ErrInvalidOption = errors.New("invalid option")

// Options are the settings of one run.
type Options struct {
	MaxDepth         int      `mapstructure:"max_depth"`
	MaxCitations     int      `mapstructure:"max_citations_per_paper"`
	PolitenessFactor float64  `mapstructure:"politeness_factor"`
	MaxRequestErrors int      `mapstructure:"max_request_errors"`
	ClearCache       bool     `mapstructure:"clear_cache"`
	CachePath        string   `mapstructure:"cache_path"` // empty selects the default per-root file
	Exclude          []string `mapstructure:"exclude"`    // inline ids or files of ids
	DatabaseConfig   string   `mapstructure:"database_config"`
	Database         string   `mapstructure:"database"`
	Output           string   `mapstructure:"output"` // paper list file, "-" for stdout
	Format           string   `mapstructure:"format"`
	Graph            string   `mapstructure:"graph"` // HTML file
	Layout           string   `mapstructure:"layout"`
	Verbose          int      `mapstructure:"verbose"`
}

// Defaults returns the options used when nothing is configured.
func Defaults() Options {
	return Options{
		MaxDepth:         1,
		MaxCitations:     300,
		PolitenessFactor: 1,
		MaxRequestErrors: 10,
		Database:         "semanticscholar",
		Format:           FormatCSV,
		Layout:           "force",
	}
}

// SetDefaults registers Defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyMaxDepth, d.MaxDepth)
	v.SetDefault(KeyMaxCitations, d.MaxCitations)
	v.SetDefault(KeyPolitenessFactor, d.PolitenessFactor)
	v.SetDefault(KeyMaxRequestErrors, d.MaxRequestErrors)
	v.SetDefault(KeyDatabase, d.Database)
	v.SetDefault(KeyFormat, d.Format)
	v.SetDefault(KeyLayout, d.Layout)
}

// NewViper returns a viper instance with defaults, CITEGRAPH_* environment
// lookup, and the options file search path configured. An explicit file
// overrides the search.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, ConfigDir))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadInConfig reads the options file if there is one. A missing file in
// the search path is not an error; a missing explicit file is.
func ReadInConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("reading options file: %w", err)
}

// Load decodes and validates the options held by v.
func Load(v *viper.Viper) (Options, error) {
	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	opts.CachePath = ExpandPath(opts.CachePath)
	opts.DatabaseConfig = ExpandPath(opts.DatabaseConfig)
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks every option and reports all problems at once.
func (o Options) Validate() error {
	var errs []error
	if o.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidOption, KeyMaxDepth, o.MaxDepth))
	}
	if o.MaxCitations < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidOption, KeyMaxCitations, o.MaxCitations))
	}
	if o.PolitenessFactor <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidOption, KeyPolitenessFactor, o.PolitenessFactor))
	}
	if o.MaxRequestErrors < 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidOption, KeyMaxRequestErrors, o.MaxRequestErrors))
	}
	if o.Database == "" {
		errs = append(errs, fmt.Errorf("%w: %s must not be empty", ErrInvalidOption, KeyDatabase))
	}
	if !contains(ValidFormats, o.Format) {
		errs = append(errs, fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidOption, KeyFormat, ValidFormats, o.Format))
	}
	return errors.Join(errs...)
}

// AsMap returns the options recorded in the cache run history.
func (o Options) AsMap() map[string]any {
	return map[string]any{
		KeyMaxDepth:         o.MaxDepth,
		KeyMaxCitations:     o.MaxCitations,
		KeyPolitenessFactor: o.PolitenessFactor,
		KeyMaxRequestErrors: o.MaxRequestErrors,
		KeyClearCache:       o.ClearCache,
		KeyExclude:          o.Exclude,
		KeyDatabase:         o.Database,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

// configHome returns XDG_CONFIG_HOME, defaulting to ~/.config.
func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}
