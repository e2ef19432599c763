// Package config resolves runtime settings from defaults, an optional YAML
// file and LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"library-catalog/library"
)

// DefaultFile is read when no --config flag or LIBRARY_CONFIG is given and the
// file exists in the working directory.
const DefaultFile = "library.yaml"

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

const (
	defaultJSONFile   = "library_data.json"
	defaultSQLiteFile = "library.db"
)

// Config holds every tunable of the catalog.
type Config struct {
	DataFile      string `yaml:"data_file"`
	Backend       string `yaml:"backend"`
	DanglingLoans string `yaml:"dangling_loans"`
	Uniqueness    string `yaml:"uniqueness"`
	LogLevel      string `yaml:"log_level"`
	GraceDays     int    `yaml:"grace_days"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DataFile:      defaultJSONFile,
		Backend:       BackendJSON,
		DanglingLoans: "drop",
		Uniqueness:    "allow",
		LogLevel:      "info",
		GraceDays:     library.DefaultGraceDays,
	}
}

// Overrides carries command-line flags. Empty fields leave the value from
// the file or environment in place.
type Overrides struct {
	DataFile string
	Backend  string
	Verbose  bool
}

func (o Overrides) apply(c *Config) {
	if o.DataFile != "" {
		c.DataFile = o.DataFile
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Verbose {
		c.LogLevel = "debug"
	}
}

// Load builds a Config from defaults, then the YAML file at path (when path
// is empty, DefaultFile if present), then the environment, then flags. The
// result is normalized and validated only once every source is merged.
func Load(path string, flags Overrides) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		slog.Debug("Loaded config file", "path", path)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	flags.apply(&cfg)
	cfg.Normalize()
	return cfg, cfg.Validate()
}

// Normalize points the sqlite backend at library.db when the data file was
// left at the JSON default.
func (c *Config) Normalize() {
	if c.Backend == BackendSQLite && c.DataFile == defaultJSONFile {
		c.DataFile = defaultSQLiteFile
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LIBRARY_DATA_FILE":      &c.DataFile,
		"LIBRARY_BACKEND":        &c.Backend,
		"LIBRARY_DANGLING_LOANS": &c.DanglingLoans,
		"LIBRARY_UNIQUENESS":     &c.Uniqueness,
		"LIBRARY_LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("LIBRARY_GRACE_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_GRACE_DAYS: %w", err)
		}
		c.GraceDays = n
	}
	return nil
}

// Validate rejects unknown enum values and impossible numbers.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataFile) == "" {
		errs = append(errs, errors.New("data_file must not be empty"))
	}
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want json or sqlite)", c.Backend))
	}
	if _, err := library.ParseDanglingLoanPolicy(c.DanglingLoans); err != nil {
		errs = append(errs, err)
	}
	if _, err := library.ParseUniquenessPolicy(c.Uniqueness); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.GraceDays < 0 {
		errs = append(errs, fmt.Errorf("grace_days must not be negative, got %d", c.GraceDays))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

// LibraryOptions translates the policy settings into library options.
// Validate must have succeeded.
func (c Config) LibraryOptions() []library.Option {
	dangling, _ := library.ParseDanglingLoanPolicy(c.DanglingLoans)
	uniqueness, _ := library.ParseUniquenessPolicy(c.Uniqueness)
	return []library.Option{
		library.WithDanglingLoanPolicy(dangling),
		library.WithUniquenessPolicy(uniqueness),
		library.WithGracePeriod(c.GraceDays),
	}
}
