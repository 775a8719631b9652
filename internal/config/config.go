package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the nebula configuration.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Search  SearchConfig  `yaml:"search"`
	Export  ExportConfig  `yaml:"export"`
	Seed    SeedConfig    `yaml:"seed"`
	Browse  BrowseConfig  `yaml:"browse"`
	Privacy PrivacyConfig `yaml:"privacy"`
}

// ProjectConfig holds the identity used when the memory is initialized.
type ProjectConfig struct {
	Name      string `yaml:"name"`      // Defaults to the project directory name
	Framework string `yaml:"framework"` // e.g. nextjs, django; selects the seed file
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`         // Overrides <root>/.nebula/memory.db
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"` // SQLite busy_timeout
	LockTimeoutMs int    `yaml:"lock_timeout_ms"` // Max wait for the advisory lock
	FTSEnabled    bool   `yaml:"fts_enabled"`     // Use FTS5 when the driver supports it
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	File   string `yaml:"file"`   // Log file path (empty = stderr)
}

// SearchConfig holds similarity search limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// ExportConfig holds JSON export settings.
type ExportConfig struct {
	SnapshotLimit int `yaml:"snapshot_limit"` // Most recent context snapshots to include
}

// SeedConfig holds knowledge seeding settings.
type SeedConfig struct {
	Dir string `yaml:"dir"` // Seed directory (empty = <root>/.nebula/seeds)
}

// BrowseConfig holds settings for the interactive browser.
type BrowseConfig struct {
	PageSize int `yaml:"page_size"` // Rows fetched per tab, clamped to [20, 500]
}

// PrivacyConfig controls what is scrubbed before text reaches the database.
type PrivacyConfig struct {
	RedactSecrets bool `yaml:"redact_secrets"` // Redact credentials in error and solution text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			BusyTimeoutMs: 5000,
			LockTimeoutMs: 5000,
			FTSEnabled:    true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Export: ExportConfig{
			SnapshotLimit: 10,
		},
		Browse: BrowseConfig{
			PageSize: 100,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
	}
}

// Load loads configuration for the discovered project root.
func Load() (*Config, error) {
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ReadFile reads path over the defaults, without environment overrides or
// validation. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration for the discovered project root.
func (c *Config) Save() error {
	return c.SaveToFile(DefaultPaths().ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "storage.fts_enabled" or "log.level"
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "project":
		return c.getProjectField(field)
	case "storage":
		return c.getStorageField(field)
	case "log":
		return c.getLogField(field)
	case "search":
		return c.getSearchField(field)
	case "export":
		return c.getExportField(field)
	case "seed":
		return c.getSeedField(field)
	case "browse":
		return c.getBrowseField(field)
	case "privacy":
		return c.getPrivacyField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "project":
		return c.setProjectField(field, value)
	case "storage":
		return c.setStorageField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "search":
		return c.setSearchField(field, value)
	case "export":
		return c.setExportField(field, value)
	case "seed":
		return c.setSeedField(field, value)
	case "browse":
		return c.setBrowseField(field, value)
	case "privacy":
		return c.setPrivacyField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getProjectField(field string) (string, error) {
	switch field {
	case "name":
		return c.Project.Name, nil
	case "framework":
		return c.Project.Framework, nil
	default:
		return "", fmt.Errorf("unknown field: project.%s", field)
	}
}

func (c *Config) setProjectField(field, value string) error {
	switch field {
	case "name":
		c.Project.Name = value
	case "framework":
		c.Project.Framework = value
	default:
		return fmt.Errorf("unknown field: project.%s", field)
	}
	return nil
}

func (c *Config) getStorageField(field string) (string, error) {
	switch field {
	case "db_path":
		return c.Storage.DBPath, nil
	case "busy_timeout_ms":
		return strconv.Itoa(c.Storage.BusyTimeoutMs), nil
	case "lock_timeout_ms":
		return strconv.Itoa(c.Storage.LockTimeoutMs), nil
	case "fts_enabled":
		return strconv.FormatBool(c.Storage.FTSEnabled), nil
	default:
		return "", fmt.Errorf("unknown field: storage.%s", field)
	}
}

func (c *Config) setStorageField(field, value string) error {
	switch field {
	case "db_path":
		c.Storage.DBPath = value
	case "busy_timeout_ms":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Storage.BusyTimeoutMs = v
	case "lock_timeout_ms":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Storage.LockTimeoutMs = v
	case "fts_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for fts_enabled: %w", err)
		}
		c.Storage.FTSEnabled = b
	default:
		return fmt.Errorf("unknown field: storage.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "format":
		return c.Log.Format, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "format":
		if !isValidLogFormat(value) {
			return fmt.Errorf("invalid format: %s (must be json or text)", value)
		}
		c.Log.Format = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getSearchField(field string) (string, error) {
	switch field {
	case "default_limit":
		return strconv.Itoa(c.Search.DefaultLimit), nil
	case "max_limit":
		return strconv.Itoa(c.Search.MaxLimit), nil
	default:
		return "", fmt.Errorf("unknown field: search.%s", field)
	}
}

func (c *Config) setSearchField(field, value string) error {
	switch field {
	case "default_limit":
		v, err := parsePositive(field, value)
		if err != nil {
			return err
		}
		c.Search.DefaultLimit = v
	case "max_limit":
		v, err := parsePositive(field, value)
		if err != nil {
			return err
		}
		c.Search.MaxLimit = v
	default:
		return fmt.Errorf("unknown field: search.%s", field)
	}
	return nil
}

func (c *Config) getExportField(field string) (string, error) {
	switch field {
	case "snapshot_limit":
		return strconv.Itoa(c.Export.SnapshotLimit), nil
	default:
		return "", fmt.Errorf("unknown field: export.%s", field)
	}
}

func (c *Config) setExportField(field, value string) error {
	switch field {
	case "snapshot_limit":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Export.SnapshotLimit = v
	default:
		return fmt.Errorf("unknown field: export.%s", field)
	}
	return nil
}

func (c *Config) getSeedField(field string) (string, error) {
	switch field {
	case "dir":
		return c.Seed.Dir, nil
	default:
		return "", fmt.Errorf("unknown field: seed.%s", field)
	}
}

func (c *Config) setSeedField(field, value string) error {
	switch field {
	case "dir":
		c.Seed.Dir = value
	default:
		return fmt.Errorf("unknown field: seed.%s", field)
	}
	return nil
}

func (c *Config) getBrowseField(field string) (string, error) {
	switch field {
	case "page_size":
		return strconv.Itoa(c.Browse.PageSize), nil
	default:
		return "", fmt.Errorf("unknown field: browse.%s", field)
	}
}

func (c *Config) setBrowseField(field, value string) error {
	switch field {
	case "page_size":
		v, err := parsePositive(field, value)
		if err != nil {
			return err
		}
		c.Browse.PageSize = v
	default:
		return fmt.Errorf("unknown field: browse.%s", field)
	}
	return nil
}

func (c *Config) getPrivacyField(field string) (string, error) {
	switch field {
	case "redact_secrets":
		return strconv.FormatBool(c.Privacy.RedactSecrets), nil
	default:
		return "", fmt.Errorf("unknown field: privacy.%s", field)
	}
}

func (c *Config) setPrivacyField(field, value string) error {
	switch field {
	case "redact_secrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for redact_secrets: %w", err)
		}
		c.Privacy.RedactSecrets = b
	default:
		return fmt.Errorf("unknown field: privacy.%s", field)
	}
	return nil
}

func parseNonNegative(field, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", field, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must be non-negative", field)
	}
	return v, nil
}

func parsePositive(field, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", field, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", field)
	}
	return v, nil
}

// Validate validates the configuration.
// Out-of-range browse page sizes are clamped rather than rejected.
func (c *Config) Validate() error {
	if c.Storage.BusyTimeoutMs < 0 {
		return errors.New("storage.busy_timeout_ms must be >= 0")
	}

	if c.Storage.LockTimeoutMs < 0 {
		return errors.New("storage.lock_timeout_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("log.format must be json or text (got: %s)", c.Log.Format)
	}

	if c.Search.DefaultLimit <= 0 {
		return errors.New("search.default_limit must be > 0")
	}

	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must be >= search.default_limit (got: %d < %d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Export.SnapshotLimit < 0 {
		return errors.New("export.snapshot_limit must be >= 0")
	}

	if c.Browse.PageSize < 20 {
		c.Browse.PageSize = 20
	}
	if c.Browse.PageSize > 500 {
		c.Browse.PageSize = 500
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	return format == "json" || format == "text"
}

// ApplyEnvOverrides applies NEBULA_* environment variables on top of the
// file values. Malformed values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEBULA_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("NEBULA_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("NEBULA_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("NEBULA_FTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.FTSEnabled = b
		}
	}
	if v := os.Getenv("NEBULA_PROJECT_NAME"); v != "" {
		c.Project.Name = v
	}
	if v := os.Getenv("NEBULA_FRAMEWORK"); v != "" {
		c.Project.Framework = v
	}
}

// ListKeys returns all settable configuration keys.
func ListKeys() []string {
	return []string{
		"project.name",
		"project.framework",
		"storage.db_path",
		"storage.busy_timeout_ms",
		"storage.lock_timeout_ms",
		"storage.fts_enabled",
		"log.level",
		"log.format",
		"log.file",
		"search.default_limit",
		"search.max_limit",
		"export.snapshot_limit",
		"seed.dir",
		"browse.page_size",
		"privacy.redact_secrets",
	}
}
