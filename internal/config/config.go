package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where both tools look for configuration when --config is not given.
const DefaultConfigPath = "nerdops.yaml"

// Config holds all nerdops configuration.
type Config struct {
	// Billing API used by check-balance
	Billing BillingConfig `yaml:"billing"`

	// Local agent database used by inspect-db
	Inspect InspectConfig `yaml:"inspect"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BillingConfig configures the credits balance client.
type BillingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	AuthScheme string `yaml:"auth_scheme"` // "Bearer" by default, "" sends the raw key
	Timeout    string `yaml:"timeout"`
}

// InspectConfig configures the database inspector.
type InspectConfig struct {
	DatabasePath string          `yaml:"database_path"`
	Driver       string          `yaml:"driver"` // sqlite (modernc) or sqlite3 (mattn)
	Format       string          `yaml:"format"` // json, yaml, table
	Limit        int             `yaml:"limit"`
	Sections     []SectionConfig `yaml:"sections"`
}

// SectionConfig names one table dumped as "most recent rows".
type SectionConfig struct {
	Table   string `yaml:"table"`
	OrderBy string `yaml:"order_by"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Billing: BillingConfig{
			BaseURL:    "https://api.z.ai",
			AuthScheme: "Bearer",
			Timeout:    "30s",
		},

		Inspect: InspectConfig{
			DatabasePath: filepath.Join(".nerd", "agent.db"),
			Driver:       "sqlite",
			Format:       "json",
			Limit:        5,
			Sections: []SectionConfig{
				{Table: "inbox_messages", OrderBy: "timestamp"},
				{Table: "turns", OrderBy: "timestamp"},
			},
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("NERDOPS_BILLING_API_KEY"); key != "" {
		c.Billing.APIKey = key
	}
	if url := os.Getenv("NERDOPS_BILLING_URL"); url != "" {
		c.Billing.BaseURL = url
	}
	if path := os.Getenv("NERDOPS_DB"); path != "" {
		c.Inspect.DatabasePath = path
	}
}

// GetBillingTimeout returns the billing request timeout as a duration.
// Zero disables the timeout.
func (c *Config) GetBillingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Billing.Timeout)
	if err != nil || d < 0 {
		return 30 * time.Second
	}
	return d
}

// ValidDrivers lists the registered sqlite drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// ValidFormats lists the inspector output formats.
var ValidFormats = []string{"json", "yaml", "table"}

// ValidateBilling validates the settings check-balance depends on.
func (c *Config) ValidateBilling() error {
	if c.Billing.APIKey == "" {
		return fmt.Errorf("billing API key not configured (set --api-key, billing.api_key, or NERDOPS_BILLING_API_KEY)")
	}
	if strings.TrimSpace(c.Billing.BaseURL) == "" {
		return fmt.Errorf("billing base URL not configured")
	}
	return nil
}

// ValidateInspect validates the settings inspect-db depends on.
func (c *Config) ValidateInspect() error {
	if c.Inspect.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}
	if !slices.Contains(ValidDrivers, c.Inspect.Driver) {
		return fmt.Errorf("invalid driver: %s (valid: %v)", c.Inspect.Driver, ValidDrivers)
	}
	if !slices.Contains(ValidFormats, c.Inspect.Format) {
		return fmt.Errorf("invalid format: %s (valid: %v)", c.Inspect.Format, ValidFormats)
	}
	if c.Inspect.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Inspect.Limit)
	}
	for i, s := range c.Inspect.Sections {
		if s.Table == "" {
			return fmt.Errorf("section %d: table name required", i)
		}
	}
	return nil
}

// ParseSection parses a "table" or "table:order_col" flag value.
// The order column defaults to "timestamp".
func ParseSection(value string) (SectionConfig, error) {
	table, orderBy, _ := strings.Cut(value, ":")
	table = strings.TrimSpace(table)
	orderBy = strings.TrimSpace(orderBy)
	if table == "" {
		return SectionConfig{}, fmt.Errorf("invalid section %q: table name required", value)
	}
	if orderBy == "" {
		orderBy = "timestamp"
	}
	return SectionConfig{Table: table, OrderBy: orderBy}, nil
}
