// ABOUTME: Configuration loading and parsing for the swap bot
// ABOUTME: YAML with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete swap bot configuration.
type Config struct {
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Database   DatabaseConfig   `yaml:"database"`
	Matrix     MatrixConfig     `yaml:"matrix"`
	Intent     IntentConfig     `yaml:"intent"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AggregatorConfig points at the swap aggregator REST API.
type AggregatorConfig struct {
	BaseURL       string `yaml:"base_url"`
	MEVProtection bool   `yaml:"mev_protection"`

	Timeout             time.Duration `yaml:"-"`
	TokenRefresh        time.Duration `yaml:"-"`
	TransactionValidity time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw             string `yaml:"timeout"`
	TokenRefreshRaw        string `yaml:"token_refresh"`
	TransactionValidityRaw string `yaml:"transaction_validity"`
}

// WalletConfig points at the wallet-pairing bridge service.
type WalletConfig struct {
	BaseURL string `yaml:"base_url"`

	// ManifestURL identifies the dapp to wallets during pairing.
	ManifestURL string `yaml:"manifest_url"`

	// CatalogPath is a TOML file listing the wallet apps offered during
	// pairing. Empty uses the built-in list.
	CatalogPath string `yaml:"catalog_path"`
}

// DatabaseConfig holds the session database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MatrixConfig holds the Matrix frontend settings.
type MatrixConfig struct {
	Homeserver      string   `yaml:"homeserver"`
	UserID          string   `yaml:"user_id"`
	AccessToken     string   `yaml:"access_token"`
	CommandPrefix   string   `yaml:"command_prefix"`
	AllowedUsers    []string `yaml:"allowed_users"`
	TypingIndicator bool     `yaml:"typing_indicator"`

	DedupeTTL time.Duration `yaml:"-"`

	DedupeTTLRaw string `yaml:"dedupe_ttl"`
}

// IntentConfig selects the free-text intent extractor. Mode "pattern"
// uses the built-in parser; "http" posts to an external classifier.
type IntentConfig struct {
	Mode string `yaml:"mode"`
	URL  string `yaml:"url"`

	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after parsing when the file leaves fields unset.
const (
	defaultAggregatorTimeout = 30 * time.Second
	defaultTokenRefresh      = 10 * time.Minute
	defaultValidity          = 10 * time.Minute
	defaultIntentTimeout     = 10 * time.Second
	defaultDedupeTTL         = 10 * time.Minute
)

// Load reads a configuration file and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Aggregator.Timeout <= 0 {
		c.Aggregator.Timeout = defaultAggregatorTimeout
	}
	if c.Aggregator.TokenRefresh <= 0 {
		c.Aggregator.TokenRefresh = defaultTokenRefresh
	}
	if c.Aggregator.TransactionValidity <= 0 {
		c.Aggregator.TransactionValidity = defaultValidity
	}
	if c.Intent.Mode == "" {
		c.Intent.Mode = "pattern"
	}
	if c.Intent.Timeout <= 0 {
		c.Intent.Timeout = defaultIntentTimeout
	}
	if c.Matrix.DedupeTTL <= 0 {
		c.Matrix.DedupeTTL = defaultDedupeTTL
	}
}

// Validate checks that all required configuration fields are present
// and valid. Returns the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Aggregator.BaseURL == "" {
		return fmt.Errorf("aggregator.base_url is required")
	}
	if c.Wallet.BaseURL == "" {
		return fmt.Errorf("wallet.base_url is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}

	switch c.Intent.Mode {
	case "pattern":
	case "http":
		if c.Intent.URL == "" {
			return fmt.Errorf("intent.url is required when intent.mode is http")
		}
	default:
		return fmt.Errorf("intent.mode must be \"pattern\" or \"http\", got %q", c.Intent.Mode)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.Aggregator.TimeoutRaw, "aggregator.timeout", &cfg.Aggregator.Timeout},
		{cfg.Aggregator.TokenRefreshRaw, "aggregator.token_refresh", &cfg.Aggregator.TokenRefresh},
		{cfg.Aggregator.TransactionValidityRaw, "aggregator.transaction_validity", &cfg.Aggregator.TransactionValidity},
		{cfg.Matrix.DedupeTTLRaw, "matrix.dedupe_ttl", &cfg.Matrix.DedupeTTL},
		{cfg.Intent.TimeoutRaw, "intent.timeout", &cfg.Intent.Timeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
