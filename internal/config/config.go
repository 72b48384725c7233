package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration for a scan run. Pipeline tuning
// constants (batch size, value threshold, retry budget, rate-limit delay)
// are compile-time and live in the service package; only endpoints,
// credentials, and paths are configurable here.
type Config struct {
	Portal     PortalConfig     `mapstructure:"portal"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Output     OutputConfig     `mapstructure:"output"`
	Export     ExportConfig     `mapstructure:"export"`
}

// PortalConfig identifies the open-data portal and dataset to scan.
type PortalConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ResourceID string        `mapstructure:"resource_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig holds settings for the external classification service.
type ClassifierConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// OutputConfig locates the durable flagged-contract log.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// ExportConfig holds settings for the optional post-run report upload.
type ExportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// Load reads configuration from the given file (or the default search
// paths), layering .env, config file, and environment variable overrides.
// Parameters:
//   - configPath: explicit config file path or empty for defaults.
//
// Returns:
//   - *Config: resolved configuration.
//   - error: non-nil if the config file exists but cannot be parsed.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("portal.base_url", "https://open.canada.ca/data/en")
	v.SetDefault("portal.resource_id", "")
	v.SetDefault("portal.timeout", 30*time.Second)
	v.SetDefault("classifier.provider", "openai")
	v.SetDefault("classifier.model", "gpt-4o-mini")
	v.SetDefault("classifier.base_url", "https://api.openai.com/v1")
	v.SetDefault("output.path", "./data/flagged_contracts.jsonl")
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.use_ssl", true)
	v.SetDefault("export.bucket", "snowdoge-reports")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("portal.resource_id", "PORTAL_RESOURCE_ID")
	v.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("export.access_key", "EXPORT_ACCESS_KEY")
	v.BindEnv("export.secret_key", "EXPORT_SECRET_KEY")
	v.BindEnv("export.endpoint", "EXPORT_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient to run a scan.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if c.Portal.ResourceID == "" {
		return fmt.Errorf("portal.resource_id is required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.Export.Enabled {
		return c.ValidateExport()
	}
	return nil
}

// ValidateExport checks that the export settings are sufficient to upload
// a report. Called separately because the -export flag can request an
// upload that the config file does not enable.
func (c *Config) ValidateExport() error {
	if c.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required for report export")
	}
	if c.Export.Endpoint == "" {
		return fmt.Errorf("export.endpoint is required for report export")
	}
	if c.Export.AccessKey == "" || c.Export.SecretKey == "" {
		return fmt.Errorf("export credentials are required for report export")
	}
	return nil
}
