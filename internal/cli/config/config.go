package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration, sourced from the config file
// and HSINGEST_-prefixed environment variables.
type Config struct {
	StorageType   string `mapstructure:"storage_type"`
	BucketName    string `mapstructure:"bucket_name"`
	LocalPath     string `mapstructure:"local_path"`
	Region        string `mapstructure:"region"`
	CuratedPrefix string `mapstructure:"curated_prefix"`
	DimPrefix     string `mapstructure:"dim_prefix"`
	Compression   string `mapstructure:"compression"`

	SyncStateTable       string `mapstructure:"sync_state_table"`
	IncrementalParameter string `mapstructure:"incremental_parameter"`
	BufferHours          int    `mapstructure:"buffer_hours"`
	StartDate            string `mapstructure:"start_date"`

	Token           string `mapstructure:"token"`
	SecretARN       string `mapstructure:"secret_arn"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`

	RateLimitPauseMS int `mapstructure:"rate_limit_pause_ms"`
	MaxRetries       int `mapstructure:"max_retries"`
	ActivityPauseMS  int `mapstructure:"activity_pause_ms"`
}

// Load reads the effective configuration from viper.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("storage_type", "FS")
	viper.SetDefault("local_path", "./data")
	viper.SetDefault("region", "us-east-1")
	viper.SetDefault("curated_prefix", "curated")
	viper.SetDefault("dim_prefix", "dim")
	viper.SetDefault("compression", "snappy")
	viper.SetDefault("buffer_hours", 2)
	viper.SetDefault("start_date", "2016-01-01")
	viper.SetDefault("token_ttl_minutes", 5)
	viper.SetDefault("rate_limit_pause_ms", 250)
	viper.SetDefault("max_retries", 5)
	viper.SetDefault("activity_pause_ms", 1000)
}

// ParsedStartDate parses the configured full-sync lower bound.
func (c *Config) ParsedStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid start_date %q", c.StartDate)
	}
	return t.UTC(), nil
}

// Buffer returns the checkpoint overlap as a duration.
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.BufferHours) * time.Hour
}
