package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_APP_API_KEY.
const EnvPrefix = "SCRY"

// Load configuration from defaults, an optional config file and environment
// variables, in increasing order of precedence. configFile may be empty, in
// which case config.yaml is looked up in the working directory.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can find it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")

	v.SetDefault("app.package_name", "")
	v.SetDefault("app.api_key", "")
	v.SetDefault("app.cloud_api_url", DefaultCloudAPIURL)
	v.SetDefault("app.approved_domains", []string{})

	v.SetDefault("auth.user_token_public_key", DefaultUserTokenPublicKey)
	v.SetDefault("auth.issuer", DefaultCloudAPIURL)
	v.SetDefault("auth.cookie_secret", "")
	v.SetDefault("auth.exchange_timeout", 10*time.Second)
	v.SetDefault("auth.leeway", 30*time.Second)

	v.SetDefault("transport.max_attempts", 3)
	v.SetDefault("transport.retry_base", time.Second)
	v.SetDefault("transport.handshake_timeout", 10*time.Second)
	v.SetDefault("transport.write_timeout", 10*time.Second)

	v.SetDefault("review.default_max_cards", 20)
	v.SetDefault("review.default_retention", 75)
	v.SetDefault("review.queue_capacity", 100)
}
