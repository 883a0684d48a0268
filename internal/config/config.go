package config

import (
	"net/url"
	"strings"
	"time"
)

// DefaultUserTokenPublicKey is the RSA key the cloud signs user tokens with.
// It can be overridden with auth.user_token_public_key.
const DefaultUserTokenPublicKey = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA0Yt2RtNOdeKQxWMY0c84
ADpY1Jy58YWZhaEgP2A5tBwFUKgy/TH9gQLWZjQ3dQ/6XXO8qq0kluoYFqM7ZDRF
zJ0E4Yi0WQncioLRcCx4q8pDmqY9vPKgv6PruJdFWca0l0s3gZ3BqSeWum/C23xK
FPHPwi8gvRdc6ALrkcHeciM+7NykU8c0EY8PSitNL+Tchti95kGu+j6APr5vNewi
zRpQGOdqaLWe+ahHmtj6KtUZjm8o6lan4f/o08C6litizguZXuw2Nn/Kd9fFI1xF
IVNJYMy9jgGaOi71+LpGw+vIpwAawp/7IvULDppvY3DdX5nt05P1+jvVJXPxMKzD
TQIDAQAB
-----END PUBLIC KEY-----`

// DefaultCloudAPIURL is the production session-hosting cloud.
const DefaultCloudAPIURL = "https://prod.augmentos.cloud"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Transport TransportConfig `mapstructure:"transport" validate:"required"`
	Review    ReviewConfig    `mapstructure:"review" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// AppConfig identifies this app to the session-hosting cloud.
type AppConfig struct {
	PackageName string `mapstructure:"package_name" validate:"required"`
	APIKey      string `mapstructure:"api_key" validate:"required"`
	CloudAPIURL string `mapstructure:"cloud_api_url" validate:"required,url"`
	// ApprovedDomains lists websocket hosts trusted in addition to the cloud domain.
	ApprovedDomains []string `mapstructure:"approved_domains" validate:"dive,hostname_port|hostname"`
}

// CloudDomain returns the host (and port, if any) of CloudAPIURL.
func (c AppConfig) CloudDomain() string {
	u, err := url.Parse(c.CloudAPIURL)
	if err != nil || u.Host == "" {
		d := strings.TrimPrefix(c.CloudAPIURL, "https://")
		return strings.TrimPrefix(d, "http://")
	}
	return u.Host
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	UserTokenPublicKey string        `mapstructure:"user_token_public_key" validate:"required"`
	Issuer             string        `mapstructure:"issuer" validate:"required"`
	CookieSecret       string        `mapstructure:"cookie_secret" validate:"required,min=32"`
	ExchangeTimeout    time.Duration `mapstructure:"exchange_timeout" validate:"required,gt=0"`
	Leeway             time.Duration `mapstructure:"leeway" validate:"gte=0"`
}

// TransportConfig tunes the websocket client.
type TransportConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`
	RetryBase        time.Duration `mapstructure:"retry_base" validate:"gte=0"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"required,gt=0"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" validate:"required,gt=0"`
}

// ReviewConfig holds the defaults applied before a user's own settings arrive.
type ReviewConfig struct {
	DefaultMaxCards  int `mapstructure:"default_max_cards" validate:"required,gte=1,lte=100"`
	DefaultRetention int `mapstructure:"default_retention" validate:"required,gte=1,lte=100"`
	QueueCapacity    int `mapstructure:"queue_capacity" validate:"required,gte=1"`
}
