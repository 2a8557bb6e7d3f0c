package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. N8NMGR_DB_PATH.
const EnvPrefix = "N8NMGR"

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	Log         struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
	DB struct {
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	API struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"api"`
	Remote struct {
		Timeout  time.Duration `mapstructure:"timeout"`
		PageSize int           `mapstructure:"page_size"`
	} `mapstructure:"remote"`
	Registration struct {
		Enabled bool   `mapstructure:"enabled"`
		DBPath  string `mapstructure:"db_path"`
	} `mapstructure:"registration"`
	Auth struct {
		Enabled      bool   `mapstructure:"enabled"`
		Issuer       string `mapstructure:"issuer"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// IsProduction reports whether the environment is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", filepath.Join("data", "n8n_manager.db"))
	v.SetDefault("db.dsn", "")
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8100)
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.page_size", 100)
	v.SetDefault("registration.enabled", false)
	v.SetDefault("registration.db_path", "")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.hostnames", []string{"localhost"})
}

// LoadConfig loads the configuration from a file and the environment. An
// empty path searches for config.yaml in . and ./config; a missing file is
// not an error and leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// normalize issuer url (strip trailing slash if any)
	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)
	config.DB.Driver = strings.ToLower(strings.TrimSpace(config.DB.Driver))

	return &config, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// normalizeIssuer removes any trailing slash so users can paste the issuer
// URL from their identity provider console as is.
func normalizeIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
