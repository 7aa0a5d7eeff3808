// Package config loads the mailbak configuration file and resolves
// the account secret.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("invalid configuration")

// JMAP describes the account to mirror.
type JMAP struct {
	// SessionURL is the JMAP session resource, usually
	// https://host/.well-known/jmap.
	SessionURL string `mapstructure:"session_url"`
	// AuthMode is "basic" or "bearer".
	AuthMode string `mapstructure:"auth_mode"`
	Username string `mapstructure:"username"`
	// Secret may be set inline; leaving it empty defers to the OS
	// keyring (preferred).
	Secret string `mapstructure:"secret"`
}

// Storage selects and parameterizes the backup backend.
type Storage struct {
	// Backend is "fs" or "s3".
	Backend string `mapstructure:"backend"`
	// Path is the root directory of the fs backend.
	Path string `mapstructure:"path"`
	// S3 backend settings. Endpoint overrides the AWS default for
	// S3-compatible services.
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	// Static credentials for S3-compatible services; leave empty to
	// use the standard AWS credential chain.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Search configures the local full-text index.
type Search struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the bleve index directory. Defaults next to the fs
	// backup root when empty.
	Path string `mapstructure:"path"`
}

type Config struct {
	// Name labels the account, used as part of the keyring key.
	Name    string  `mapstructure:"name"`
	JMAP    JMAP    `mapstructure:"jmap"`
	Storage Storage `mapstructure:"storage"`
	Search  Search  `mapstructure:"search"`
}

// defaults must cover every key so that environment overrides are
// visible to Unmarshal even when the file omits the key.
func defaults(v *viper.Viper) {
	v.SetDefault("name", "default")
	v.SetDefault("jmap.session_url", "")
	v.SetDefault("jmap.auth_mode", "basic")
	v.SetDefault("jmap.username", "")
	v.SetDefault("jmap.secret", "")
	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("search.enabled", true)
	v.SetDefault("search.path", "")
}

// Load reads the configuration from path, or from mailbak.toml in the
// working directory and ~/.config/mailbak when path is empty. Every
// key can be overridden through MAILBAK_* environment variables, e.g.
// MAILBAK_JMAP_USERNAME.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mailbak")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mailbak")
	}
	defaults(v)
	v.SetEnvPrefix("MAILBAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine when everything comes from the
		// environment; an explicit --config path is not.
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JMAP.SessionURL == "" {
		return fmt.Errorf("%w: jmap.session_url is required", ErrInvalid)
	}
	if c.JMAP.Username == "" {
		return fmt.Errorf("%w: jmap.username is required", ErrInvalid)
	}
	switch c.JMAP.AuthMode {
	case "basic", "bearer":
	default:
		return fmt.Errorf("%w: jmap.auth_mode must be basic or bearer, got %q", ErrInvalid, c.JMAP.AuthMode)
	}
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for the fs backend", ErrInvalid)
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage.bucket is required for the s3 backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: storage.backend must be fs or s3, got %q", ErrInvalid, c.Storage.Backend)
	}
	return nil
}
