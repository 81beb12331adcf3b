// Package config loads contactstats settings from a YAML file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CONTACTSTATS_IMAP_HOST for imap.host.
const EnvPrefix = "CONTACTSTATS"

// Providers.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// Defaults.
const (
	DefaultMaxResults = 100000
	DefaultOutput     = "email_stats.csv"
	DefaultAccount    = "default"
)

// ErrNoAddresses is returned by Validate when no address is configured.
var ErrNoAddresses = errors.New("no email addresses given")

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type GoogleConfig struct {
	// CredentialsFile is an OAuth client JSON downloaded from the Google
	// Cloud console. When empty GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are used.
	CredentialsFile string `mapstructure:"credentials_file"`
}

type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	TLS      bool   `mapstructure:"tls"`
	Mailbox  string `mapstructure:"mailbox"`
}

// Config is the complete application configuration.
type Config struct {
	Addresses    []string     `mapstructure:"addresses"`
	Provider     string       `mapstructure:"provider"`
	Account      string       `mapstructure:"account"`
	MaxResults   int64        `mapstructure:"max_results"`
	Output       string       `mapstructure:"output"`
	IncludeEmpty bool         `mapstructure:"include_empty"`
	Strict       bool         `mapstructure:"strict"`
	KeepGoing    bool         `mapstructure:"keep_going"`
	Cache        CacheConfig  `mapstructure:"cache"`
	Google       GoogleConfig `mapstructure:"google"`
	IMAP         IMAPConfig   `mapstructure:"imap"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"address":     "addresses",
	"provider":    "provider",
	"account":     "account",
	"max-results": "max_results",
	"output":      "output",
	"strict":      "strict",
	"keep-going":  "keep_going",
}

// DefaultPath returns ~/.config/contactstats/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "contactstats", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addresses", []string{})
	v.SetDefault("provider", ProviderGmail)
	v.SetDefault("account", DefaultAccount)
	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("include_empty", true)
	v.SetDefault("strict", false)
	v.SetDefault("keep_going", false)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "")
	v.SetDefault("google.credentials_file", "")
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 0)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
}

// Load reads the config file at path, then applies environment overrides
// and any flags in flags that were set on the command line.
// An empty path reads DefaultPath if it exists. An explicit path must exist.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &pathErr) || errors.As(err, &notFound)
		if !missing || explicit {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Addresses = splitAddresses(cfg.Addresses)
	return cfg, nil
}

// splitAddresses accepts entries holding several comma separated addresses,
// as produced by environment variables.
func splitAddresses(in []string) []string {
	var out []string
	for _, s := range in {
		for _, a := range strings.Split(s, ",") {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

// Validate checks the settings needed before any network call is made.
func (c *Config) Validate() error {
	if len(c.Addresses) == 0 {
		return ErrNoAddresses
	}
	return c.ValidateSource()
}

// ValidateSource is Validate without the address list check.
func (c *Config) ValidateSource() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	switch c.Provider {
	case ProviderGmail:
	case ProviderIMAP:
		if c.IMAP.Host == "" || c.IMAP.Username == "" {
			return errors.New("imap.host and imap.username are required for the imap provider")
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderGmail, ProviderIMAP)
	}
	return nil
}
