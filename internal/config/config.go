// Package config loads the settings of the core from an optional config file,
// a .env file and SPTF_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/florianloch/sptfcore/internal/constants"
)

// Bitrate is only forwarded to the audio backend. The values match what the
// host player persists.
type Bitrate int

const (
	Bitrate160k Bitrate = iota
	Bitrate320k
	Bitrate96k
)

func (b Bitrate) String() string {
	switch b {
	case Bitrate320k:
		return "320k"
	case Bitrate96k:
		return "96k"
	default:
		return "160k"
	}
}

func ParseBitrate(s string) (Bitrate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "160k", "160":
		return Bitrate160k, nil
	case "320k", "320":
		return Bitrate320k, nil
	case "96k", "96":
		return Bitrate96k, nil
	}

	return 0, fmt.Errorf("unknown bitrate '%s', expected one of 96k, 160k, 320k", s)
}

type Config struct {
	DataDir          string        `mapstructure:"data_dir"`
	ClientID         string        `mapstructure:"client_id"`
	RedirectPort     int           `mapstructure:"redirect_port"`
	CallbackTimeout  time.Duration `mapstructure:"callback_timeout"`
	RPS              int           `mapstructure:"rps"`
	PreferredBitrate string        `mapstructure:"preferred_bitrate"`
	Network          NetworkConfig `mapstructure:"network"`
	Logging          LoggingConfig `mapstructure:"logging"`
}

type NetworkConfig struct {
	Proxy         string `mapstructure:"proxy"`
	ProxyUsername string `mapstructure:"proxy_username"`
	ProxyPassword string `mapstructure:"proxy_password"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	File           string `mapstructure:"file"`
	WebAPIRequest  bool   `mapstructure:"webapi_request"`
	WebAPIResponse bool   `mapstructure:"webapi_response"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("client_id", "")
	v.SetDefault("redirect_port", constants.DefaultRedirectPort)
	v.SetDefault("callback_timeout", constants.DefaultCallbackTimeout)
	v.SetDefault("rps", constants.DefaultRPS)
	v.SetDefault("preferred_bitrate", Bitrate160k.String())

	v.SetDefault("network.proxy", "")
	v.SetDefault("network.proxy_username", "")
	v.SetDefault("network.proxy_password", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.webapi_request", false)
	v.SetDefault("logging.webapi_response", false)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DefaultDataDir
	}
	return filepath.Join(home, constants.DefaultDataDir)
}

// Load reads configFile (if given) and the environment. Variables from the
// environment win over the file, a .env in the working directory never
// overrides variables that are already set.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(constants.DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load %s: %w", constants.DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file '%s': %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("client_id is required, register an app at https://developer.spotify.com/dashboard")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.RPS < 1 {
		return fmt.Errorf("rps must be at least 1, got %d", c.RPS)
	}
	if c.RedirectPort < 0 || c.RedirectPort > 65535 {
		return fmt.Errorf("redirect_port %d is out of range", c.RedirectPort)
	}
	if c.Network.Proxy != "" {
		u, err := url.Parse(c.Network.Proxy)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("network.proxy '%s' is not an absolute URL", c.Network.Proxy)
		}
	}
	if _, err := ParseBitrate(c.PreferredBitrate); err != nil {
		return err
	}

	return nil
}

func (c *Config) Bitrate() Bitrate {
	b, _ := ParseBitrate(c.PreferredBitrate)
	return b
}

func (c *Config) RefreshTokenPath() string {
	return filepath.Join(c.DataDir, constants.AuthDirName, constants.RefreshTokenFileName)
}

func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, constants.CacheDirName)
}

func (c *Config) UserCachePath() string {
	return filepath.Join(c.CacheDir(), constants.UserCacheFileName)
}
