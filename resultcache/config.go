/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resultcache

import (
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/config"
)

const cfgDefaultKeyPrefix = "resultCache"

const (
	cfgKeyTTL             = "ttl"
	cfgKeyMaxEntries      = "maxEntries"
	cfgKeyCleanupInterval = "cleanupInterval"
)

// Default configuration values.
const (
	DefaultTTL        = time.Minute
	DefaultMaxEntries = 10000
)

// Config represents a set of configuration parameters for the result cache.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// TTL is the time after which a cached entry expires. Zero means no expiration.
	TTL config.TimeDuration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// MaxEntries is the maximum number of cached entries.
	MaxEntries int `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`

	// CleanupInterval is an interval between background cleanups of expired entries.
	CleanupInterval config.TimeDuration `mapstructure:"cleanupInterval" yaml:"cleanupInterval" json:"cleanupInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:       opts.keyPrefix,
		TTL:             config.TimeDuration(DefaultTTL),
		MaxEntries:      DefaultMaxEntries,
		CleanupInterval: config.TimeDuration(DefaultCleanupInterval),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTTL, DefaultTTL.String())
	dp.SetDefault(cfgKeyMaxEntries, DefaultMaxEntries)
	dp.SetDefault(cfgKeyCleanupInterval, DefaultCleanupInterval.String())
}

// Set sets result cache configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	ttl, err := dp.GetDuration(cfgKeyTTL)
	if err != nil {
		return err
	}
	if ttl < 0 {
		return dp.WrapKeyErr(cfgKeyTTL, fmt.Errorf("ttl should not be negative"))
	}
	c.TTL = config.TimeDuration(ttl)

	if c.MaxEntries, err = dp.GetInt(cfgKeyMaxEntries); err != nil {
		return err
	}
	if c.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("max entries should be positive"))
	}

	cleanupInterval, err := dp.GetDuration(cfgKeyCleanupInterval)
	if err != nil {
		return err
	}
	if cleanupInterval < 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("cleanup interval should not be negative"))
	}
	c.CleanupInterval = config.TimeDuration(cleanupInterval)

	return nil
}
