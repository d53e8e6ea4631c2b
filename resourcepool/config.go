/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resourcepool

import (
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/config"
)

const cfgDefaultKeyPrefix = "resourcePool"

const (
	cfgKeySize           = "size"
	cfgKeyAcquireTimeout = "acquireTimeout"
)

// DefaultSize is a default number of handles in the pool.
const DefaultSize = 10

// DefaultAcquireTimeout is a default timeout for acquiring a handle from the pool.
const DefaultAcquireTimeout = 30 * time.Second

// Config represents a set of configuration parameters for the resource pool.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Size is the total number of handles owned by the pool.
	Size int `mapstructure:"size" yaml:"size" json:"size"`

	// AcquireTimeout bounds how long Acquire waits for a free handle.
	// Zero means waiting is bounded only by the caller's context.
	AcquireTimeout time.Duration `mapstructure:"acquireTimeout" yaml:"acquireTimeout" json:"acquireTimeout"`

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
		keyPrefix:      opts.keyPrefix,
		Size:           DefaultSize,
		AcquireTimeout: DefaultAcquireTimeout,
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
	dp.SetDefault(cfgKeySize, DefaultSize)
	dp.SetDefault(cfgKeyAcquireTimeout, DefaultAcquireTimeout)
}

// Set sets pool configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Size, err = dp.GetInt(cfgKeySize); err != nil {
		return err
	}
	if c.Size <= 0 {
		return dp.WrapKeyErr(cfgKeySize, fmt.Errorf("pool size should be positive"))
	}

	if c.AcquireTimeout, err = dp.GetDuration(cfgKeyAcquireTimeout); err != nil {
		return err
	}
	if c.AcquireTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyAcquireTimeout, fmt.Errorf("acquire timeout should not be negative"))
	}

	return nil
}
