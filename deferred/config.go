/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package deferred

import (
	"fmt"

	"github.com/loadkit/go-loadkit/config"
)

const cfgDefaultKeyPrefix = "deferred"

const (
	cfgKeyWorkers      = "workers"
	cfgKeyQueueSize    = "queueSize"
	cfgKeyDispatchRate = "dispatchRate"
)

// DefaultWorkers is a default number of workers in the executor's pool.
const DefaultWorkers = 8

// Config represents a set of configuration parameters for the deferred task executor.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Workers is the number of workers in the executor's pool.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	// QueueSize is the capacity of the submission queue.
	QueueSize int `mapstructure:"queueSize" yaml:"queueSize" json:"queueSize"`

	// DispatchRate limits how many tasks per second the pool may start. Zero means no limit.
	DispatchRate int `mapstructure:"dispatchRate" yaml:"dispatchRate" json:"dispatchRate"`

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
		keyPrefix: opts.keyPrefix,
		Workers:   DefaultWorkers,
		QueueSize: DefaultQueueSize,
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
	dp.SetDefault(cfgKeyWorkers, DefaultWorkers)
	dp.SetDefault(cfgKeyQueueSize, DefaultQueueSize)
}

// Set sets executor configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Workers, err = dp.GetInt(cfgKeyWorkers); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return dp.WrapKeyErr(cfgKeyWorkers, fmt.Errorf("workers count should be positive"))
	}

	if c.QueueSize, err = dp.GetInt(cfgKeyQueueSize); err != nil {
		return err
	}
	if c.QueueSize < 0 {
		return dp.WrapKeyErr(cfgKeyQueueSize, fmt.Errorf("queue size should not be negative"))
	}

	if c.DispatchRate, err = dp.GetInt(cfgKeyDispatchRate); err != nil {
		return err
	}
	if c.DispatchRate < 0 {
		return dp.WrapKeyErr(cfgKeyDispatchRate, fmt.Errorf("dispatch rate should not be negative"))
	}

	return nil
}
