/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package admission

import (
	"fmt"
	"time"

	"github.com/loadkit/go-loadkit/config"
)

const cfgDefaultKeyPrefix = "admission"

const (
	cfgKeyAlg            = "alg"
	cfgKeyRate           = "rate"
	cfgKeyBurst          = "burst"
	cfgKeyMaxKeys        = "maxKeys"
	cfgKeyBacklogLimit   = "backlog.limit"
	cfgKeyBacklogTimeout = "backlog.timeout"
)

// Supported admission control algorithms.
const (
	AlgTokenBucket   = "token_bucket"
	AlgLeakyBucket   = "leaky_bucket"
	AlgSlidingWindow = "sliding_window"
)

// Config represents a set of configuration parameters for admission control.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Alg is an admission control algorithm, one of: token_bucket, leaky_bucket, sliding_window.
	Alg string `mapstructure:"alg" yaml:"alg" json:"alg"`

	// Rate determines the frequency of admitted requests, for example "100/s".
	Rate Rate `mapstructure:"rate" yaml:"rate" json:"rate"`

	// Burst is the bucket capacity for the token_bucket and leaky_bucket algorithms.
	Burst int `mapstructure:"burst" yaml:"burst" json:"burst"`

	// MaxKeys is the maximum number of tracked keys.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	// Backlog determines parameters of backlog queuing for rejected requests.
	Backlog BacklogConfig `mapstructure:"backlog" yaml:"backlog" json:"backlog"`

	keyPrefix string
}

// BacklogConfig represents configuration parameters of the gate backlog.
type BacklogConfig struct {
	Limit   int                 `mapstructure:"limit" yaml:"limit" json:"limit"`
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
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
		Alg:       AlgTokenBucket,
		Rate:      Rate{Count: 100, Duration: time.Second},
		MaxKeys:   DefaultTokenBucketMaxKeys,
		Backlog:   BacklogConfig{Timeout: config.TimeDuration(DefaultGateBacklogTimeout)},
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
	dp.SetDefault(cfgKeyAlg, AlgTokenBucket)
	dp.SetDefault(cfgKeyRate, Rate{Count: 100, Duration: time.Second}.String())
	dp.SetDefault(cfgKeyMaxKeys, DefaultTokenBucketMaxKeys)
	dp.SetDefault(cfgKeyBacklogTimeout, DefaultGateBacklogTimeout.String())
}

// Set sets admission configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Alg, err = dp.GetStringFromSet(cfgKeyAlg, []string{AlgTokenBucket, AlgLeakyBucket, AlgSlidingWindow}, false); err != nil {
		return err
	}

	rateStr, err := dp.GetString(cfgKeyRate)
	if err != nil {
		return err
	}
	if err = c.Rate.UnmarshalText([]byte(rateStr)); err != nil {
		return dp.WrapKeyErr(cfgKeyRate, err)
	}
	if c.Rate.Count <= 0 {
		return dp.WrapKeyErr(cfgKeyRate, fmt.Errorf("rate should be positive"))
	}

	if c.Burst, err = dp.GetInt(cfgKeyBurst); err != nil {
		return err
	}
	if c.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyBurst, fmt.Errorf("burst should not be negative"))
	}

	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("max keys should not be negative"))
	}

	if c.Backlog.Limit, err = dp.GetInt(cfgKeyBacklogLimit); err != nil {
		return err
	}
	if c.Backlog.Limit < 0 {
		return dp.WrapKeyErr(cfgKeyBacklogLimit, fmt.Errorf("backlog limit should not be negative"))
	}

	backlogTimeout, err := dp.GetDuration(cfgKeyBacklogTimeout)
	if err != nil {
		return err
	}
	c.Backlog.Timeout = config.TimeDuration(backlogTimeout)

	return nil
}

// MakeLimiter creates a new Limiter described by the configuration.
func (c *Config) MakeLimiter() (Limiter, error) {
	switch c.Alg {
	case AlgTokenBucket, "":
		return NewTokenBucketLimiterWithOpts(c.Rate, c.Burst, TokenBucketLimiterOpts{MaxKeys: c.MaxKeys})
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(c.Rate, c.Burst, c.MaxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(c.Rate, c.MaxKeys)
	}
	return nil, fmt.Errorf("unknown admission control algorithm %q", c.Alg)
}

// MakeGate creates a new Gate described by the configuration.
func (c *Config) MakeGate() (*Gate, error) {
	limiter, err := c.MakeLimiter()
	if err != nil {
		return nil, err
	}
	return NewGate(limiter, BacklogParams{
		MaxKeys: c.MaxKeys,
		Limit:   c.Backlog.Limit,
		Timeout: time.Duration(c.Backlog.Timeout),
	})
}
