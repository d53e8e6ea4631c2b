/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resultcache

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loadkit/go-loadkit/config"
)

func TestConfig(t *testing.T) {
	t.Run("yaml config", func(t *testing.T) {
		cfgData := `
resultCache:
  ttl: 5m
  maxEntries: 500
  cleanupInterval: 30s
`
		expectedCfg := NewDefaultConfig()
		expectedCfg.TTL = config.TimeDuration(5 * time.Minute)
		expectedCfg.MaxEntries = 500
		expectedCfg.CleanupInterval = config.TimeDuration(30 * time.Second)

		cfg := NewDefaultConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, expectedCfg, cfg)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name           string
			yamlData       string
			expectedErrMsg string
		}{
			{
				name: "error, negative ttl",
				yamlData: `
resultCache:
  ttl: -1s
`,
				expectedErrMsg: `resultCache.ttl: ttl should not be negative`,
			},
			{
				name: "error, non-positive max entries",
				yamlData: `
resultCache:
  maxEntries: 0
`,
				expectedErrMsg: `resultCache.maxEntries: max entries should be positive`,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewConfig()
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(tt.yamlData)), config.DataTypeYAML, cfg)
				require.EqualError(t, err, tt.expectedErrMsg)
			})
		}
	})
}
