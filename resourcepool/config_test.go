/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resourcepool

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
resourcePool:
  size: 25
  acquireTimeout: 10s
`
		expectedCfg := NewDefaultConfig()
		expectedCfg.Size = 25
		expectedCfg.AcquireTimeout = 10 * time.Second

		cfg := NewDefaultConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, expectedCfg, cfg)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultSize, cfg.Size)
		require.Equal(t, DefaultAcquireTimeout, cfg.AcquireTimeout)
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name           string
			yamlData       string
			expectedErrMsg string
		}{
			{
				name: "error, non-positive size",
				yamlData: `
resourcePool:
  size: 0
`,
				expectedErrMsg: `resourcePool.size: pool size should be positive`,
			},
			{
				name: "error, negative acquire timeout",
				yamlData: `
resourcePool:
  acquireTimeout: -5s
`,
				expectedErrMsg: `resourcePool.acquireTimeout: acquire timeout should not be negative`,
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
