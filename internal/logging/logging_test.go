package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))

	logger, err = New(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(false, path)
	require.NoError(t, err)

	logger.Info("diagram built", zap.String("diagram", "main"), zap.Int("trains", 3))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"diagram built"`)
	assert.Contains(t, string(data), `"trains":3`)
	assert.NotContains(t, string(data), "hidden")
}
