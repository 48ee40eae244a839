package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateViperConfig(t *testing.T) {
	viper.Reset()
	file := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, UpdateViperConfig("vault.exit_fee_percent", 5, file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exit_fee_percent: 5")

	err = UpdateViperConfig("vault.exit_fee_percent", 5, filepath.Join(t.TempDir(), "missing", "config.yaml"))
	require.Error(t, err)
}
