package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vivenu-sync/internal/config"
)

func setupConfigStore(t *testing.T) *memory.ConfigStore {
	t.Helper()
	old := configStore
	store := memory.NewConfigStore()
	configStore = store
	t.Cleanup(func() { configStore = old })
	return store
}

func TestConfigCmd_SetAndShow(t *testing.T) {
	store := setupConfigStore(t)

	_, err := execute("config", "set", "batch_size", "25")
	require.NoError(t, err)
	_, err = execute("config", "set", "regions.lisbon.api", "abcdefghijklmnop")
	require.NoError(t, err)

	val, ok := store.Get(config.KeyBatchSize)
	require.True(t, ok)
	assert.Equal(t, int64(25), val)

	out, err := execute("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "batch_size")
	assert.Contains(t, out, "25")
	assert.Contains(t, out, "abcd...mnop")
	assert.NotContains(t, out, "abcdefghijklmnop")
	assert.Contains(t, out, ":memory:")
}

func TestConfigCmd_SetWarnsOnInvalidValue(t *testing.T) {
	setupConfigStore(t)

	out, err := execute("config", "set", "mode", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning")
}

func TestConfigCmd_Unset(t *testing.T) {
	store := setupConfigStore(t)
	require.NoError(t, store.Set(config.KeyMode, "dev"))

	out, err := execute("config", "unset", "mode")
	require.NoError(t, err)
	assert.Contains(t, out, "Unset mode")
	_, ok := store.Get(config.KeyMode)
	assert.False(t, ok)

	_, err = execute("config", "unset", "mode")
	assert.Error(t, err)
}

func TestConfigCmd_Path(t *testing.T) {
	setupConfigStore(t)

	out, err := execute("config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, ":memory:")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key  string
		raw  string
		want any
	}{
		{config.KeyBatchSize, "50", int64(50)},
		{config.KeyCompletenessThreshold, "0.9", 0.9},
		{"flag", "true", true},
		{config.KeySendInterval, "1.8s", "1.8s"},
		{config.KeyWebhookURL, " https://hooks.example.com ", "https://hooks.example.com"},
		{config.KeyTeamIndicators, "DOUBLES, RELAY,,", []string{"DOUBLES", "RELAY"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.key, tt.raw))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghuvwxyz"))
}
