package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Server.Addr)
	assert.Equal(t, defaultModel, cfg.Assistant.Model)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Sources.Symbols)
}

func TestLoadOverridesAndSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "0.0.0.0:9000"
sources:
  symbols: ["SOL"]
assistant:
  model: "test-model"
profile:
  enabled: true
  address: "http://pyroscope:4040"
`), 0o644))
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ARCHIVE_DSN", "postgres://x")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"SOL"}, cfg.Sources.Symbols)
	assert.Equal(t, "test-model", cfg.Assistant.Model)
	assert.True(t, cfg.Profile.Enabled)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.Equal(t, "postgres://x", cfg.ArchiveDSN)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
