package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, schema.ModeVector, cfg.IndexMode)
	assert.Equal(t, "codelens_demo", cfg.CollectionName("demo"))
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_SIZE", "1024")

	path := writeConfig(t, `
llm_provider: openai
fast_model: gpt-4o-mini
chunk_size: 256
chunk_overlap: 20
collection_prefix: intel_
index_mode: hybrid
documentation:
  routing:
    react: indexed
    vue: web
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	// Env wins over YAML.
	assert.Equal(t, 1024, cfg.ChunkSize)
	assert.Equal(t, "intel_", cfg.CollectionPrefix)
	assert.Equal(t, schema.ModeHybrid, cfg.IndexMode)
	assert.Equal(t, RoutingIndexed, cfg.Documentation.Routing["react"])
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MY_QDRANT", "http://qdrant.internal:6333")

	path := writeConfig(t, "qdrant_url: ${MY_QDRANT}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.QdrantURL)
}

func TestValidateMissingProviderKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	var cerr *schema.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "OPENAI_API_KEY", cerr.Key)
}

func TestValidateOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("EMBED_PROVIDER", "ollama")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load(writeConfig(t, "llm_provider: watson\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "index_mode: tree\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "chunk_size: 100\nchunk_overlap: 200\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "documentation:\n  routing:\n    react: psychic\n"))
	assert.Error(t, err)
}

func TestUnknownKeysIgnored(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "future_flag: true\nchunk_size: 300\n"))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.ChunkSize)
}
