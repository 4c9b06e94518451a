package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 40, cfg.Retrieval.KDense)
	assert.Equal(t, 20, cfg.Retrieval.KLexical)
	assert.Equal(t, 30, cfg.Retrieval.KRerank)
	assert.Equal(t, 10, cfg.Retrieval.KFinal)
	assert.Equal(t, 2, cfg.Retrieval.MaxPerSection)
	assert.InDelta(t, 0.6, cfg.Retrieval.DenseWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Retrieval.LexicalWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Retrieval.FusedWeight, 1e-9)
	assert.InDelta(t, 0.7, cfg.Retrieval.CrossWeight, 1e-9)
	assert.Equal(t, "sqlite", cfg.Lexical.Backend)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Retrieval.KDense, cfg.Retrieval.KDense)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manualrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/idx
retrieval:
  k_dense: 80
  search_timeout: 5s
lexical:
  backend: bleve
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/idx", cfg.DataDir)
	assert.Equal(t, 80, cfg.Retrieval.KDense)
	assert.Equal(t, 5*time.Second, cfg.Retrieval.SearchTimeout)
	assert.Equal(t, "bleve", cfg.Lexical.Backend)
	// Untouched keys keep defaults.
	assert.Equal(t, 20, cfg.Retrieval.KLexical)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manualrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  k_final: 5\n"), 0o644))

	t.Setenv("MANUALRAG_K_FINAL", "7")
	t.Setenv("MANUALRAG_LEXICAL_BACKEND", "bleve")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieval.KFinal)
	assert.Equal(t, "bleve", cfg.Lexical.Backend)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manualrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.KDense = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Retrieval.DenseWeight = 0.8 // weights no longer sum to 1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Retrieval.MaxPerSection = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Lexical.Backend = "elastic"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedding.Provider = "openai"
	assert.Error(t, cfg.Validate())
}
