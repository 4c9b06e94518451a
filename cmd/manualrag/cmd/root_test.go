package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstack/manualrag/pkg/version"
)

// execute runs the root command with args, returning captured stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath = ""
	dataDir = ""
	debugMode = false
	profileCPU = ""
	profileMem = ""

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "manualrag")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "ingest")
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := execute(t, "version", "--short", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, version.Short())
}

func TestInitCmd_WritesConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "manualrag.yaml")

	out, err := execute(t, "init", "--config", cfgFile, "--data-dir", tmp)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, cfgFile)

	// A second init without --force refuses to overwrite.
	_, err = execute(t, "init", "--config", cfgFile, "--data-dir", tmp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", "--config", cfgFile, "--data-dir", tmp, "--force")
	require.NoError(t, err)
}

func TestDeleteCmd_RequiresExactlyOneTarget(t *testing.T) {
	tmp := t.TempDir()

	_, err := execute(t, "delete", "--data-dir", tmp)
	require.Error(t, err)

	_, err = execute(t, "delete", "some-id", "--url", "https://x", "--data-dir", tmp)
	require.Error(t, err)
}
