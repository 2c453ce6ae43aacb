package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o644))
}

func TestLoadMaster_RequiresLanguageAndSource(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadMaster(dir)
	require.Error(t, err)
}

func TestLoadMaster_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "language: deu\nsource: wiktionary\ndata_dir: "+filepath.Join(dir, "data")+"\n")

	cfg, err := LoadMaster(dir)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.BindAddr)
	assert.Equal(t, "deu", cfg.Language)
}

func TestLoadWorker_DefaultsWorkerIDToHostname(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "master_url: http://localhost:8080\ndata_dir: "+filepath.Join(dir, "data")+"\nfallback_dir: "+filepath.Join(dir, "fallback")+"\n")

	cfg, err := LoadWorker(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.WorkerID)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoadWorker_RequiresMasterURL(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadWorker(dir)
	require.Error(t, err)
}
