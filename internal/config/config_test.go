package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[server]
host = "0.0.0.0"
port = 8080
prefix = "/dav"
log_level = "info"

[storage]
backend = "quark"

[storage.filesystem]
root_path = "/data"

[storage.quark]
cookie = "session=abc"
root_id = ""

[log]
file_enabled = false
file_path = ""
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, uint16(8080), cfg.Server.Port)
	require.Equal(t, "/dav", cfg.Server.Prefix)
	require.Equal(t, "quark", cfg.Storage.Backend)
	require.Equal(t, "/data", cfg.Storage.FileSystem.RootPath)
	require.Equal(t, "session=abc", cfg.Storage.Quark.Cookie)
}

func TestLoadDefaultsTempPath(t *testing.T) {
	path := writeConfig(t, sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultTempPath, cfg.Storage.TempPath)

	info, err := os.Stat(cfg.Storage.TempPath)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	t.Cleanup(func() { os.RemoveAll(defaultTempPath) })
}

func TestLoadHonorsExplicitTempPath(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, "cache")
	// temp_path must land inside the [storage] table, not after it.
	content := strings.Replace(sampleTOML,
		"backend = \"quark\"",
		"backend = \"quark\"\ntemp_path = \""+tempPath+"\"",
		1)
	path := writeConfig(t, content)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, tempPath, cfg.Storage.TempPath)

	info, err := os.Stat(tempPath)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "not valid toml {{{")
	_, err := Load(path)
	require.Error(t, err)
}
