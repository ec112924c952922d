package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_Override(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFileName, `
logging:
  level: debug
  format: json
run:
  stopOnError: true
  parallel: 4
history:
  enabled: false
  path: history
plugins:
  - /abs/plugin.so
  - rel/plugin.so
envFiles:
  - .env
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Run.StopOnError)
	assert.False(t, cfg.Run.FailFast)
	assert.Equal(t, 4, cfg.Run.Parallel)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(dir, "history"), cfg.History.Path)
	assert.Equal(t, []string{"/abs/plugin.so", filepath.Join(dir, "rel/plugin.so")}, cfg.Plugins)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, cfg.EnvFiles)
	assert.Equal(t, DefaultPrompt, cfg.Transport.Prompt, "unset sections keep defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: "run: [1"},
		{name: "bad format", content: "logging:\n  format: xml\n"},
		{name: "negative parallel", content: "run:\n  parallel: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, configFileName, tt.content)
			_, err := LoadConfig(dir)
			assert.Error(t, err)
		})
	}
}

func TestGetUserConfigDir(t *testing.T) {
	orig := osUserHomeDir
	defer func() { osUserHomeDir = orig }()

	osUserHomeDir = func() (string, error) { return "/home/u", nil }
	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.config/mec", dir)

	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	_, err = GetUserConfigDir()
	assert.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.env", "A=1\nB=from-a\n# comment\n")
	b := writeFile(t, dir, "b.env", "B=from-b\nC=\"quoted value\"\n")

	env, err := LoadEnvFiles(a, b)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "from-b", "C": "quoted value"}, env)

	_, err = LoadEnvFiles(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestParseEnvPairs(t *testing.T) {
	env, err := ParseEnvPairs([]string{"A=1", "B=", "C=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "", "C": "x=y"}, env)

	for _, bad := range []string{"novalue", "=x", " =x"} {
		_, err := ParseEnvPairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestErrorCollection(t *testing.T) {
	var c ErrorCollection
	assert.False(t, c.HasErrors())
	assert.NoError(t, c.Err())

	cause := errors.New("boom")
	c.Add(NewFileError("a.yaml", ErrorTypeParse, cause))
	require.Error(t, c.Err())
	assert.Equal(t, "a.yaml: parse error: boom", c.Err().Error())
	assert.ErrorIs(t, c.Errors[0], cause)

	c.Add(NewFileError("b.yaml", ErrorTypeIO, errors.New("gone")))
	assert.Contains(t, c.Error(), "2 files failed to load")
	assert.Contains(t, c.Report(), "b.yaml (io): gone")
}
