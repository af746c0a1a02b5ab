package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FUNDDANCE_CONFIG", "")
	t.Setenv("FUNDDANCE_DATA_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "python3", cfg.Command)
	assert.Equal(t, []string{"bk/bk_vis/bk_fetch_data.py"}, cfg.Args)
	assert.Equal(t, "fetch_data.log", cfg.LogFile)
	assert.True(t, filepath.IsAbs(cfg.BaseDir))
	assert.Equal(t, filepath.Join(cfg.BaseDir, "logs"), cfg.LogDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "funddance.db"), cfg.DBPath)
	assert.False(t, cfg.IgnoreChildExit)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("FUNDDANCE_DATA_DIR", t.TempDir())
	base := t.TempDir()

	content := `
base_dir: ` + base + `
log_dir: out
log_file: daily.log
command: echo
args: ["hello"]
ignore_child_exit: true
hooks:
  - env:
      TUSHARE_TOKEN: abc123
`
	path := filepath.Join(t.TempDir(), "funddance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, base, cfg.BaseDir)
	assert.Equal(t, filepath.Join(base, "out"), cfg.LogDir)
	assert.Equal(t, filepath.Join(base, "out", "daily.log"), cfg.LogPath())
	assert.Equal(t, "echo", cfg.Command)
	assert.Equal(t, []string{"hello"}, cfg.Args)
	assert.True(t, cfg.IgnoreChildExit)
	require.Len(t, cfg.Hooks, 1)
	assert.Equal(t, "abc123", cfg.Hooks[0].Env["TUSHARE_TOKEN"])
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("FUNDDANCE_DATA_DIR", t.TempDir())
	override := t.TempDir()
	t.Setenv("FUNDDANCE_BASE_DIR", override)

	path := filepath.Join(t.TempDir(), "funddance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_dir: /somewhere/else\ncommand: echo\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, override, cfg.BaseDir)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funddance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("command: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(&Config{LogFile: "x.log"}), "missing command")
	assert.Error(t, Validate(&Config{Command: "echo"}), "missing log file")

	assert.Error(t, Validate(&Config{
		Command: "echo", LogFile: "x.log",
		Hooks: []HookDef{{}},
	}), "empty hook")

	assert.Error(t, Validate(&Config{
		Command: "echo", LogFile: "x.log",
		Hooks: []HookDef{{Run: "true", Lua: "activate.lua"}},
	}), "hook with two kinds")

	assert.NoError(t, Validate(&Config{
		Command: "echo", LogFile: "x.log",
		Hooks: []HookDef{{Run: "true"}, {Env: map[string]string{"A": "1"}}},
	}))
}
