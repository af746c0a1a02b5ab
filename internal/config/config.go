package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config describes one fetch invocation: where it runs, where its output is
// logged, and how the environment is activated beforehand.
type Config struct {
	BaseDir         string    `yaml:"base_dir"`
	LogDir          string    `yaml:"log_dir"`
	LogFile         string    `yaml:"log_file"`
	Command         string    `yaml:"command"`
	Args            []string  `yaml:"args"`
	Hooks           []HookDef `yaml:"hooks"`
	IgnoreChildExit bool      `yaml:"ignore_child_exit"`

	DataDir string `yaml:"-"`
	DBPath  string `yaml:"-"`
}

// HookDef is one activation hook entry from the config file.
// Exactly one of the fields must be set.
type HookDef struct {
	Env     map[string]string `yaml:"env,omitempty"`
	EnvFile string            `yaml:"env_file,omitempty"`
	Run     string            `yaml:"run,omitempty"`
	Lua     string            `yaml:"lua,omitempty"`
}

func defaults() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return &Config{
		BaseDir: ".",
		LogFile: "fetch_data.log",
		Command: "python3",
		Args:    []string{"bk/bk_vis/bk_fetch_data.py"},
		DataDir: getEnv("FUNDDANCE_DATA_DIR", filepath.Join(homeDir, ".funddance")),
	}, nil
}

// Load builds the config from defaults, an optional YAML file, and environment
// overrides. An empty path falls back to $FUNDDANCE_CONFIG, then to
// funddance.yaml in the current directory if present.
func Load(path string) (*Config, error) {
	c, err := defaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv("FUNDDANCE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("funddance.yaml"); err == nil {
			path = "funddance.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	c.BaseDir = getEnv("FUNDDANCE_BASE_DIR", c.BaseDir)
	c.LogDir = getEnv("FUNDDANCE_LOG_DIR", c.LogDir)

	if err := c.resolve(); err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}

	return c, nil
}

// resolve makes paths absolute and fills derived ones.
func (c *Config) resolve() error {
	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	c.BaseDir = base

	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.BaseDir, "logs")
	} else if !filepath.IsAbs(c.LogDir) {
		c.LogDir = filepath.Join(c.BaseDir, c.LogDir)
	}

	c.DBPath = filepath.Join(c.DataDir, "funddance.db")
	return nil
}

// LogPath is the full path of the append-only run log.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogDir, c.LogFile)
}

func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

func Validate(c *Config) error {
	if c.Command == "" {
		return fmt.Errorf("config must set a command")
	}
	if c.LogFile == "" {
		return fmt.Errorf("config must set a log file name")
	}

	for i, h := range c.Hooks {
		kinds := 0
		if len(h.Env) > 0 {
			kinds++
		}
		if h.EnvFile != "" {
			kinds++
		}
		if h.Run != "" {
			kinds++
		}
		if h.Lua != "" {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("hook %d must set exactly one of env, env_file, run, lua", i+1)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
