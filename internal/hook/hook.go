// Package hook prepares the child environment before a fetch run. The
// activation mechanism is supplied by configuration rather than hardcoded:
// hooks run in order and may inject variables or perform setup side effects.
package hook

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/BillLee1st/FundDance/internal/config"
)

// Env is the mutable child environment handed to hooks, seeded from the
// parent process.
type Env struct {
	vars  []string
	index map[string]int
}

func NewEnv(base []string) *Env {
	e := &Env{index: make(map[string]int, len(base))}
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i > 0 {
			e.Set(kv[:i], kv[i+1:])
		}
	}
	return e
}

func (e *Env) Set(key, value string) {
	if i, ok := e.index[key]; ok {
		e.vars[i] = key + "=" + value
		return
	}
	e.index[key] = len(e.vars)
	e.vars = append(e.vars, key+"="+value)
}

func (e *Env) Get(key string) string {
	if i, ok := e.index[key]; ok {
		return e.vars[i][len(key)+1:]
	}
	return ""
}

// Vars returns the environment in the form expected by exec.Cmd.
func (e *Env) Vars() []string {
	return e.vars
}

// Hook mutates the child environment or performs setup before the run.
type Hook interface {
	Name() string
	Apply(ctx context.Context, env *Env) error
}

// FromConfig builds the hook chain from config entries. Setup commands run
// with baseDir as their working directory.
func FromConfig(baseDir string, defs []config.HookDef) ([]Hook, error) {
	hooks := make([]Hook, 0, len(defs))
	for i, def := range defs {
		switch {
		case len(def.Env) > 0:
			hooks = append(hooks, &envHook{vars: def.Env})
		case def.EnvFile != "":
			hooks = append(hooks, &envFileHook{path: def.EnvFile})
		case def.Run != "":
			hooks = append(hooks, &runHook{command: def.Run, dir: baseDir})
		case def.Lua != "":
			hooks = append(hooks, &luaHook{path: def.Lua})
		default:
			return nil, fmt.Errorf("hook %d is empty", i+1)
		}
	}
	return hooks, nil
}

type envHook struct {
	vars map[string]string
}

func (h *envHook) Name() string { return "env" }

func (h *envHook) Apply(_ context.Context, env *Env) error {
	for k, v := range h.vars {
		env.Set(k, v)
	}
	return nil
}

type envFileHook struct {
	path string
}

func (h *envFileHook) Name() string { return "env_file:" + h.path }

func (h *envFileHook) Apply(_ context.Context, env *Env) error {
	f, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			return fmt.Errorf("malformed line %d in %s", lineNum, h.path)
		}
		env.Set(line[:i], line[i+1:])
	}
	return scanner.Err()
}

// runHook executes a shell setup command. Its exit status gates the run:
// a failure here means the environment could not be activated.
type runHook struct {
	command string
	dir     string
}

func (h *runHook) Name() string { return "run:" + h.command }

func (h *runHook) Apply(ctx context.Context, env *Env) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", h.command)
	cmd.Dir = h.dir
	cmd.Env = env.Vars()
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("setup command failed: %s: %w", msg, err)
		}
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}
