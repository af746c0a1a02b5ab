package hook

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// luaHook runs a sandboxed Lua activation script. Scripts can read and set
// environment variables and abort the run with fail(reason).
type luaHook struct {
	path string
}

func (h *luaHook) Name() string { return "lua:" + h.path }

func (h *luaHook) Apply(ctx context.Context, env *Env) error {
	script, err := os.ReadFile(h.path)
	if err != nil {
		return fmt.Errorf("failed to read activation script: %w", err)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load any libraries by default
	})
	defer L.Close()
	L.SetContext(ctx)

	openSafeLibs(L)
	registerAPI(L, env)

	if err := L.DoString(string(script)); err != nil {
		return fmt.Errorf("activation script failed: %w", err)
	}
	return nil
}

// openSafeLibs loads only the safe standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	// Remove filesystem and code-loading escape hatches
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("print", lua.LNil) // Use log() instead

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// registerAPI exposes the activation API to the script.
func registerAPI(L *lua.LState, env *Env) {
	L.SetGlobal("env", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		value := L.CheckString(2)
		env.Set(key, value)
		return 0
	}))

	L.SetGlobal("getenv", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		L.Push(lua.LString(env.Get(key)))
		return 1
	}))

	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		message := L.CheckString(1)
		log.Info().Str("hook", "lua").Msg(message)
		return 0
	}))

	L.SetGlobal("fail", L.NewFunction(func(L *lua.LState) int {
		reason := L.OptString(1, "activation aborted")
		L.RaiseError("%s", reason)
		return 0
	}))
}
