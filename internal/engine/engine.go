// Package engine builds isolated execution contexts and invokes module entry
// points. Each module gets its own Lua VM containing exactly the module's own
// sources plus its direct dependencies' sources; nothing else is visible, and
// no state is shared or cached between modules.
package engine

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/kyriji/modloader/internal/artifact"
	"github.com/kyriji/modloader/internal/registry"
)

// MissingEntryPointError reports a module whose manifest declares no entry
// point. Registration does not require one; activation does.
type MissingEntryPointError struct {
	Module string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("module %s: manifest declares no entry point", e.Module)
}

// EntryPointNotFoundError reports an entry identifier that does not resolve
// to a callable within the module's scope.
type EntryPointNotFoundError struct {
	Module string
	Entry  string
}

func (e *EntryPointNotFoundError) Error() string {
	return fmt.Sprintf("module %s: entry point %s not found in scope", e.Module, e.Entry)
}

// ExecutionError wraps a failure raised while loading a module's code or
// running its entry point. Already-activated dependencies stay activated.
type ExecutionError struct {
	Module string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("module %s: execution failed: %v", e.Module, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Engine constructs scopes and invokes entry points.
type Engine struct {
	logger *log.Logger
}

// New creates an activation engine.
func New(logger *log.Logger) *Engine {
	return &Engine{logger: logger}
}

// Activate builds a fresh scope for mod, loads the direct dependencies'
// sources and then mod's own, resolves the declared entry point, and invokes
// it synchronously with no arguments on the calling goroutine. On success the
// returned scope is retained by the caller for the module's lifetime; on any
// failure the partially built scope is discarded and an error describing the
// failure is returned.
func (e *Engine) Activate(mod *registry.Module, deps []*registry.Module) (any, error) {
	if mod.EntryPoint == "" {
		return nil, &MissingEntryPointError{Module: mod.Name}
	}

	scope, err := e.newScope(mod, deps)
	if err != nil {
		return nil, err
	}

	fn, ok := scope.lookup(mod.EntryPoint)
	if !ok {
		scope.state.Close()
		return nil, &EntryPointNotFoundError{Module: mod.Name, Entry: mod.EntryPoint}
	}

	e.logger.Debug("invoking entry point", "module", mod.Name, "entry", mod.EntryPoint)
	if err := scope.call(fn); err != nil {
		scope.state.Close()
		return nil, &ExecutionError{Module: mod.Name, Err: err}
	}
	return scope, nil
}

// newScope creates the module's isolated execution context: a new Lua state
// with the standard libraries and the host table, populated with the direct
// dependencies' sources followed by the module's own.
func (e *Engine) newScope(mod *registry.Module, deps []*registry.Module) (*Scope, error) {
	L := lua.NewState()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenOs(L)

	s := &Scope{state: L, module: mod.Name}
	s.registerHost(e.logger)

	for _, dep := range deps {
		if err := s.loadArtifact(dep.Artifact); err != nil {
			L.Close()
			return nil, &ExecutionError{Module: mod.Name, Err: err}
		}
	}
	if err := s.loadArtifact(mod.Artifact); err != nil {
		L.Close()
		return nil, &ExecutionError{Module: mod.Name, Err: err}
	}
	return s, nil
}

// Scope is one module's isolated execution context. It wraps a dedicated Lua
// state that lives as long as the process; there is no close operation in the
// loader's lifecycle.
type Scope struct {
	state  *lua.LState
	module string
}

// Module returns the name of the module this scope belongs to.
func (s *Scope) Module() string { return s.module }

// Global returns the named global from the scope. Exposed for host-side
// inspection of activated modules.
func (s *Scope) Global(name string) lua.LValue {
	return s.state.GetGlobal(name)
}

// registerHost installs the minimal host API visible to module code.
func (s *Scope) registerHost(logger *log.Logger) {
	L := s.state
	host := L.NewTable()
	L.SetField(host, "log", L.NewFunction(func(L *lua.LState) int {
		logger.Info(L.CheckString(1), "module", s.module)
		return 0
	}))
	L.SetGlobal("host", host)
}

// loadArtifact executes an artifact's sources in order, defining its globals
// in this scope.
func (s *Scope) loadArtifact(a *artifact.Artifact) error {
	for _, src := range a.Sources {
		if err := s.state.DoString(src.Code); err != nil {
			return fmt.Errorf("loading %s from %s: %w", src.Name, a.Path, err)
		}
	}
	return nil
}

// lookup resolves a dotted entry identifier against the scope's globals. The
// leading segment names a global; each further segment indexes a table. The
// final value must be callable.
func (s *Scope) lookup(entry string) (*lua.LFunction, bool) {
	parts := strings.Split(entry, ".")
	val := s.state.GetGlobal(parts[0])
	for _, part := range parts[1:] {
		tbl, ok := val.(*lua.LTable)
		if !ok {
			return nil, false
		}
		val = s.state.GetField(tbl, part)
	}
	fn, ok := val.(*lua.LFunction)
	return fn, ok
}

// call invokes the entry point with no arguments, discarding any return
// value. Errors raised inside Lua come back as Go errors.
func (s *Scope) call(fn *lua.LFunction) error {
	return s.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	})
}
