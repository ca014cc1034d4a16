package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicesim/internal/dice"
)

// Hook names the CLI dispatches.
const (
	HookOnRoll  = "on_roll"
	HookOnStats = "on_stats"
)

// Manager owns one Sandbox per loaded script set and dispatches hooks.
//
// Each Sandbox is single-threaded; the mutex serializes calls so a Manager may
// be shared, but hook scripts run one at a time. Every load and every hook
// call runs under its own opcode budget.
type Manager struct {
	mu        sync.Mutex
	sandboxes map[string]*Sandbox
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no loaded scripts.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		sandboxes: make(map[string]*Sandbox),
		roller:    roller,
		logger:    logger,
	}
}

// LoadFile creates a sandboxed VM named name, registers the engine.* modules,
// and executes the Lua file at path. Loading a name twice replaces the old VM.
//
// Postcondition: VM is registered; returns error on read or Lua load failure.
func (m *Manager) LoadFile(name, path string, instLimit int) error {
	return m.loadInto(name, []string{path}, instLimit)
}

// LoadDir is LoadFile for every *.lua file in dir, executed in lexicographic
// order into a single VM.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadDir(name, dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, name, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)
	return m.loadInto(name, luaFiles, instLimit)
}

func (m *Manager) loadInto(name string, paths []string, instLimit int) error {
	sb := NewSandbox(instLimit)
	m.RegisterModules(sb.L)

	for _, path := range paths {
		if err := sb.DoFile(path); err != nil {
			sb.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}

	m.mu.Lock()
	m.closeLocked(name)
	m.sandboxes[name] = sb
	m.mu.Unlock()

	m.logger.Debug("scripting: loaded",
		zap.String("script", name),
		zap.Strings("files", paths),
		zap.Int("instruction_limit", sb.Limit()),
	)
	return nil
}

// CallHook calls the named Lua global function in the VM registered as name.
// Returns (LNil, nil) if the VM or hook does not exist. A Lua runtime error,
// including an exhausted instruction budget, is logged at Warn level and
// returned.
//
// Precondition: args must be valid lua.LValue instances created for the same VM
// or be scalar values.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(name, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(name, hook, args...)
}

func (m *Manager) callLocked(name, hook string, args ...lua.LValue) (lua.LValue, error) {
	sb := m.sandboxes[name]
	if sb == nil {
		m.logger.Info("scripting: no VM loaded",
			zap.String("script", name),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := sb.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	ret := lua.LValue(lua.LNil)
	err := sb.Run(func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", name),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s in %q: %w", hook, name, err)
	}
	return ret, nil
}

// CallRollHook passes result to on_roll in the named VM and returns the hook's
// string result, or "" when the hook is absent or returns a non-string.
func (m *Manager) CallRollHook(name string, result dice.RollResult) string {
	return m.callWithTable(name, HookOnRoll, func(L *lua.LState) lua.LValue {
		return ResultTable(L, result)
	})
}

// CallStatsHook passes st to on_stats in the named VM, like CallRollHook.
func (m *Manager) CallStatsHook(name string, st dice.Stats) string {
	return m.callWithTable(name, HookOnStats, func(L *lua.LState) lua.LValue {
		return StatsTable(L, st)
	})
}

func (m *Manager) callWithTable(name, hook string, build func(*lua.LState) lua.LValue) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sb := m.sandboxes[name]
	if sb == nil {
		return ""
	}
	// Errors are already logged by callLocked; a failed hook yields no note.
	ret, _ := m.callLocked(name, hook, build(sb.L))
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.sandboxes {
		m.closeLocked(name)
	}
}

func (m *Manager) closeLocked(name string) {
	if sb := m.sandboxes[name]; sb != nil {
		sb.Close()
	}
	delete(m.sandboxes, name)
}
