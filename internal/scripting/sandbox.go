// Package scripting provides a sandboxed GopherLua environment for roll hook
// scripts. Scripts see the dice engine only through the engine.* tables
// registered by Manager.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of a single script load or hook
// call when no override is configured.
const DefaultInstructionLimit = 100_000

// unsafeGlobals are removed from every sandbox after the safe libs are opened.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// countingContext cancels itself after Done() has been called limit times.
// GopherLua's mainLoopWithContext calls Done() once per opcode.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}, cancel
}

// Sandbox is a restricted LState whose every run gets a fresh opcode budget.
// A budget exhausted by one hook call never starves the next one.
//
// A Sandbox is not safe for concurrent use; Manager serializes access.
type Sandbox struct {
	L     *lua.LState
	limit int
}

// NewSandbox creates a GopherLua state with only base, table, string and math
// loaded and the globals in unsafeGlobals removed.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil Sandbox. The caller must Close it.
func NewSandbox(instLimit int) *Sandbox {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return &Sandbox{L: L, limit: limit}
}

// Limit returns the per-run opcode budget.
func (s *Sandbox) Limit() int {
	return s.limit
}

// Run executes fn with a budget of Limit() opcodes. The budget is removed when
// fn returns, so Go code touching s.L between runs is never cancelled.
func (s *Sandbox) Run(fn func(L *lua.LState) error) error {
	ctx, cancel := newCountingContext(s.limit)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	return fn(s.L)
}

// DoString runs a Lua chunk under a fresh budget.
func (s *Sandbox) DoString(src string) error {
	return s.Run(func(L *lua.LState) error { return L.DoString(src) })
}

// DoFile runs the Lua file at path under a fresh budget.
func (s *Sandbox) DoFile(path string) error {
	return s.Run(func(L *lua.LState) error { return L.DoFile(path) })
}

// Close releases the underlying LState.
func (s *Sandbox) Close() {
	s.L.Close()
}
