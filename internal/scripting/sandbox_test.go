package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicesim/internal/scripting"
)

func newSandbox(t testing.TB, limit int) *scripting.Sandbox {
	t.Helper()
	sb := scripting.NewSandbox(limit)
	require.NotNil(t, sb)
	t.Cleanup(sb.Close)
	return sb
}

func TestNewSandbox_UnsafeLibsNil(t *testing.T) {
	sb := newSandbox(t, 0)
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, sb.L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandbox_DangerousGlobalsNil(t *testing.T) {
	sb := newSandbox(t, 0)
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, sb.L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandbox_SafeLibsAvailable(t *testing.T) {
	sb := newSandbox(t, 0)
	err := sb.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
		local t = {}
		table.insert(t, 1)
		assert(#t == 1, "table.insert failed")
	`)
	assert.NoError(t, err)
}

func TestNewSandbox_DefaultLimit(t *testing.T) {
	assert.Equal(t, scripting.DefaultInstructionLimit, newSandbox(t, 0).Limit())
	assert.Equal(t, scripting.DefaultInstructionLimit, newSandbox(t, -5).Limit())
	assert.Equal(t, 42, newSandbox(t, 42).Limit())
}

func TestSandbox_InstructionLimitExceeded(t *testing.T) {
	sb := newSandbox(t, 10)
	assert.Error(t, sb.DoString(`while true do end`), "expected instruction limit error")
}

func TestSandbox_BudgetIsPerRun(t *testing.T) {
	sb := newSandbox(t, 200)
	require.NoError(t, sb.DoString(`n = 0`))
	// Each run costs a handful of opcodes; together they far exceed one budget.
	for i := 0; i < 500; i++ {
		require.NoError(t, sb.DoString(`n = n + 1`), "run %d", i)
	}
	assert.Equal(t, lua.LNumber(500), sb.L.GetGlobal("n"))
}

func TestSandbox_RecoversAfterExhaustedRun(t *testing.T) {
	sb := newSandbox(t, 100)
	require.Error(t, sb.DoString(`while true do end`))
	require.NoError(t, sb.DoString(`ok = true`))
	assert.Equal(t, lua.LTrue, sb.L.GetGlobal("ok"))
}

func TestSandbox_NoBudgetOutsideRun(t *testing.T) {
	sb := newSandbox(t, 10)
	require.NoError(t, sb.DoString(`x = 1`))
	assert.Nil(t, sb.L.Context())
}

func TestSandbox_RunPropagatesError(t *testing.T) {
	sb := newSandbox(t, 0)
	err := sb.Run(func(L *lua.LState) error {
		return L.DoString(`error("boom")`)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		sb := scripting.NewSandbox(limit)
		defer sb.Close()
		if err := sb.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
