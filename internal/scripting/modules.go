package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicesim/internal/dice"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.dice.roll(expr [, mode]) -> result | nil, errmsg
//	engine.dice.stats({totals...})  -> stats | nil
//	engine.log.debug|info|warn|error(msg)
//
// Precondition: L must be a Sandbox's state.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "log", m.logModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"roll": func(L *lua.LState) int {
			expr := L.CheckString(1)
			mode, err := dice.ParseAdvantageMode(L.OptString(2, ""))
			if err != nil {
				L.ArgError(2, err.Error())
				return 0
			}
			res, err := m.roller.RollExpr(expr, mode)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(ResultTable(L, res))
			return 1
		},
		"stats": func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			values := make([]int, 0, tbl.Len())
			for i := 1; i <= tbl.Len(); i++ {
				n, ok := tbl.RawGetInt(i).(lua.LNumber)
				if !ok {
					L.ArgError(1, "totals must be numbers")
					return 0
				}
				values = append(values, int(n))
			}
			st, ok := dice.ComputeStats(values)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(StatsTable(L, st))
			return 1
		},
	})
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	logAt := func(fn func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": logAt(m.logger.Debug),
		"info":  logAt(m.logger.Info),
		"warn":  logAt(m.logger.Warn),
		"error": logAt(m.logger.Error),
	})
}

// ResultTable converts a RollResult into a Lua table:
//
//	{expression, total, flat, details = {{sign, count, sides, rolls = {...}, subtotal}, ...}}
func ResultTable(L *lua.LState, r dice.RollResult) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("expression", lua.LString(r.Expression))
	t.RawSetString("total", lua.LNumber(r.Total))
	t.RawSetString("flat", lua.LNumber(r.FlatTotal))

	details := L.NewTable()
	for _, d := range r.Details {
		dt := L.NewTable()
		dt.RawSetString("sign", lua.LNumber(d.Term.Sign))
		dt.RawSetString("count", lua.LNumber(d.Term.Count))
		dt.RawSetString("sides", lua.LNumber(d.Term.Sides))
		dt.RawSetString("subtotal", lua.LNumber(d.Subtotal))
		rolls := L.NewTable()
		for _, v := range d.Rolls {
			rolls.Append(lua.LNumber(v))
		}
		dt.RawSetString("rolls", rolls)
		details.Append(dt)
	}
	t.RawSetString("details", details)
	return t
}

// StatsTable converts Stats into a Lua table {count, min, max, mean}.
func StatsTable(L *lua.LState, st dice.Stats) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("count", lua.LNumber(st.Count))
	t.RawSetString("min", lua.LNumber(st.Min))
	t.RawSetString("max", lua.LNumber(st.Max))
	t.RawSetString("mean", lua.LNumber(st.Mean))
	return t
}
