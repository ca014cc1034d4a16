package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicesim/internal/dice"
)

// sequenceSource returns the queued values in order and fails the test when
// the queue is exhausted or a value falls outside [0, n).
func sequenceSource(t testing.TB, values ...int) dice.Source {
	t.Helper()
	i := 0
	return dice.SourceFunc(func(n int) int {
		require.Less(t, i, len(values), "sequence source exhausted")
		v := values[i]
		i++
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, n, "queued value %d out of range for n=%d", v, n)
		return v
	})
}

func TestDiceTerm_String(t *testing.T) {
	assert.Equal(t, "+2d6", dice.DiceTerm{Sign: dice.Positive, Count: 2, Sides: 6}.String())
	assert.Equal(t, "-1d4", dice.DiceTerm{Sign: dice.Negative, Count: 1, Sides: 4}.String())
}

// TestRollDetail_String verifies the "<sign><count>d<sides>: [..] = subtotal" format.
func TestRollDetail_String(t *testing.T) {
	d := dice.RollDetail{
		Term:     dice.DiceTerm{Sign: dice.Positive, Count: 2, Sides: 6},
		Rolls:    []int{4, 5},
		Subtotal: 9,
	}
	assert.Equal(t, "+2d6: [4, 5] = 9", d.String())

	neg := dice.RollDetail{
		Term:     dice.DiceTerm{Sign: dice.Negative, Count: 1, Sides: 8},
		Rolls:    []int{3},
		Subtotal: -3,
	}
	assert.Equal(t, "-1d8: [3] = -3", neg.String())
}

func TestRollResult_String(t *testing.T) {
	r := dice.Roll(dice.MustParse("2d6+3"), dice.ModeNone, sequenceSource(t, 3, 4))
	assert.Equal(t, "2d6+3 → +2d6: [4, 5] = 9 +3 = 12", r.String())
}

func TestRollResult_String_FlatOnly(t *testing.T) {
	r := dice.Roll(dice.MustParse("5"), dice.ModeNone, sequenceSource(t))
	assert.Equal(t, "5 → +5 = 5", r.String())
}

func TestExpression_String_Canonical(t *testing.T) {
	cases := map[string]string{
		"2d6+3":     "2d6+3",
		"3d6+2d8-1": "3d6+2d8-1",
		"d20 + 5":   "1d20+5",
		"-1d4+2":    "-1d4+2",
		"-3+d6":     "1d6-3",
		"7":         "7",
		"-2":        "-2",
		"1+2":       "1+2",
	}
	for in, want := range cases {
		assert.Equal(t, want, dice.MustParse(in).String(), "canonical form of %q", in)
	}
}

// TestExpression_String_RoundTrip verifies that re-parsing the canonical form
// yields the same terms.
func TestExpression_String_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "terms")
		var b strings.Builder
		for i := 0; i < n; i++ {
			op := rapid.SampledFrom([]string{"+", "-"}).Draw(rt, "op")
			if i > 0 || op == "-" {
				b.WriteString(op)
			}
			if rapid.Bool().Draw(rt, "isDice") {
				fmt.Fprintf(&b, "%dd%d", rapid.IntRange(1, 10).Draw(rt, "count"), rapid.IntRange(1, 100).Draw(rt, "sides"))
			} else {
				fmt.Fprintf(&b, "%d", rapid.IntRange(0, 50).Draw(rt, "flat"))
			}
		}
		orig := dice.MustParse(b.String())
		again := dice.MustParse(orig.String())
		assert.Equal(rt, orig.Dice, again.Dice)
		assert.Equal(rt, orig.Flats, again.Flats)
	})
}

func TestFlatMod_Signed(t *testing.T) {
	assert.Equal(t, 3, dice.FlatMod{Sign: dice.Positive, Value: 3}.Signed())
	assert.Equal(t, -3, dice.FlatMod{Sign: dice.Negative, Value: 3}.Signed())
}

func TestParseAdvantageMode(t *testing.T) {
	cases := map[string]dice.AdvantageMode{
		"":             dice.ModeNone,
		"none":         dice.ModeNone,
		"advantage":    dice.ModeAdvantage,
		"ADV":          dice.ModeAdvantage,
		"disadvantage": dice.ModeDisadvantage,
		" dis ":        dice.ModeDisadvantage,
	}
	for in, want := range cases {
		got, err := dice.ParseAdvantageMode(in)
		require.NoError(t, err, "mode %q", in)
		assert.Equal(t, want, got, "mode %q", in)
	}
	_, err := dice.ParseAdvantageMode("lucky")
	assert.Error(t, err)
}

func TestAdvantageMode_String(t *testing.T) {
	assert.Equal(t, "none", dice.ModeNone.String())
	assert.Equal(t, "advantage", dice.ModeAdvantage.String())
	assert.Equal(t, "disadvantage", dice.ModeDisadvantage.String())
	assert.Equal(t, "unknown", dice.AdvantageMode(42).String())
}

// TestAdvantageMode_StringParses verifies every named mode survives a
// String/ParseAdvantageMode round trip.
func TestAdvantageMode_StringParses(t *testing.T) {
	for _, m := range []dice.AdvantageMode{dice.ModeNone, dice.ModeAdvantage, dice.ModeDisadvantage} {
		got, err := dice.ParseAdvantageMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}
