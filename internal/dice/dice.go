// Package dice parses tabletop dice expressions such as "3d6+2d8-1", rolls
// them against an injected randomness Source, and aggregates totals across
// repeated rolls.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Term signs.
const (
	Positive = 1
	Negative = -1
)

// DiceTerm is Count dice of Sides faces, added (Sign == Positive) or
// subtracted (Sign == Negative) from the total.
//
// Invariant: Count > 0 and Sides > 0 for every term produced by Parse.
type DiceTerm struct {
	Sign  int
	Count int
	Sides int
}

// String renders the term with an explicit sign, e.g. "+2d6" or "-1d4".
func (t DiceTerm) String() string {
	return fmt.Sprintf("%s%dd%d", signPrefix(t.Sign), t.Count, t.Sides)
}

// FlatMod is a constant offset applied to the total.
//
// Invariant: Value >= 0; the direction is carried by Sign.
type FlatMod struct {
	Sign  int
	Value int
}

// Signed returns Sign * Value.
func (m FlatMod) Signed() int {
	return m.Sign * m.Value
}

// Expression is a parsed dice expression ready to be rolled any number of times.
//
// Invariant: at least one of Dice and Flats is non-empty after a successful Parse.
// Term order mirrors the input and only matters for display.
type Expression struct {
	Raw   string // original input string
	Dice  []DiceTerm
	Flats []FlatMod
}

// String renders the expression in canonical form: dice terms first, then
// flat modifiers, e.g. "3d6+2d8-1".
func (e Expression) String() string {
	var b strings.Builder
	for i, t := range e.Dice {
		if i > 0 || t.Sign < 0 {
			b.WriteString(signPrefix(t.Sign))
		}
		fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
	}
	for i, m := range e.Flats {
		if i > 0 || len(e.Dice) > 0 || m.Sign < 0 {
			b.WriteString(signPrefix(m.Sign))
		}
		b.WriteString(strconv.Itoa(m.Value))
	}
	return b.String()
}

// AdvantageMode selects how a solitary d20 term is rolled.
type AdvantageMode int

const (
	// ModeNone rolls every die once.
	ModeNone AdvantageMode = iota
	// ModeAdvantage rolls a lone d20 twice and keeps the higher result.
	ModeAdvantage
	// ModeDisadvantage rolls a lone d20 twice and keeps the lower result.
	ModeDisadvantage
)

func (m AdvantageMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAdvantage:
		return "advantage"
	case ModeDisadvantage:
		return "disadvantage"
	default:
		return "unknown"
	}
}

// ParseAdvantageMode maps "none", "advantage"/"adv" and "disadvantage"/"dis"
// to an AdvantageMode. The empty string is ModeNone.
func ParseAdvantageMode(s string) (AdvantageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "advantage", "adv":
		return ModeAdvantage, nil
	case "disadvantage", "dis":
		return ModeDisadvantage, nil
	default:
		return ModeNone, fmt.Errorf("dice: unknown advantage mode %q", s)
	}
}

// RollDetail holds the dice rolled for one term.
//
// Postcondition: len(Rolls) == Term.Count and Subtotal == Term.Sign * sum(Rolls).
type RollDetail struct {
	Term     DiceTerm
	Rolls    []int
	Subtotal int
}

// String returns the detail in the format "+2d6: [4, 5] = 9".
func (d RollDetail) String() string {
	rolls := make([]string, len(d.Rolls))
	for i, r := range d.Rolls {
		rolls[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("%s: [%s] = %d", d.Term, strings.Join(rolls, ", "), d.Subtotal)
}

// RollResult holds the full audit trail for a single evaluation.
//
// Postcondition: Total == FlatTotal + sum(Details[i].Subtotal).
type RollResult struct {
	Expression string // canonical form of the rolled expression
	Details    []RollDetail
	FlatTotal  int
	Total      int
}

// String returns a one-line audit string in the format:
//
//	"2d6+3 → +2d6: [4, 5] = 9 +3 = 12"
func (r RollResult) String() string {
	parts := make([]string, len(r.Details))
	for i, d := range r.Details {
		parts[i] = d.String()
	}
	var b strings.Builder
	b.WriteString(r.Expression)
	b.WriteString(" → ")
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "%+d = %d", r.FlatTotal, r.Total)
	return b.String()
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

func signPrefix(sign int) string {
	if sign < 0 {
		return "-"
	}
	return "+"
}
