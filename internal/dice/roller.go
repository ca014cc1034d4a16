package dice

// advantageSides is the only die size the advantage rule applies to.
const advantageSides = 20

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Under ModeAdvantage or ModeDisadvantage a term of exactly one d20 is rolled
// twice and the higher (lower) result is kept. Every other term, including
// "2d20", is rolled normally regardless of mode.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Details) == len(expr.Dice), every roll is in
// [1, Sides], and result.Total == result.FlatTotal + sum of subtotals.
func Roll(expr Expression, mode AdvantageMode, src Source) RollResult {
	result := RollResult{
		Expression: expr.String(),
		Details:    make([]RollDetail, 0, len(expr.Dice)),
	}

	for _, term := range expr.Dice {
		rolls := make([]int, term.Count)
		subtotal := 0
		for i := range rolls {
			rolls[i] = rollDie(term, mode, src)
			subtotal += rolls[i]
		}
		subtotal *= term.Sign

		result.Details = append(result.Details, RollDetail{
			Term:     term,
			Rolls:    rolls,
			Subtotal: subtotal,
		})
		result.Total += subtotal
	}

	for _, m := range expr.Flats {
		result.FlatTotal += m.Signed()
	}
	result.Total += result.FlatTotal
	return result
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Postcondition: Returns a RollResult or a *ParseError.
func RollExpr(expr string, mode AdvantageMode, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, mode, src), nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

func rollDie(term DiceTerm, mode AdvantageMode, src Source) int {
	if mode == ModeNone || term.Count != 1 || term.Sides != advantageSides {
		return between(src, term.Sides)
	}
	a := between(src, advantageSides)
	b := between(src, advantageSides)
	if mode == ModeAdvantage {
		return max(a, b)
	}
	return min(a, b)
}

// between returns a uniform value in [1, sides].
func between(src Source, sides int) int {
	return src.Intn(sides) + 1
}
