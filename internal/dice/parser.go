package dice

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "3d6+2d8-1", "-1d4+2", "5".
//
// Whitespace is ignored. The die separator is a lower-case 'd' only, so "2D6"
// is a malformed term. Every '-' starts a new negative term, so the expression
// is a sequence of signed terms joined by '+'.
//
// Postcondition: Returns an Expression with at least one term, or a *ParseError.
func Parse(expr string) (Expression, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expr)
	normalized = strings.ReplaceAll(normalized, "-", "+-")
	if normalized == "" {
		return Expression{}, parseErr(expr, "", ErrEmptyExpression, nil)
	}

	e := Expression{Raw: expr}
	for _, token := range strings.Split(normalized, "+") {
		if token == "" {
			continue
		}

		if !strings.Contains(token, "d") {
			if mod, ok, err := parseFlat(token); ok {
				e.Flats = append(e.Flats, mod)
				continue
			} else if err != nil {
				return Expression{}, parseErr(expr, token, ErrInvalidFlatModifier, err)
			}
		}

		term, err := parseTerm(expr, token)
		if err != nil {
			return Expression{}, err
		}
		e.Dice = append(e.Dice, term)
	}

	if len(e.Dice) == 0 && len(e.Flats) == 0 {
		return Expression{}, parseErr(expr, "", ErrNothingToRoll, nil)
	}
	return e, nil
}

// parseFlat classifies a d-free token. It reports ok when the token is a flat
// modifier, and a non-nil error when the token must be a flat modifier (it
// carries a leading '-' or is an out-of-range integer) but does not parse.
func parseFlat(token string) (FlatMod, bool, error) {
	n, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		if strings.HasPrefix(token, "-") || errors.Is(err, strconv.ErrRange) {
			return FlatMod{}, false, err
		}
		return FlatMod{}, false, nil
	}
	v := int(n)
	if v < 0 {
		return FlatMod{Sign: Negative, Value: -v}, true, nil
	}
	return FlatMod{Sign: Positive, Value: v}, true, nil
}

// parseTerm parses a "[-][count]d<sides>" token.
func parseTerm(expr, token string) (DiceTerm, error) {
	sign := Positive
	core := token
	if rest, ok := strings.CutPrefix(token, "-"); ok {
		sign = Negative
		core = rest
	}

	parts := strings.Split(core, "d")
	if len(parts) != 2 {
		return DiceTerm{}, parseErr(expr, token, ErrMalformedTerm, nil)
	}
	countStr, sidesStr := parts[0], parts[1]

	count := 1
	if countStr != "" {
		n, err := strconv.ParseUint(countStr, 10, 32)
		if err != nil {
			return DiceTerm{}, parseErr(expr, token, ErrInvalidCount, err)
		}
		count = int(n)
	}

	n, err := strconv.ParseUint(sidesStr, 10, 32)
	if err != nil {
		return DiceTerm{}, parseErr(expr, token, ErrInvalidSides, err)
	}
	sides := int(n)

	if count == 0 || sides == 0 {
		return DiceTerm{}, parseErr(expr, token, ErrNonPositiveValue, nil)
	}
	return DiceTerm{Sign: sign, Count: count, Sides: sides}, nil
}
