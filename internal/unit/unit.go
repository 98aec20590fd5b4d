package unit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Unit is a physical-unit signature: a mapping from base-unit symbol to
// signed exponent. The zero value is dimensionless.
//
// Units are value types. All operations return fresh maps; callers never
// share storage between signatures.
type Unit struct {
	exps map[string]int
}

// Dimensionless is the empty signature.
func Dimensionless() Unit {
	return Unit{}
}

// FromExponents builds a Unit from a symbol→exponent mapping.
// Zero exponents are dropped.
func FromExponents(exps map[string]int) Unit {
	u := Unit{}
	for sym, e := range exps {
		if e != 0 {
			u.set(sym, e)
		}
	}
	return u
}

func (u *Unit) set(sym string, e int) {
	if u.exps == nil {
		u.exps = make(map[string]int)
	}
	u.exps[sym] = e
}

func (u *Unit) add(sym string, e int) {
	if e == 0 {
		return
	}
	if u.exps == nil {
		u.exps = make(map[string]int)
	}
	u.exps[sym] += e
	if u.exps[sym] == 0 {
		delete(u.exps, sym)
	}
}

// IsDimensionless reports whether the signature has no terms.
func (u Unit) IsDimensionless() bool {
	return len(u.exps) == 0
}

// Exponent returns the exponent for a base symbol (0 if absent).
func (u Unit) Exponent(sym string) int {
	return u.exps[sym]
}

// Mul returns the product signature: exponents summed.
func (u Unit) Mul(o Unit) Unit {
	out := Unit{}
	for sym, e := range u.exps {
		out.add(sym, e)
	}
	for sym, e := range o.exps {
		out.add(sym, e)
	}
	return out
}

// Div returns the quotient signature: exponents subtracted.
func (u Unit) Div(o Unit) Unit {
	out := Unit{}
	for sym, e := range u.exps {
		out.add(sym, e)
	}
	for sym, e := range o.exps {
		out.add(sym, -e)
	}
	return out
}

// Inverse returns the reciprocal signature.
func (u Unit) Inverse() Unit {
	return Dimensionless().Div(u)
}

// Equal compares canonical forms. Insertion order is irrelevant because
// the representation is already canonical (no zero entries).
func (u Unit) Equal(o Unit) bool {
	if len(u.exps) != len(o.exps) {
		return false
	}
	for sym, e := range u.exps {
		if o.exps[sym] != e {
			return false
		}
	}
	return true
}

// String serializes the canonical form: positive-exponent terms in
// ascending lexicographic order joined by "*", then a "/" prefix for the
// negative terms (exponents rendered as positive magnitudes), also
// ascending. Dimensionless renders as "1".
//
//	{USD:1, MWh:-1} → "USD/MWh"
//	{m:2}           → "m^2"
func (u Unit) String() string {
	if len(u.exps) == 0 {
		return "1"
	}
	var pos, neg []string
	for sym := range u.exps {
		if u.exps[sym] > 0 {
			pos = append(pos, sym)
		} else {
			neg = append(neg, sym)
		}
	}
	sort.Strings(pos)
	sort.Strings(neg)

	term := func(sym string, mag int) string {
		if mag == 1 {
			return sym
		}
		return sym + "^" + strconv.Itoa(mag)
	}

	var b strings.Builder
	if len(pos) == 0 {
		b.WriteString("1")
	} else {
		for i, sym := range pos {
			if i > 0 {
				b.WriteString("*")
			}
			b.WriteString(term(sym, u.exps[sym]))
		}
	}
	if len(neg) > 0 {
		b.WriteString("/")
		for i, sym := range neg {
			if i > 0 {
				b.WriteString("*")
			}
			b.WriteString(term(sym, -u.exps[sym]))
		}
	}
	return b.String()
}

// ParseError reports a malformed unit expression.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid unit %q: %s", e.Input, e.Reason)
}

// Parse reads a unit expression. Tokens are delimited by "*" and "/";
// each token is "symbol" or "symbol^integer". A "/" negates the sign of
// every subsequent exponent up to the next "*"-group boundary, i.e.
// "a/b*c" parses as a * b⁻¹ * c and "a/b/c" as a * b⁻¹ * c⁻¹.
// "1" is accepted as the dimensionless literal.
func Parse(s string) (Unit, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Unit{}, &ParseError{Input: s, Reason: "empty expression"}
	}
	if trimmed == "1" {
		return Dimensionless(), nil
	}

	u := Unit{}
	sign := 1
	tok := strings.Builder{}

	flush := func() error {
		t := strings.TrimSpace(tok.String())
		tok.Reset()
		if t == "" {
			return &ParseError{Input: s, Reason: "empty token"}
		}
		if t == "1" {
			// "1" as a factor contributes nothing; allowed in the
			// numerator position ("1/USD").
			return nil
		}
		sym, exp := t, 1
		if i := strings.IndexByte(t, '^'); i >= 0 {
			sym = strings.TrimSpace(t[:i])
			if sym == "" {
				return &ParseError{Input: s, Reason: "missing symbol before ^"}
			}
			n, err := strconv.Atoi(strings.TrimSpace(t[i+1:]))
			if err != nil {
				return &ParseError{Input: s, Reason: "non-integer exponent in " + strconv.Quote(t)}
			}
			exp = n
		}
		u.add(sym, exp*sign)
		return nil
	}

	for _, r := range trimmed {
		switch r {
		case '*':
			if err := flush(); err != nil {
				return Unit{}, err
			}
			sign = 1
		case '/':
			if err := flush(); err != nil {
				return Unit{}, err
			}
			sign = -1
		default:
			tok.WriteRune(r)
		}
	}
	if err := flush(); err != nil {
		return Unit{}, err
	}
	return u, nil
}

// MustParse is Parse for trusted literals; panics on error.
// Intended for tests and compiled-in declarations.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
