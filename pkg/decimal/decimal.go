// Package decimal provides the engine's exact, fixed-scale numeric type.
//
// D wraps shopspring/decimal's arbitrary-precision backing so Add, Sub
// and Mul never lose digits. Div rounds its quotient to Scale fractional
// digits with an explicit directed mode, and String/MarshalJSON render
// every value rounded half away from zero to Scale digits. Values
// written into State are stored exactly as computed: nothing in the
// engine calls Round before storing a field. Replay is byte-identical
// because a live run and a replay perform the same exact arithmetic on
// the same inputs and render the results the same way.
package decimal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every D carries once it is
// rounded at a commit boundary. 8 digits comfortably covers
// price/quantity precision for perpetual futures.
const Scale = 8

// RoundingMode names a directed rounding policy. Only Div needs one
// explicitly (division is the sole operation that can fail to terminate);
// Round lets a caller re-round an already-computed value the same way.
type RoundingMode uint8

const (
	// RoundHalfAwayFromZero rounds ties away from zero (1.5 -> 2, -1.5 -> -2).
	RoundHalfAwayFromZero RoundingMode = iota
	// RoundHalfEven rounds ties to the nearest even digit (banker's rounding).
	RoundHalfEven
	// RoundFloor always rounds toward negative infinity.
	RoundFloor
	// RoundCeil always rounds toward positive infinity.
	RoundCeil
	// RoundDown truncates toward zero, dropping any remainder.
	RoundDown
)

// D is a signed exact decimal value.
type D struct {
	v decimal.Decimal
}

// Zero is the additive identity.
func Zero() D { return D{v: decimal.Zero} }

// NewFromInt builds an integral D, e.g. NewFromInt(50000) == "50000.00000000".
func NewFromInt(i int64) D { return D{v: decimal.NewFromInt(i)} }

// MustFromString parses s or panics; intended for literals in tests and
// fixture loaders where the input is known good at compile time.
func MustFromString(s string) D { return D{v: decimal.RequireFromString(s)} }

// FromString parses a decimal string such as "1234.56" or "-0.001".
func FromString(s string) (D, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return D{}, fmt.Errorf("decimal: parse %q: %w", s, err)
	}
	return D{v: v}, nil
}

// Add returns a+b at full precision (no rounding).
func (a D) Add(b D) D { return D{v: a.v.Add(b.v)} }

// Sub returns a-b at full precision (no rounding).
func (a D) Sub(b D) D { return D{v: a.v.Sub(b.v)} }

// Mul returns a*b at full precision (no rounding).
func (a D) Mul(b D) D { return D{v: a.v.Mul(b.v)} }

// Div returns a/b rounded to Scale fractional digits using mode.
// Division is the one arithmetic op that requires an explicit rounding
// mode, since the exact quotient may not terminate.
func (a D) Div(b D, mode RoundingMode) D {
	q := D{v: a.v.DivRound(b.v, int32(Scale)+4)}
	return q.Round(mode)
}

// Neg returns -a.
func (a D) Neg() D { return D{v: a.v.Neg()} }

// Abs returns |a|.
func (a D) Abs() D { return D{v: a.v.Abs()} }

// Sign returns -1, 0, or 1.
func (a D) Sign() int { return a.v.Sign() }

// IsZero reports whether a == 0.
func (a D) IsZero() bool { return a.v.IsZero() }

// IsNegative reports whether a < 0.
func (a D) IsNegative() bool { return a.v.IsNegative() }

// IsPositive reports whether a > 0.
func (a D) IsPositive() bool { return a.v.IsPositive() }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a D) Cmp(b D) int { return a.v.Cmp(b.v) }

// Equal reports whether a and b represent the same value.
func (a D) Equal(b D) bool { return a.v.Equal(b.v) }

// GreaterThan reports a > b.
func (a D) GreaterThan(b D) bool { return a.v.GreaterThan(b.v) }

// GreaterThanOrEqual reports a >= b.
func (a D) GreaterThanOrEqual(b D) bool { return a.v.GreaterThanOrEqual(b.v) }

// LessThan reports a < b.
func (a D) LessThan(b D) bool { return a.v.LessThan(b.v) }

// LessThanOrEqual reports a <= b.
func (a D) LessThanOrEqual(b D) bool { return a.v.LessThanOrEqual(b.v) }

// Round collapses a to Scale fractional digits using the directed mode.
// This is the "commit boundary" step: call it once, right before a value
// is written into State, never mid-computation.
func (a D) Round(mode RoundingMode) D {
	switch mode {
	case RoundHalfEven:
		return D{v: a.v.RoundBank(int32(Scale))}
	case RoundFloor:
		return D{v: a.v.RoundFloor(int32(Scale))}
	case RoundCeil:
		return D{v: a.v.RoundCeil(int32(Scale))}
	case RoundDown:
		return D{v: a.v.Truncate(int32(Scale))}
	default:
		return D{v: a.v.Round(int32(Scale))}
	}
}

// String renders the canonical fixed-scale form: no exponent, exactly
// Scale digits after the point, a leading '-' only when negative. Any two
// equal Ds render byte-identically regardless of how they were derived.
func (a D) String() string {
	return a.Round(RoundHalfAwayFromZero).v.StringFixed(int32(Scale))
}

// MarshalJSON encodes a as a canonical decimal string, never a JSON number
// (floats would reintroduce the imprecision this type exists to avoid).
func (a D) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical decimal string.
func (a *D) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decimal: unmarshal %q: %w", s, err)
	}
	a.v = v
	return nil
}
