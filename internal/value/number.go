package value

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Number is an arbitrary-precision decimal, including the XSD special
// values INF, -INF and NaN.
//
// Number is immutable; the wrapped decimal is never exposed for mutation.
type Number struct {
	d *apd.Decimal
}

func (Number) Kind() Kind { return KindNumber }
func (Number) isValue()   {}

// Int returns the number n.
func Int(n int64) Number {
	return Number{d: apd.New(n, 0)}
}

// NewNumber wraps a copy of d.
func NewNumber(d *apd.Decimal) Number {
	var c apd.Decimal
	c.Set(d)
	return Number{d: &c}
}

// ParseNumber parses a decimal, scientific or XSD special lexical form.
func ParseNumber(s string) (Number, error) {
	switch strings.TrimSpace(s) {
	case "INF", "+INF":
		return Number{d: &apd.Decimal{Form: apd.Infinite}}, nil
	case "-INF":
		return Number{d: &apd.Decimal{Form: apd.Infinite, Negative: true}}, nil
	case "NaN":
		return Number{d: &apd.Decimal{Form: apd.NaN}}, nil
	}

	d, _, err := apd.NewFromString(xsdDecimal(strings.TrimSpace(s)))
	if err != nil {
		return Number{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		// apd also accepts spellings like "Infinity"; XSD does not.
		return Number{}, fmt.Errorf("invalid number %q", s)
	}
	return Number{d: d}, nil
}

// xsdDecimal rewrites the XSD spellings "+1", ".5" and "5." into forms
// apd parses.
func xsdDecimal(s string) string {
	s = strings.TrimPrefix(s, "+")
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	if strings.HasPrefix(body, ".") {
		body = "0" + body
	}
	if mant, exp, ok := strings.Cut(body, "e"); ok && strings.HasSuffix(mant, ".") {
		body = mant + "0e" + exp
	} else if mant, exp, ok := strings.Cut(body, "E"); ok && strings.HasSuffix(mant, ".") {
		body = mant + "0E" + exp
	} else if strings.HasSuffix(body, ".") {
		body += "0"
	}
	if neg {
		return "-" + body
	}
	return body
}

// MustParseNumber is like ParseNumber but panics on error.
func MustParseNumber(s string) Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Number) dec() *apd.Decimal {
	if n.d == nil {
		return apd.New(0, 0)
	}
	return n.d
}

// Decimal returns a copy of the underlying decimal.
func (n Number) Decimal() *apd.Decimal {
	var c apd.Decimal
	c.Set(n.dec())
	return &c
}

// IsFinite reports whether n is neither infinite nor NaN.
func (n Number) IsFinite() bool {
	return n.dec().Form == apd.Finite
}

// IsNaN reports whether n is NaN.
func (n Number) IsNaN() bool {
	f := n.dec().Form
	return f == apd.NaN || f == apd.NaNSignaling
}

// IsInteger reports whether n is finite and integral.
func (n Number) IsInteger() bool {
	if !n.IsFinite() {
		return false
	}
	var r apd.Decimal
	r.Reduce(n.dec())
	return r.Exponent >= 0
}

// Int64 returns n as an int64 when it is integral and in range.
func (n Number) Int64() (int64, error) {
	if !n.IsInteger() {
		return 0, fmt.Errorf("%s is not an integer", n)
	}
	var r apd.Decimal
	r.Reduce(n.dec())
	return r.Int64()
}

// Equal compares by value. NaN equals NaN.
func (n Number) Equal(o Number) bool {
	if n.IsNaN() || o.IsNaN() {
		return n.IsNaN() && o.IsNaN()
	}
	return n.dec().Cmp(o.dec()) == 0
}

// String returns the XSD lexical form: plain decimal notation for finite
// values, INF, -INF or NaN otherwise.
func (n Number) String() string {
	d := n.dec()
	switch d.Form {
	case apd.Infinite:
		if d.Negative {
			return "-INF"
		}
		return "INF"
	case apd.NaN, apd.NaNSignaling:
		return "NaN"
	default:
		return d.Text('f')
	}
}

// IntegerString returns the canonical xsd:integer form. ok is false when
// n is not integral.
func (n Number) IntegerString() (string, bool) {
	if !n.IsInteger() {
		return "", false
	}
	var r apd.Decimal
	r.Reduce(n.dec())
	return r.Text('f'), true
}
