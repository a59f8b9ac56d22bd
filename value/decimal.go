package value

import (
	"fmt"
	"math/big"
)

// Decimal is an arbitrary-precision fixed-point number: an unscaled
// integer magnitude plus a scale giving the number of digits after the
// decimal point. This is the Go stand-in for BigDecimal in the Java
// reference implementation; no example repo in the retrieval pack pulls
// in a third-party decimal library, so this is built directly on
// math/big.Int (see DESIGN.md).
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// NewDecimal builds a Decimal from an unscaled magnitude and a scale;
// its value is unscaled * 10^(-scale). It does not parse literal text:
// the parser splits a literal such as "1.5e-2" into these two parts
// before calling it.
func NewDecimal(unscaled *big.Int, scale int) *Decimal {
	return &Decimal{Unscaled: unscaled, Scale: scale}
}

var bigTen = big.NewInt(10)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func rescale(d *Decimal, scale int) *big.Int {
	if scale == d.Scale {
		return new(big.Int).Set(d.Unscaled)
	}
	return new(big.Int).Mul(d.Unscaled, pow10(scale-d.Scale))
}

// Add returns d+other, scaled to the larger of the two scales.
func (d *Decimal) Add(other *Decimal) *Decimal {
	scale := max(d.Scale, other.Scale)
	sum := new(big.Int).Add(rescale(d, scale), rescale(other, scale))
	return &Decimal{Unscaled: sum, Scale: scale}
}

// Sub returns d-other, scaled to the larger of the two scales.
func (d *Decimal) Sub(other *Decimal) *Decimal {
	scale := max(d.Scale, other.Scale)
	diff := new(big.Int).Sub(rescale(d, scale), rescale(other, scale))
	return &Decimal{Unscaled: diff, Scale: scale}
}

// Mul returns d*other exactly; the result's scale is the sum of the
// operand scales.
func (d *Decimal) Mul(other *Decimal) *Decimal {
	product := new(big.Int).Mul(d.Unscaled, other.Unscaled)
	return &Decimal{Unscaled: product, Scale: d.Scale + other.Scale}
}

// Div returns d/other rounded half-even to scale = max(d.Scale,
// other.Scale), per spec. Division by zero is an error.
func (d *Decimal) Div(other *Decimal) (*Decimal, error) {
	if other.Unscaled.Sign() == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	scale := max(d.Scale, other.Scale)
	num := new(big.Int).Mul(d.Unscaled, pow10(other.Scale+scale))
	den := new(big.Int).Mul(other.Unscaled, pow10(d.Scale))
	return &Decimal{Unscaled: divRoundHalfEven(num, den), Scale: scale}, nil
}

// divRoundHalfEven computes round_half_even(num/den) for a nonzero den.
func divRoundHalfEven(num, den *big.Int) *big.Int {
	sign := 1
	if (num.Sign() < 0) != (den.Sign() < 0) {
		sign = -1
	}
	num = new(big.Int).Abs(num)
	den = new(big.Int).Abs(den)

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	twiceR := new(big.Int).Lsh(r, 1)
	switch twiceR.Cmp(den) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	if sign < 0 {
		q.Neg(q)
	}
	return q
}

// Cmp compares d and other as real numbers regardless of scale.
func (d *Decimal) Cmp(other *Decimal) int {
	scale := max(d.Scale, other.Scale)
	return rescale(d, scale).Cmp(rescale(other, scale))
}

// Equal reports whether d and other denote the same real number.
func (d *Decimal) Equal(other *Decimal) bool {
	return d.Cmp(other) == 0
}

func (d *Decimal) String() string {
	if d.Scale <= 0 {
		return rescale(d, 0).String()
	}
	unscaled := new(big.Int).Abs(d.Unscaled)
	s := unscaled.String()
	for len(s) <= d.Scale {
		s = "0" + s
	}
	intPart := s[:len(s)-d.Scale]
	fracPart := s[len(s)-d.Scale:]
	sign := ""
	if d.Unscaled.Sign() < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%s", sign, intPart, fracPart)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
