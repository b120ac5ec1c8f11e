package mathkernel

import (
	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// maxNthRootIterations bounds Newton's method the same way the reference
// implementation does: converge or give up, never loop forever.
const maxNthRootIterations = 50

// Sqrt returns floor(sqrt(x)) using uint256's Karatsuba-less Newton method.
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// Pow computes base^exp with explicit overflow detection, by squaring.
func Pow(base *uint256.Int, exp uint64) (*uint256.Int, error) {
	result := uint256.NewInt(1)
	b := new(uint256.Int).Set(base)
	overflowed := false

	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			var of bool
			result, of = result.MulOverflow(result, b)
			if of {
				overflowed = true
			}
		}
		if e > 1 {
			var of bool
			b, of = b.MulOverflow(b, b)
			if of {
				overflowed = true
			}
		}
	}
	if overflowed {
		return nil, kinds.New(kinds.Overflow, "integer power overflow")
	}
	return result, nil
}

// NthRoot computes floor(v^(1/n)) via Newton's method on
// x <- ((n-1)*x + v/x^(n-1)) / n, capped at maxNthRootIterations and
// stopping as soon as the estimate stops moving.
func NthRoot(v *uint256.Int, n uint64) (*uint256.Int, error) {
	if n == 0 {
		return nil, kinds.New(kinds.DivisionByZero, "nth root with n=0")
	}
	if v.IsZero() {
		return new(uint256.Int), nil
	}
	if n == 1 {
		return new(uint256.Int).Set(v), nil
	}
	if n == 2 {
		return Sqrt(v), nil
	}

	x := new(uint256.Int).Set(v)
	nMinus1 := uint256.NewInt(n - 1)
	nInt := uint256.NewInt(n)

	for i := 0; i < maxNthRootIterations; i++ {
		xPow, err := Pow(x, n-1)
		if err != nil {
			// x started too large; fall back to a smaller seed and retry once.
			x = Sqrt(v)
			continue
		}
		if xPow.IsZero() {
			break
		}
		term := new(uint256.Int).Mul(nMinus1, x)
		quotient := new(uint256.Int).Div(v, xPow)
		next := new(uint256.Int).Add(term, quotient)
		next.Div(next, nInt)

		if next.Cmp(x) == 0 {
			x = next
			break
		}
		x = next
	}
	return x, nil
}

// Lerp linearly interpolates between a and b at fraction t/denom.
func Lerp(a, b *uint256.Int, t, denom uint64) *uint256.Int {
	if b.Cmp(a) >= 0 {
		delta := new(uint256.Int).Sub(b, a)
		delta.Mul(delta, uint256.NewInt(t))
		delta.Div(delta, uint256.NewInt(denom))
		return new(uint256.Int).Add(a, delta)
	}
	delta := new(uint256.Int).Sub(a, b)
	delta.Mul(delta, uint256.NewInt(t))
	delta.Div(delta, uint256.NewInt(denom))
	return new(uint256.Int).Sub(a, delta)
}

// ApplyBp scales x by bp/10000.
func ApplyBp(x *uint256.Int, bp uint64) *uint256.Int {
	out := new(uint256.Int).Mul(x, uint256.NewInt(bp))
	return out.Div(out, uint256.NewInt(bpPrecision))
}

// SatSub returns x-y, saturating at zero instead of wrapping.
func SatSub(x, y *uint256.Int) *uint256.Int {
	if y.Cmp(x) >= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Sum adds a slice of reserves with overflow detection.
func Sum(values []*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, v := range values {
		var of bool
		total, of = total.AddOverflow(total, v)
		if of {
			return nil, kinds.New(kinds.Overflow, "reserve sum overflow")
		}
	}
	return total, nil
}
