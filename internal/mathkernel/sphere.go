package mathkernel

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// sumOfSquares computes Σr_i^2 with overflow detection.
func sumOfSquares(reserves []*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, r := range reserves {
		sq, of := new(uint256.Int).MulOverflow(r, r)
		if of {
			return nil, kinds.New(kinds.Overflow, "reserve squared overflow")
		}
		var addOf bool
		total, addOf = total.AddOverflow(total, sq)
		if addOf {
			return nil, kinds.New(kinds.Overflow, "sum of squares overflow")
		}
	}
	return total, nil
}

// VerifySphereConstraint checks Σr_i^2 == invariant within toleranceBp.
func VerifySphereConstraint(reserves []*uint256.Int, invariant *uint256.Int, toleranceBp uint64) error {
	if err := validateReserveLen(len(reserves)); err != nil {
		return err
	}
	sum, err := sumOfSquares(reserves)
	if err != nil {
		return err
	}
	lower, upper := toleranceBand(invariant, toleranceBp)
	if !within(sum, lower, upper) {
		return kinds.New(kinds.SphereConstraintViolation, "sum of squares outside tolerance")
	}
	return nil
}

// AmountOutSphere solves the sphere swap in closed form:
// new_rj = sqrt(R^2 - (ri+Δin)^2 - Σ_{k∉{i,j}} rk^2); Δout = rj - new_rj.
// It returns the full post-swap reserve vector and the output amount.
func AmountOutSphere(reserves []*uint256.Int, tokenIn, tokenOut int, amountIn, rSquared *uint256.Int) ([]*uint256.Int, *uint256.Int, error) {
	if err := validateReserveLen(len(reserves)); err != nil {
		return nil, nil, err
	}
	if err := validateIndices(len(reserves), tokenIn, tokenOut); err != nil {
		return nil, nil, err
	}
	if amountIn.IsZero() {
		return nil, nil, kinds.New(kinds.InvalidAmount, "amount_in must be non-zero")
	}

	newRi, of := new(uint256.Int).AddOverflow(reserves[tokenIn], amountIn)
	if of {
		return nil, nil, kinds.New(kinds.Overflow, "reserve_in + amount_in overflow")
	}

	newRiSquared, of := new(uint256.Int).MulOverflow(newRi, newRi)
	if of {
		return nil, nil, kinds.New(kinds.Overflow, "new reserve_in squared overflow")
	}

	subtrahend := new(uint256.Int).Set(newRiSquared)
	for k, r := range reserves {
		if k == tokenIn || k == tokenOut {
			continue
		}
		sq, of := new(uint256.Int).MulOverflow(r, r)
		if of {
			return nil, nil, kinds.New(kinds.Overflow, "other reserve squared overflow")
		}
		subtrahend, of = subtrahend.AddOverflow(subtrahend, sq)
		if of {
			return nil, nil, kinds.New(kinds.Overflow, "radicand subtrahend overflow")
		}
	}

	if subtrahend.Cmp(rSquared) > 0 {
		return nil, nil, kinds.New(kinds.InsufficientLiquidity, "negative radicand")
	}
	radicand := new(uint256.Int).Sub(rSquared, subtrahend)
	newRj := Sqrt(radicand)

	if newRj.Cmp(reserves[tokenOut]) > 0 {
		return nil, nil, kinds.New(kinds.InsufficientLiquidity, "new reserve_out exceeds current reserve_out")
	}
	amountOut := new(uint256.Int).Sub(reserves[tokenOut], newRj)
	if amountOut.Cmp(reserves[tokenOut]) > 0 {
		return nil, nil, kinds.New(kinds.InsufficientLiquidity, "amount_out exceeds reserve_out")
	}

	newReserves := make([]*uint256.Int, len(reserves))
	for k, r := range reserves {
		switch k {
		case tokenIn:
			newReserves[k] = newRi
		case tokenOut:
			newReserves[k] = newRj
		default:
			newReserves[k] = new(uint256.Int).Set(r)
		}
	}
	return newReserves, amountOut, nil
}

// PriceSphere returns p(i->j) = r_i/r_j scaled by Precision.
func PriceSphere(reserves []*uint256.Int, tokenIn, tokenOut int) (*uint256.Int, error) {
	if err := validateIndices(len(reserves), tokenIn, tokenOut); err != nil {
		return nil, err
	}
	if reserves[tokenOut].IsZero() {
		return nil, kinds.New(kinds.DivisionByZero, "reserve_out is zero")
	}
	price := new(uint256.Int).Mul(reserves[tokenIn], Precision)
	price.Div(price, reserves[tokenOut])
	return price, nil
}

// EqualPricePoint returns sqrt(R^2/N), the equal-proportion reserve value.
func EqualPricePoint(n int, rSquared *uint256.Int) (*uint256.Int, error) {
	if n < MinTokens {
		return nil, kinds.New(kinds.InvalidTokenCount, "n below minimum token count")
	}
	perToken := new(uint256.Int).Div(rSquared, uint256.NewInt(uint64(n)))
	return Sqrt(perToken), nil
}

// PolarDecomposition splits r into its component parallel to 1⃗ (the
// average reserve) and its perpendicular remainder. Negative perpendicular
// components saturate to zero rather than going negative.
func PolarDecomposition(reserves []*uint256.Int) (parallel *uint256.Int, perpendicular []*uint256.Int, err error) {
	if err := validateReserveLen(len(reserves)); err != nil {
		return nil, nil, err
	}
	total, err := Sum(reserves)
	if err != nil {
		return nil, nil, err
	}
	parallel = new(uint256.Int).Div(total, uint256.NewInt(uint64(len(reserves))))

	perpendicular = make([]*uint256.Int, len(reserves))
	for i, r := range reserves {
		perpendicular[i] = SatSub(r, parallel)
	}
	return parallel, perpendicular, nil
}

// PriceImpactBp returns |pAfter-pBefore|*10000/pBefore in basis points,
// capped at the maximum representable uint32.
func PriceImpactBp(pBefore, pAfter *uint256.Int) (uint32, error) {
	if pBefore.IsZero() {
		return 0, kinds.New(kinds.DivisionByZero, "price_before is zero")
	}
	var diff *uint256.Int
	if pAfter.Cmp(pBefore) >= 0 {
		diff = new(uint256.Int).Sub(pAfter, pBefore)
	} else {
		diff = new(uint256.Int).Sub(pBefore, pAfter)
	}
	impact := new(uint256.Int).Mul(diff, uint256.NewInt(bpPrecision))
	impact.Div(impact, pBefore)

	maxU32 := uint256.NewInt(math.MaxUint32)
	if impact.Cmp(maxU32) > 0 {
		return math.MaxUint32, nil
	}
	return uint32(impact.Uint64()), nil
}
