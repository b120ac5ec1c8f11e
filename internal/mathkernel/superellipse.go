package mathkernel

import (
	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// splitU decomposes u_bp into an integer power and a supported fractional
// rung. Only frac == 0 and frac == 5000 (u^0.5 via sqrt) are supported;
// anything else is explicitly unsupported precision rather than a silent
// integer-only degrade.
func splitU(uBp uint32) (intPart uint64, fracBp uint64, err error) {
	if uBp < SphereUBp {
		return 0, 0, kinds.New(kinds.InvalidAmount, "u_bp must be >= 20000")
	}
	intPart = uint64(uBp / bpPrecision)
	fracBp = uint64(uBp % bpPrecision)
	if fracBp != 0 && fracBp != 5000 {
		return 0, 0, kinds.New(kinds.UnsupportedPrecision, "fractional u_bp rung other than .0 or .5 is unsupported")
	}
	return intPart, fracBp, nil
}

// powU raises r to the u = intPart+fracBp/10000 power using the supported
// integer-power-times-sqrt approximation.
func powU(r *uint256.Int, intPart, fracBp uint64) (*uint256.Int, error) {
	base, err := Pow(r, intPart)
	if err != nil {
		return nil, err
	}
	if fracBp == 0 {
		return base, nil
	}
	sqrtR := Sqrt(r)
	out, of := new(uint256.Int).MulOverflow(base, sqrtR)
	if of {
		return nil, kinds.New(kinds.Overflow, "power with fractional rung overflow")
	}
	return out, nil
}

// VerifySuperellipseConstraint checks Σ|r_i|^u == invariant within tolerance.
// u_bp == 20000 dispatches to the exact sphere path.
func VerifySuperellipseConstraint(reserves []*uint256.Int, uBp uint32, invariant *uint256.Int, toleranceBp uint64) error {
	if err := validateReserveLen(len(reserves)); err != nil {
		return err
	}
	if uBp == SphereUBp {
		return VerifySphereConstraint(reserves, invariant, toleranceBp)
	}
	intPart, fracBp, err := splitU(uBp)
	if err != nil {
		return err
	}

	sum := new(uint256.Int)
	for _, r := range reserves {
		p, err := powU(r, intPart, fracBp)
		if err != nil {
			return err
		}
		var of bool
		sum, of = sum.AddOverflow(sum, p)
		if of {
			return kinds.New(kinds.Overflow, "sum of powers overflow")
		}
	}

	lower, upper := toleranceBand(invariant, toleranceBp)
	if !within(sum, lower, upper) {
		return kinds.New(kinds.SuperellipseConstraintViolation, "sum of powers outside tolerance")
	}
	return nil
}

// AmountOutSuperellipse solves the superellipse swap. For u_bp == 20000 it
// dispatches to the exact sphere solver. For other supported u_bp it follows
// the same integer-power approximation the fractional rung was built for:
// the fractional .5 rung informs the forward (verify) direction but the
// inversion uses the integer power only, matching the tolerance band's
// allowance for superellipse approximation error.
func AmountOutSuperellipse(reserves []*uint256.Int, tokenIn, tokenOut int, amountIn *uint256.Int, uBp uint32, invariant *uint256.Int) ([]*uint256.Int, *uint256.Int, error) {
	if err := validateReserveLen(len(reserves)); err != nil {
		return nil, nil, err
	}
	if err := validateIndices(len(reserves), tokenIn, tokenOut); err != nil {
		return nil, nil, err
	}
	if amountIn.IsZero() {
		return nil, nil, kinds.New(kinds.InvalidAmount, "amount_in must be non-zero")
	}
	if uBp == SphereUBp {
		return AmountOutSphere(reserves, tokenIn, tokenOut, amountIn, invariant)
	}
	intPart, _, err := splitU(uBp)
	if err != nil {
		return nil, nil, err
	}

	newRi, of := new(uint256.Int).AddOverflow(reserves[tokenIn], amountIn)
	if of {
		return nil, nil, kinds.New(kinds.Overflow, "reserve_in + amount_in overflow")
	}

	sumOthers := new(uint256.Int)
	for k, r := range reserves {
		if k == tokenOut {
			continue
		}
		val := r
		if k == tokenIn {
			val = newRi
		}
		p, err := Pow(val, intPart)
		if err != nil {
			return nil, nil, err
		}
		sumOthers, of = sumOthers.AddOverflow(sumOthers, p)
		if of {
			return nil, nil, kinds.New(kinds.Overflow, "sum of powers overflow")
		}
	}

	if sumOthers.Cmp(invariant) > 0 {
		return nil, nil, kinds.New(kinds.InsufficientLiquidity, "negative remaining capacity")
	}
	remaining := new(uint256.Int).Sub(invariant, sumOthers)
	newRj, err := NthRoot(remaining, intPart)
	if err != nil {
		return nil, nil, err
	}

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

// PriceSuperellipse returns p = r_in^(u-1) / r_out^(u-1) scaled by Precision.
func PriceSuperellipse(reserves []*uint256.Int, tokenIn, tokenOut int, uBp uint32) (*uint256.Int, error) {
	if err := validateIndices(len(reserves), tokenIn, tokenOut); err != nil {
		return nil, err
	}
	if uBp == SphereUBp {
		return PriceSphere(reserves, tokenIn, tokenOut)
	}
	intPart, _, err := splitU(uBp)
	if err != nil {
		return nil, err
	}
	uMinus1 := intPart
	if uMinus1 > 0 {
		uMinus1--
	}

	var riPow, rjPow *uint256.Int
	if uMinus1 == 0 {
		riPow = uint256.NewInt(1)
		rjPow = uint256.NewInt(1)
	} else {
		riPow, err = Pow(reserves[tokenIn], uMinus1)
		if err != nil {
			return nil, err
		}
		rjPow, err = Pow(reserves[tokenOut], uMinus1)
		if err != nil {
			return nil, err
		}
	}
	if rjPow.IsZero() {
		return nil, kinds.New(kinds.DivisionByZero, "reserve_out power is zero")
	}
	price, of := new(uint256.Int).MulOverflow(riPow, Precision)
	if of {
		return nil, kinds.New(kinds.Overflow, "price calculation overflow")
	}
	price.Div(price, rjPow)
	return price, nil
}
