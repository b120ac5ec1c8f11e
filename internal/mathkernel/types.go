// Package mathkernel implements the orbital AMM invariant math: sphere and
// superellipse swap solving, pricing, price impact, and polar decomposition.
// All arithmetic is 256-bit unsigned fixed point; no floats appear here.
package mathkernel

import (
	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// Precision is the fixed-point scale used for prices and scaled fractions.
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

const (
	// DefaultToleranceBp is the allowed invariant drift for the sphere curve.
	DefaultToleranceBp = 10
	// SuperellipseToleranceBp is the allowed invariant drift when the curve
	// uses a fractional-power approximation.
	SuperellipseToleranceBp = 100

	// MinTokens and MaxTokens bound the reserve vector length (2 ≤ N ≤ 1000).
	MinTokens = 2
	MaxTokens = 1000

	// SphereUBp is the u_bp value at which superellipse degenerates to sphere.
	SphereUBp = 20000

	bpPrecision = 10000
)

// CurveKind distinguishes the two supported invariants.
type CurveKind int

const (
	CurveSphere CurveKind = iota
	CurveSuperellipse
)

// Curve describes which invariant a pool enforces.
type Curve struct {
	Kind CurveKind
	// UBp is only meaningful for CurveSuperellipse; u = UBp/10000, UBp >= 20000.
	UBp uint32
}

func validateReserveLen(n int) error {
	if n < MinTokens || n > MaxTokens {
		return kinds.New(kinds.InvalidTokenCount, "reserve count out of bounds")
	}
	return nil
}

func validateIndices(n, i, j int) error {
	if i < 0 || j < 0 || i >= n || j >= n {
		return kinds.New(kinds.IndexOutOfBounds, "token index out of bounds")
	}
	if i == j {
		return kinds.New(kinds.SameChainSameToken, "token_in and token_out must differ")
	}
	return nil
}

func toleranceBand(invariant *uint256.Int, toleranceBp uint64) (lower, upper *uint256.Int) {
	tb := uint256.NewInt(toleranceBp)
	tolerance := new(uint256.Int).Mul(invariant, tb)
	tolerance.Div(tolerance, uint256.NewInt(bpPrecision))

	lower = new(uint256.Int)
	if tolerance.Cmp(invariant) >= 0 {
		lower.Clear()
	} else {
		lower.Sub(invariant, tolerance)
	}
	upper = new(uint256.Int).Add(invariant, tolerance)
	return lower, upper
}

func within(v, lower, upper *uint256.Int) bool {
	return v.Cmp(lower) >= 0 && v.Cmp(upper) <= 0
}
