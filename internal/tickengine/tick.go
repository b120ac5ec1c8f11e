// Package tickengine implements the concentrated-liquidity tick geometry:
// nested hyperplane boundaries, crossing detection, capital efficiency, and
// tick maintenance (merge/sort/recommend).
package tickengine

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
)

const (
	maxCapitalEfficiency = 5_000_000
	bpPrecision          = 10000
)

// Tick is a half-space r·1⃗ = c·√N plus its liquidity bookkeeping. Ticks are
// nested: a larger plane_constant contains every smaller one.
type Tick struct {
	ID            uint64
	PlaneConstant *uint256.Int
	Liquidity     *uint256.Int
	FeeGrowth     *uint256.Int
	DepegLimitBp  uint32
}

func boundary(n int, t *Tick) (*uint256.Int, error) {
	sqrtN := mathkernel.Sqrt(uint256.NewInt(uint64(n)))
	b, of := new(uint256.Int).MulOverflow(t.PlaneConstant, sqrtN)
	if of {
		return nil, kinds.New(kinds.Overflow, "tick boundary overflow")
	}
	return b, nil
}

// IsInterior reports whether Σr_i < c·√N.
func IsInterior(reserves []*uint256.Int, t *Tick) (bool, error) {
	sum, err := mathkernel.Sum(reserves)
	if err != nil {
		return false, err
	}
	b, err := boundary(len(reserves), t)
	if err != nil {
		return false, err
	}
	return sum.Cmp(b) < 0, nil
}

// IsOnBoundary reports whether |Σr_i - c·√N| <= boundary/10000.
func IsOnBoundary(reserves []*uint256.Int, t *Tick) (bool, error) {
	sum, err := mathkernel.Sum(reserves)
	if err != nil {
		return false, err
	}
	b, err := boundary(len(reserves), t)
	if err != nil {
		return false, err
	}
	tol := new(uint256.Int).Div(b, uint256.NewInt(bpPrecision))
	diff := new(uint256.Int)
	if sum.Cmp(b) > 0 {
		diff.Sub(sum, b)
	} else {
		diff.Sub(b, sum)
	}
	return diff.Cmp(tol) <= 0, nil
}

// Active reports whether the point is interior to or on the boundary of t.
func Active(reserves []*uint256.Int, t *Tick) (bool, error) {
	interior, err := IsInterior(reserves, t)
	if err != nil {
		return false, err
	}
	if interior {
		return true, nil
	}
	return IsOnBoundary(reserves, t)
}

// FindNextCrossing returns the index of the tick with the smallest crossing
// fraction whose boundary lies between the sums of start and end.
func FindNextCrossing(start, end []*uint256.Int, ticks []*Tick) (int, bool, error) {
	if len(ticks) == 0 {
		return 0, false, nil
	}
	startSum, err := mathkernel.Sum(start)
	if err != nil {
		return 0, false, err
	}
	endSum, err := mathkernel.Sum(end)
	if err != nil {
		return 0, false, err
	}

	bestIdx := -1
	var bestFrac *uint256.Int
	for idx, t := range ticks {
		b, err := boundary(len(start), t)
		if err != nil {
			return 0, false, err
		}
		crosses := (startSum.Cmp(b) <= 0 && endSum.Cmp(b) > 0) ||
			(startSum.Cmp(b) >= 0 && endSum.Cmp(b) < 0)
		if !crosses {
			continue
		}
		frac := crossingFractionFromSums(startSum, endSum, b)
		if bestIdx == -1 || frac.Cmp(bestFrac) < 0 {
			bestIdx = idx
			bestFrac = frac
		}
	}
	if bestIdx == -1 {
		return 0, false, nil
	}
	return bestIdx, true, nil
}

// CrossingFraction returns t ∈ [0, PRECISION] for where along start->end the
// tick's boundary is reached by linear interpolation of Σr.
func CrossingFraction(start, end []*uint256.Int, t *Tick) (*uint256.Int, error) {
	startSum, err := mathkernel.Sum(start)
	if err != nil {
		return nil, err
	}
	endSum, err := mathkernel.Sum(end)
	if err != nil {
		return nil, err
	}
	b, err := boundary(len(start), t)
	if err != nil {
		return nil, err
	}
	return crossingFractionFromSums(startSum, endSum, b), nil
}

func crossingFractionFromSums(startSum, endSum, b *uint256.Int) *uint256.Int {
	if endSum.Cmp(startSum) == 0 {
		return new(uint256.Int)
	}
	numerator := new(uint256.Int)
	if b.Cmp(startSum) > 0 {
		numerator.Sub(b, startSum)
	} else {
		numerator.Sub(startSum, b)
	}
	denominator := new(uint256.Int)
	if endSum.Cmp(startSum) > 0 {
		denominator.Sub(endSum, startSum)
	} else {
		denominator.Sub(startSum, endSum)
	}
	if denominator.IsZero() {
		return new(uint256.Int)
	}
	frac := new(uint256.Int).Mul(numerator, mathkernel.Precision)
	return frac.Div(frac, denominator)
}

// CapitalEfficiency returns max/(max-min) scaled by 10000, capped at 500x.
// min/max are the per-token reserve extremes implied by the tick's plane
// constant over N tokens: max at the equal-price point, min at zero.
func CapitalEfficiency(t *Tick, tokenCount int) (uint32, error) {
	sqrtN := mathkernel.Sqrt(uint256.NewInt(uint64(tokenCount)))
	maxReserve := new(uint256.Int).Mul(t.PlaneConstant, sqrtN)
	minReserve := new(uint256.Int)

	if maxReserve.IsZero() {
		return 10000, nil
	}
	rng := mathkernel.SatSub(maxReserve, minReserve)
	if rng.IsZero() {
		return 10000, nil
	}
	eff := new(uint256.Int).Mul(maxReserve, uint256.NewInt(10000))
	eff.Div(eff, rng)

	capU256 := uint256.NewInt(maxCapitalEfficiency)
	if eff.Cmp(capU256) > 0 {
		return maxCapitalEfficiency, nil
	}
	return uint32(eff.Uint64()), nil
}

// TickRecommendation is the outcome of tick placement optimization.
type TickRecommendation struct {
	DepegLimitBp         uint32
	ExpectedEfficiency   uint32
	Description          string
	RecommendedLiquidity *uint256.Int
}

// OptimizeTickPlacement recommends a depeg limit from a tolerance band and
// reports the efficiency that configuration would achieve.
func OptimizeTickPlacement(totalLiquidity *uint256.Int, toleranceBp uint32, tokenCount int) (TickRecommendation, error) {
	var depegLimit uint32
	var description string
	switch {
	case toleranceBp <= 100:
		depegLimit, description = 9900, "Ultra tight - high efficiency, high risk"
	case toleranceBp <= 500:
		depegLimit, description = 9500, "Tight - good efficiency, moderate risk"
	case toleranceBp <= 1000:
		depegLimit, description = 9000, "Moderate - balanced efficiency and risk"
	default:
		depegLimit, description = 8500, "Wide - lower efficiency, lower risk"
	}

	mock := &Tick{
		PlaneConstant: uint256.NewInt(uint64(depegLimit)),
		Liquidity:     totalLiquidity,
		FeeGrowth:     new(uint256.Int),
		DepegLimitBp:  depegLimit,
	}
	efficiency, err := CapitalEfficiency(mock, tokenCount)
	if err != nil {
		return TickRecommendation{}, err
	}
	return TickRecommendation{
		DepegLimitBp:         depegLimit,
		ExpectedEfficiency:   efficiency,
		Description:          description,
		RecommendedLiquidity: totalLiquidity,
	}, nil
}

// SortTicksByBoundary sorts ticks ascending by plane constant, in place.
func SortTicksByBoundary(ticks []*Tick) {
	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].PlaneConstant.Cmp(ticks[j].PlaneConstant) < 0
	})
}

// MergeSimilarTicks sorts by boundary, then merges adjacent ticks whose
// plane constants differ by at most tolerance_bp of the left tick's
// constant, summing their liquidity.
func MergeSimilarTicks(ticks []*Tick, toleranceBp uint64) ([]*Tick, error) {
	if len(ticks) == 0 {
		return nil, nil
	}
	sorted := make([]*Tick, len(ticks))
	copy(sorted, ticks)
	SortTicksByBoundary(sorted)

	merged := make([]*Tick, 0, len(sorted))
	current := cloneTick(sorted[0])

	for _, t := range sorted[1:] {
		diff := new(uint256.Int)
		if t.PlaneConstant.Cmp(current.PlaneConstant) > 0 {
			diff.Sub(t.PlaneConstant, current.PlaneConstant)
		} else {
			diff.Sub(current.PlaneConstant, t.PlaneConstant)
		}
		tolerance := new(uint256.Int).Mul(current.PlaneConstant, uint256.NewInt(toleranceBp))
		tolerance.Div(tolerance, uint256.NewInt(bpPrecision))

		if diff.Cmp(tolerance) <= 0 {
			sum, of := new(uint256.Int).AddOverflow(current.Liquidity, t.Liquidity)
			if of {
				return nil, kinds.New(kinds.Overflow, "merged tick liquidity overflow")
			}
			current.Liquidity = sum
		} else {
			merged = append(merged, current)
			current = cloneTick(t)
		}
	}
	merged = append(merged, current)
	return merged, nil
}

func cloneTick(t *Tick) *Tick {
	return &Tick{
		ID:            t.ID,
		PlaneConstant: new(uint256.Int).Set(t.PlaneConstant),
		Liquidity:     new(uint256.Int).Set(t.Liquidity),
		FeeGrowth:     new(uint256.Int).Set(t.FeeGrowth),
		DepegLimitBp:  t.DepegLimitBp,
	}
}

// ActiveLiquidityAtPoint sums the liquidity of every tick whose interior or
// boundary contains reserves.
func ActiveLiquidityAtPoint(reserves []*uint256.Int, ticks []*Tick) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, t := range ticks {
		active, err := Active(reserves, t)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		var of bool
		total, of = total.AddOverflow(total, t.Liquidity)
		if of {
			return nil, kinds.New(kinds.Overflow, "active liquidity overflow")
		}
	}
	return total, nil
}
