package pool

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
	"github.com/orbitalfi/intents-core/internal/tickengine"
)

// SwapResult reports the outcome of a (possibly segmented) swap.
type SwapResult struct {
	AmountOut     *uint256.Int
	PriceImpactBp uint32
	TicksCrossed  int
}

// maxSegments bounds the crossing loop: at most one segment per tick plus
// the final uncrossed remainder.
func (p *Pool) maxSegments() int {
	return len(p.Ticks) + 1
}

// simulateSwap runs the fee + segmentation + crossing algorithm against a
// private copy of startReserves, never touching p.Reserves. It returns the
// final reserves and the swap result.
func (p *Pool) simulateSwap(startReserves []*uint256.Int, tokenIn, tokenOut int, amountIn *uint256.Int) ([]*uint256.Int, SwapResult, error) {
	if tokenIn < 0 || tokenOut < 0 || tokenIn >= len(startReserves) || tokenOut >= len(startReserves) {
		return nil, SwapResult{}, kinds.New(kinds.IndexOutOfBounds, "token index out of bounds")
	}
	if tokenIn == tokenOut {
		return nil, SwapResult{}, kinds.New(kinds.SameChainSameToken, "token_in and token_out must differ")
	}
	if amountIn.IsZero() {
		return nil, SwapResult{}, kinds.New(kinds.InvalidAmount, "amount_in must be non-zero")
	}

	working := make([]*uint256.Int, len(startReserves))
	for i, r := range startReserves {
		working[i] = new(uint256.Int).Set(r)
	}

	priceBefore, err := p.priceLocked(working, tokenIn, tokenOut)
	if err != nil {
		return nil, SwapResult{}, err
	}

	inAfterFee := mathkernel.ApplyBp(amountIn, 10000-p.FeeBp)
	feeAmount := new(uint256.Int).Sub(amountIn, inAfterFee)
	p.accrueFee(working, feeAmount)

	activeTicks := make([]*tickengine.Tick, len(p.Ticks))
	copy(activeTicks, p.Ticks)

	remaining := new(uint256.Int).Set(inAfterFee)
	totalOut := new(uint256.Int)
	ticksCrossed := 0

	for segment := 0; segment < p.maxSegments(); segment++ {
		if remaining.IsZero() {
			break
		}
		if len(activeTicks) == 0 {
			newReserves, out, err := p.amountOutLocked(working, tokenIn, tokenOut, remaining)
			if err != nil {
				return nil, SwapResult{}, err
			}
			working = newReserves
			totalOut.Add(totalOut, out)
			if err := p.verifySegmentInvariant(working); err != nil {
				return nil, SwapResult{}, err
			}
			remaining = new(uint256.Int)
			break
		}

		hypothetical, _, err := p.amountOutLocked(working, tokenIn, tokenOut, remaining)
		if err != nil {
			return nil, SwapResult{}, err
		}

		idx, found, err := tickengine.FindNextCrossing(working, hypothetical, activeTicks)
		if err != nil {
			return nil, SwapResult{}, err
		}
		if !found {
			newReserves, out, err := p.amountOutLocked(working, tokenIn, tokenOut, remaining)
			if err != nil {
				return nil, SwapResult{}, err
			}
			working = newReserves
			totalOut.Add(totalOut, out)
			if err := p.verifySegmentInvariant(working); err != nil {
				return nil, SwapResult{}, err
			}
			remaining = new(uint256.Int)
			break
		}

		frac, err := tickengine.CrossingFraction(working, hypothetical, activeTicks[idx])
		if err != nil {
			return nil, SwapResult{}, err
		}
		segmentIn := mathkernel.Lerp(new(uint256.Int), remaining, frac.Uint64(), mathkernel.Precision.Uint64())
		if segmentIn.IsZero() {
			segmentIn = uint256.NewInt(1)
		}

		newReserves, out, err := p.amountOutLocked(working, tokenIn, tokenOut, segmentIn)
		if err != nil {
			return nil, SwapResult{}, err
		}
		working = newReserves
		totalOut.Add(totalOut, out)
		if err := p.verifySegmentInvariant(working); err != nil {
			return nil, SwapResult{}, err
		}

		remaining = mathkernel.SatSub(remaining, segmentIn)
		activeTicks = append(activeTicks[:idx], activeTicks[idx+1:]...)
		ticksCrossed++
	}

	priceAfter, err := p.priceLocked(working, tokenIn, tokenOut)
	if err != nil {
		return nil, SwapResult{}, err
	}
	impactBp, err := mathkernel.PriceImpactBp(priceBefore, priceAfter)
	if err != nil {
		return nil, SwapResult{}, err
	}

	return working, SwapResult{AmountOut: totalOut, PriceImpactBp: impactBp, TicksCrossed: ticksCrossed}, nil
}

func (p *Pool) verifySegmentInvariant(reserves []*uint256.Int) error {
	if p.Curve.Kind == mathkernel.CurveSphere {
		return mathkernel.VerifySphereConstraint(reserves, p.Invariant, p.toleranceBp())
	}
	return mathkernel.VerifySuperellipseConstraint(reserves, p.Curve.UBp, p.Invariant, p.toleranceBp())
}

// accrueFee allocates feeAmount pro-rata across ticks active on the input
// side, by liquidity share, recording it in each tick's FeeGrowth.
func (p *Pool) accrueFee(reserves []*uint256.Int, feeAmount *uint256.Int) {
	if feeAmount.IsZero() || len(p.Ticks) == 0 {
		return
	}
	totalActive := new(uint256.Int)
	var active []*tickengine.Tick
	for _, t := range p.Ticks {
		ok, err := tickengine.Active(reserves, t)
		if err != nil || !ok {
			continue
		}
		active = append(active, t)
		totalActive.Add(totalActive, t.Liquidity)
	}
	if totalActive.IsZero() {
		return
	}
	for _, t := range active {
		share := new(uint256.Int).Mul(feeAmount, t.Liquidity)
		share.Div(share, totalActive)
		t.FeeGrowth.Add(t.FeeGrowth, share)
	}
}

// QuoteSwap simulates a swap without mutating the pool.
func (p *Pool) QuoteSwap(tokenIn, tokenOut int, amountIn *uint256.Int) (SwapResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, result, err := p.simulateSwap(p.Reserves, tokenIn, tokenOut, amountIn)
	return result, err
}

// ExecuteSwap runs the swap and commits the new reserves, applying the
// slippage gate: if amount_out < minAmountOut the pool is left unchanged.
func (p *Pool) ExecuteSwap(tokenIn, tokenOut int, amountIn, minAmountOut *uint256.Int) (SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	newReserves, result, err := p.simulateSwap(p.Reserves, tokenIn, tokenOut, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	if result.AmountOut.Cmp(minAmountOut) < 0 {
		return SwapResult{}, kinds.New(kinds.InsufficientOutput, "amount_out below min_amount_out")
	}
	p.Reserves = newReserves
	return result, nil
}

// MultiHopResult is the outcome of executing a path of hops.
type MultiHopResult struct {
	AmountOut        *uint256.Int
	TotalPriceImpact uint32
	TicksCrossed     int
}

// QuoteMultiHop feeds each hop's output into the next, within this single
// pool, without mutating it. Cumulative price impact is the arithmetic sum
// of each hop's impact, clamped at uint32 max.
func (p *Pool) QuoteMultiHop(path []int, amountIn *uint256.Int) (MultiHopResult, error) {
	if len(path) < 2 {
		return MultiHopResult{}, kinds.New(kinds.RouteNotFound, "path must have at least two hops")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	working := make([]*uint256.Int, len(p.Reserves))
	for i, r := range p.Reserves {
		working[i] = new(uint256.Int).Set(r)
	}

	current := new(uint256.Int).Set(amountIn)
	var totalImpact uint64
	ticksCrossed := 0

	for i := 0; i < len(path)-1; i++ {
		nextReserves, result, err := p.simulateSwap(working, path[i], path[i+1], current)
		if err != nil {
			return MultiHopResult{}, err
		}
		working = nextReserves
		current = result.AmountOut
		ticksCrossed += result.TicksCrossed
		totalImpact += uint64(result.PriceImpactBp)
	}

	if totalImpact > math.MaxUint32 {
		totalImpact = math.MaxUint32
	}
	return MultiHopResult{AmountOut: current, TotalPriceImpact: uint32(totalImpact), TicksCrossed: ticksCrossed}, nil
}
