// Package pool owns orbital AMM pool state and executes swaps against it:
// fee application, tick segmentation, slippage gating, invariant
// re-verification, and multi-hop/route search across a registry of pools.
package pool

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
	"github.com/orbitalfi/intents-core/internal/tickengine"
)

// Pool holds the reserves, curve, ticks, and fee configuration of one
// orbital AMM instance. All mutating operations take the write lock;
// quoting takes the read lock, matching the reader/writer discipline of
// the rest of the core.
type Pool struct {
	mu sync.RWMutex

	ID        uint64
	TokenIDs  []uint64 // external token identity, parallel to Reserves
	Reserves  []*uint256.Int
	Curve     mathkernel.Curve
	Invariant *uint256.Int
	Ticks     []*tickengine.Tick
	FeeBp     uint64
}

// New constructs a pool and verifies the initial reserves satisfy the
// invariant within tolerance.
func New(id uint64, tokenIDs []uint64, reserves []*uint256.Int, curve mathkernel.Curve, invariant *uint256.Int, feeBp uint64) (*Pool, error) {
	if len(tokenIDs) != len(reserves) {
		return nil, kinds.New(kinds.InvalidTokenCount, "token id count does not match reserve count")
	}
	p := &Pool{
		ID:        id,
		TokenIDs:  tokenIDs,
		Reserves:  reserves,
		Curve:     curve,
		Invariant: invariant,
		FeeBp:     feeBp,
	}
	if err := p.verifyInvariantLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) toleranceBp() uint64 {
	if p.Curve.Kind == mathkernel.CurveSphere || p.Curve.UBp == mathkernel.SphereUBp {
		return mathkernel.DefaultToleranceBp
	}
	return mathkernel.SuperellipseToleranceBp
}

func (p *Pool) verifyInvariantLocked() error {
	if p.Curve.Kind == mathkernel.CurveSphere {
		return mathkernel.VerifySphereConstraint(p.Reserves, p.Invariant, p.toleranceBp())
	}
	return mathkernel.VerifySuperellipseConstraint(p.Reserves, p.Curve.UBp, p.Invariant, p.toleranceBp())
}

func (p *Pool) amountOutLocked(reserves []*uint256.Int, tokenIn, tokenOut int, amountIn *uint256.Int) ([]*uint256.Int, *uint256.Int, error) {
	if p.Curve.Kind == mathkernel.CurveSphere {
		return mathkernel.AmountOutSphere(reserves, tokenIn, tokenOut, amountIn, p.Invariant)
	}
	return mathkernel.AmountOutSuperellipse(reserves, tokenIn, tokenOut, amountIn, p.Curve.UBp, p.Invariant)
}

func (p *Pool) priceLocked(reserves []*uint256.Int, tokenIn, tokenOut int) (*uint256.Int, error) {
	if p.Curve.Kind == mathkernel.CurveSphere {
		return mathkernel.PriceSphere(reserves, tokenIn, tokenOut)
	}
	return mathkernel.PriceSuperellipse(reserves, tokenIn, tokenOut, p.Curve.UBp)
}

// indexOf finds a token's reserve index by external id.
func (p *Pool) indexOf(tokenID uint64) (int, bool) {
	for i, id := range p.TokenIDs {
		if id == tokenID {
			return i, true
		}
	}
	return 0, false
}

// IndexOf exposes indexOf for callers (e.g. the library facade) that only
// know tokens by their external id.
func (p *Pool) IndexOf(tokenID uint64) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexOf(tokenID)
}

// AddTick inserts a new tick under the write lock.
func (p *Pool) AddTick(t *tickengine.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ticks = append(p.Ticks, t)
}

// RemoveTick deletes a tick by id under the write lock.
func (p *Pool) RemoveTick(id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.Ticks {
		if t.ID == id {
			p.Ticks = append(p.Ticks[:i], p.Ticks[i+1:]...)
			return nil
		}
	}
	return kinds.New(kinds.NotFound, "tick not found")
}

// Snapshot returns a read-locked copy of the reserves for external quoting.
func (p *Pool) Snapshot() []*uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*uint256.Int, len(p.Reserves))
	for i, r := range p.Reserves {
		out[i] = new(uint256.Int).Set(r)
	}
	return out
}
