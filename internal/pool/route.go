package pool

import (
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

const maxHops = 4

// Router indexes a registry of pools by id and lets callers search for a
// route between two external token ids across them.
type Router struct {
	mu    sync.RWMutex
	pools map[uint64]*Pool
}

// NewRouter creates an empty pool registry.
func NewRouter() *Router {
	return &Router{pools: make(map[uint64]*Pool)}
}

// Register adds a pool to the router.
func (r *Router) Register(p *Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[p.ID] = p
}

// Get returns the pool registered under id, if any.
func (r *Router) Get(id uint64) (*Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[id]
	return p, ok
}

// Hop is one leg of a route: swap tokenIn for tokenOut inside a given pool.
type Hop struct {
	PoolID   uint64
	TokenIn  uint64
	TokenOut uint64
}

// Route is a concrete path of hops plus its quoted outcome.
type Route struct {
	Hops          []Hop
	AmountOut     *uint256.Int
	PriceImpactBp uint32
}

type frontierEntry struct {
	tokenID uint64
	path    []Hop
}

// FindRoute performs a breadth-first search over the pool registry, bounded
// by maxHops, scoring each complete candidate path by net output. Ties
// break by shorter path, then lexicographically by pool id sequence.
func (r *Router) FindRoute(tokenIn, tokenOut uint64, amountIn *uint256.Int) (Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tokenIn == tokenOut {
		return Route{}, kinds.New(kinds.SameChainSameToken, "token_in and token_out must differ")
	}

	var candidates []Route

	queue := []frontierEntry{{tokenID: tokenIn, path: nil}}
	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if len(entry.path) >= maxHops {
			continue
		}

		for _, p := range r.pools {
			inIdx, ok := p.indexOf(entry.tokenID)
			if !ok {
				continue
			}
			for outIdx, outID := range p.TokenIDs {
				if outIdx == inIdx {
					continue
				}
				if hopRevisitsPool(entry.path, p.ID, entry.tokenID, outID) {
					continue
				}
				nextPath := append(append([]Hop{}, entry.path...), Hop{PoolID: p.ID, TokenIn: entry.tokenID, TokenOut: outID})

				if outID == tokenOut {
					route, err := r.quotePath(nextPath, amountIn)
					if err == nil {
						candidates = append(candidates, route)
					}
					continue
				}
				queue = append(queue, frontierEntry{tokenID: outID, path: nextPath})
			}
		}
	}

	if len(candidates) == 0 {
		return Route{}, kinds.New(kinds.RouteNotFound, "no route found within max hops")
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.AmountOut.Cmp(b.AmountOut) != 0 {
			return a.AmountOut.Cmp(b.AmountOut) > 0
		}
		if len(a.Hops) != len(b.Hops) {
			return len(a.Hops) < len(b.Hops)
		}
		return lexLess(a.Hops, b.Hops)
	})
	return candidates[0], nil
}

func hopRevisitsPool(path []Hop, poolID, tokenIn, tokenOut uint64) bool {
	for _, h := range path {
		if h.PoolID == poolID && h.TokenIn == tokenOut && h.TokenOut == tokenIn {
			return true
		}
	}
	return false
}

func lexLess(a, b []Hop) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i].PoolID != b[i].PoolID {
			return a[i].PoolID < b[i].PoolID
		}
	}
	return len(a) < len(b)
}

func (r *Router) quotePath(hops []Hop, amountIn *uint256.Int) (Route, error) {
	current := new(uint256.Int).Set(amountIn)
	var totalImpact uint32

	for _, h := range hops {
		p := r.pools[h.PoolID]
		inIdx, _ := p.indexOf(h.TokenIn)
		outIdx, _ := p.indexOf(h.TokenOut)

		result, err := p.QuoteSwap(inIdx, outIdx, current)
		if err != nil {
			return Route{}, err
		}
		current = result.AmountOut
		totalImpact = clampAddU32(totalImpact, result.PriceImpactBp)
	}
	return Route{Hops: hops, AmountOut: current, PriceImpactBp: totalImpact}, nil
}

func clampAddU32(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(sum)
}
