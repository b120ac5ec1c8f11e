package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
)

// TopSolvers returns up to limit registered solvers ordered by descending
// composite score. The ranking is cached (keyed by limit and a version
// counter bumped on every mutation) so repeated reads of a hot leaderboard
// don't re-sort the full registry each time.
func (m *Manager) TopSolvers(ctx context.Context, limit int) []*Record {
	m.mu.RLock()
	cache := m.cache
	cacheKey := []byte(fmt.Sprintf("top_solvers:%d:%d", limit, m.version))
	m.mu.RUnlock()

	if cache != nil {
		if cached, err := cache.Get(ctx, cacheKey); err == nil && cached != nil {
			var out []*Record
			if json.Unmarshal(cached, &out) == nil {
				return out
			}
		}
	}

	m.mu.RLock()
	all := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return compositeScore(all[i]) > compositeScore(all[j])
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	if cache != nil {
		if encoded, err := json.Marshal(all); err == nil {
			_ = cache.Put(ctx, cacheKey, encoded)
		}
	}
	return all
}

// Rank returns a solver's 1-based position by composite score, or 0 if the
// solver is not registered.
func (m *Manager) Rank(solver []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key(solver)
	if _, ok := m.records[k]; !ok {
		return 0
	}

	all := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return compositeScore(all[i]) > compositeScore(all[j])
	})
	for i, r := range all {
		if key(r.Solver) == k {
			return i + 1
		}
	}
	return 0
}

// CalculateRewards distributes totalRewardPool pro-rata across solvers with
// successful executions in [periodStart, periodEnd], weighted by
// volume * (score/MAX) * success_rate.
func (m *Manager) CalculateRewards(totalRewardPool *uint256.Int, periodStart, periodEnd uint64) map[string]*uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	weighted := make(map[string]float64)
	for _, e := range m.history {
		if !e.Success || e.Timestamp < periodStart || e.Timestamp > periodEnd {
			continue
		}
		rec, ok := m.records[key(e.Solver)]
		if !ok {
			continue
		}
		volume, _ := new(big.Float).SetInt(e.ActualOutput.ToBig()).Float64()
		repFactor := float64(rec.Score) / float64(MaxScore)
		weighted[key(e.Solver)] += volume * repFactor * rec.SuccessRate()
	}

	var total float64
	for _, w := range weighted {
		total += w
	}

	rewards := make(map[string]*uint256.Int, len(weighted))
	if total == 0 {
		return rewards
	}
	poolF, _ := new(big.Float).SetInt(totalRewardPool.ToBig()).Float64()
	for k, w := range weighted {
		share := w / total
		amount, _ := big.NewFloat(poolF * share).Int(nil)
		rewards[k] = new(uint256.Int).SetBytes(amount.Bytes())
	}
	return rewards
}
