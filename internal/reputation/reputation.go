// Package reputation tracks solver registration, bonding, scoring, and
// slashing: everything the auction and executor components need to decide
// which solver may take an intent and how its standing changes afterward.
package reputation

import (
	"encoding/hex"
	"math"
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/kinds"
)

const (
	MaxScore       uint64 = 10000
	MinScore       uint64 = 0
	InitialScore   uint64 = 5000
	MinEligible    uint64 = 3000
	MaxInactiveSec uint64 = 30 * 24 * 60 * 60

	BondMultiplierBp uint64 = 200

	RewardSuccess      uint64 = 10
	RewardFastExec     uint64 = 5
	RewardHighProfit   uint64 = 15
	FastExecThreshold  uint64 = 30
	HighProfitRatioBp  uint64 = 100 // > 1%
)

// SlashReason enumerates the penalty taxonomy. Penalty is expressed in bp
// of exposure (capped at available bond).
type SlashReason int

const (
	SlashFailedExecution SlashReason = iota
	SlashTimeout
	SlashPartialFill
	SlashProfitDeviation
	SlashInsufficientBond
)

// PenaltyBp returns the basis-point penalty for a slashing reason.
func (r SlashReason) PenaltyBp() uint64 {
	switch r {
	case SlashFailedExecution:
		return 100
	case SlashTimeout:
		return 50
	case SlashPartialFill:
		return 25
	case SlashProfitDeviation:
		return 10
	case SlashInsufficientBond:
		return 200
	default:
		return 0
	}
}

// Record is a solver's full standing: score, bond, counters, and the chains
// it has declared support for.
type Record struct {
	Solver              []byte
	Score               uint64
	TotalExecutions      uint64
	SuccessfulExecutions uint64
	FailedExecutions     uint64
	TotalVolume          *uint256.Int
	TotalProfit          *uint256.Int
	AvgExecutionTimeSec  uint64
	Bond                 *uint256.Int
	SlashedAmount        *uint256.Int
	IsSlashed            bool
	LastActivity         uint64
	RegisteredAt         uint64
	Chains               map[uint64]bool
}

// AvailableBond is the bond remaining after slashing.
func (r *Record) AvailableBond() *uint256.Int {
	if r.Bond.Cmp(r.SlashedAmount) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(r.Bond, r.SlashedAmount)
}

// SuccessRate returns successful/total, defaulting to 1.0 for a solver with
// no executions yet.
func (r *Record) SuccessRate() float64 {
	if r.TotalExecutions == 0 {
		return 1.0
	}
	return float64(r.SuccessfulExecutions) / float64(r.TotalExecutions)
}

func (r *Record) profitabilityRatio() float64 {
	if r.TotalVolume.IsZero() {
		return 0
	}
	profit, _ := new(big.Float).SetInt(r.TotalProfit.ToBig()).Float64()
	volume, _ := new(big.Float).SetInt(r.TotalVolume.ToBig()).Float64()
	if volume == 0 {
		return 0
	}
	return profit / volume
}

// ExecutionReport is what the executor hands back on completion.
type ExecutionReport struct {
	IntentID        [32]byte
	Solver          []byte
	Success         bool
	ExecutionTimeSec uint64
	ExpectedOutput  *uint256.Int
	ActualOutput    *uint256.Int
	Profit          *uint256.Int
	Timestamp       uint64
}

// Manager is the solver registry and reputation bookkeeper.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	history []ExecutionReport
	minBond *uint256.Int

	cache   capabilities.CacheStore
	version uint64
}

// NewManager constructs an empty registry with a minimum bond requirement.
func NewManager(minBond *uint256.Int) *Manager {
	return &Manager{
		records: make(map[string]*Record),
		minBond: minBond,
	}
}

// SetCache attaches a hot-path cache for expensive derived reads (e.g.
// TopSolvers rankings). Optional: a nil cache simply disables caching.
func (m *Manager) SetCache(c capabilities.CacheStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = c
}

func key(solver []byte) string {
	return hex.EncodeToString(solver)
}

// Register enrolls a solver with an initial bond and declared chain support.
func (m *Manager) Register(solver []byte, bond *uint256.Int, chains []uint64, now uint64) error {
	if bond.Cmp(m.minBond) < 0 {
		return kinds.New(kinds.InsufficientBond, "bond below minimum")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(solver)
	if _, exists := m.records[k]; exists {
		return kinds.New(kinds.ConsistencyCheck, "solver already registered")
	}

	chainSet := make(map[uint64]bool, len(chains))
	for _, c := range chains {
		chainSet[c] = true
	}

	m.records[k] = &Record{
		Solver:       solver,
		Score:        InitialScore,
		TotalVolume:  new(uint256.Int),
		TotalProfit:  new(uint256.Int),
		Bond:         new(uint256.Int).Set(bond),
		SlashedAmount: new(uint256.Int),
		LastActivity: now,
		RegisteredAt: now,
		Chains:       chainSet,
	}
	m.version++
	return nil
}

// AddBond increases a registered solver's bond.
func (m *Manager) AddBond(solver []byte, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key(solver)]
	if !ok {
		return kinds.New(kinds.NotRegistered, "solver not registered")
	}
	rec.Bond.Add(rec.Bond, amount)
	if rec.AvailableBond().Cmp(m.minBond) >= 0 {
		rec.IsSlashed = false
	}
	m.version++
	return nil
}

// Get returns a solver's record.
func (m *Manager) Get(solver []byte) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key(solver)]
	if !ok {
		return nil, kinds.New(kinds.NotRegistered, "solver not registered")
	}
	return rec, nil
}

// IsEligible implements the eligibility predicate: not slashed, score at
// threshold, bond covers the exposure's multiplier, recent activity, and
// declared support for both chains.
func (m *Manager) IsEligible(solver []byte, exposure *uint256.Int, srcChain, dstChain uint64, now uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key(solver)]
	if !ok {
		return false
	}
	if rec.IsSlashed || rec.Score < MinEligible {
		return false
	}
	required := new(uint256.Int).Mul(exposure, uint256.NewInt(BondMultiplierBp))
	required.Div(required, uint256.NewInt(10000))
	if rec.AvailableBond().Cmp(required) < 0 {
		return false
	}
	if now > rec.LastActivity && now-rec.LastActivity > MaxInactiveSec {
		return false
	}
	if !rec.Chains[srcChain] || !rec.Chains[dstChain] {
		return false
	}
	return true
}

// RecordSuccess updates a solver's counters, EMA execution time, volume,
// profit, and score on a successful execution.
func (m *Manager) RecordSuccess(report ExecutionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key(report.Solver)]
	if !ok {
		return kinds.New(kinds.NotRegistered, "solver not registered")
	}

	rec.TotalExecutions++
	rec.SuccessfulExecutions++
	rec.TotalVolume.Add(rec.TotalVolume, report.ActualOutput)
	rec.TotalProfit.Add(rec.TotalProfit, report.Profit)

	if rec.AvgExecutionTimeSec == 0 {
		rec.AvgExecutionTimeSec = report.ExecutionTimeSec
	} else {
		rec.AvgExecutionTimeSec = (rec.AvgExecutionTimeSec*7 + report.ExecutionTimeSec) / 8
	}
	rec.LastActivity = report.Timestamp

	reward := RewardSuccess
	if report.ExecutionTimeSec < FastExecThreshold {
		reward += RewardFastExec
	}
	if !report.ExpectedOutput.IsZero() {
		ratioBp := new(uint256.Int).Mul(report.Profit, uint256.NewInt(10000))
		ratioBp.Div(ratioBp, report.ExpectedOutput)
		if ratioBp.Uint64() > HighProfitRatioBp {
			reward += RewardHighProfit
		}
	}
	rec.Score = minU64(rec.Score+reward, MaxScore)

	m.history = append(m.history, report)
	m.version++
	return nil
}

// RecordFailure applies the slashing taxonomy and decrements score by the
// same bp amount as the penalty.
func (m *Manager) RecordFailure(intentID [32]byte, solver []byte, reason SlashReason, exposure *uint256.Int, now uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key(solver)]
	if !ok {
		return kinds.New(kinds.NotRegistered, "solver not registered")
	}

	rec.TotalExecutions++
	rec.FailedExecutions++
	rec.LastActivity = now

	penaltyBp := reason.PenaltyBp()
	slash := new(uint256.Int).Mul(exposure, uint256.NewInt(penaltyBp))
	slash.Div(slash, uint256.NewInt(10000))
	available := rec.AvailableBond()
	if slash.Cmp(available) > 0 {
		slash = available
	}
	rec.SlashedAmount.Add(rec.SlashedAmount, slash)

	if penaltyBp > rec.Score {
		rec.Score = MinScore
	} else {
		rec.Score -= penaltyBp
	}

	if rec.AvailableBond().Cmp(m.minBond) < 0 {
		rec.IsSlashed = true
	}
	m.version++
	return nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Composite returns the solver's canonical reputation/success/profit/speed
// blend, zeroed whenever the solver is slashed.
func (r *Record) Composite() float64 {
	return compositeScore(r)
}

func compositeScore(r *Record) float64 {
	if r.IsSlashed {
		return 0
	}

	const (
		repWeight   = 0.4
		successW    = 0.3
		profitW     = 0.2
		speedW      = 0.1
	)
	repScore := float64(r.Score) / float64(MaxScore)
	successScore := r.SuccessRate()
	profitScore := math.Min(r.profitabilityRatio(), 1.0)

	speedScore := 0.5
	if r.AvgExecutionTimeSec > 0 {
		speedScore = 1.0 / (1.0 + float64(r.AvgExecutionTimeSec)/100.0)
	}

	return repScore*repWeight + successScore*successW + profitScore*profitW + speedScore*speedW
}
