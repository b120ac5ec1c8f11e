// Package metrics tracks per-execution records and incrementally maintained
// aggregates for the executor pipeline, plus threshold-based alert
// predicates that are emitted but never enforced.
package metrics

import (
	"runtime"
	"sync"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

const ringSize = 1000

// ExecutionRecord is one completed or failed execution context's summary.
type ExecutionRecord struct {
	IntentID      [32]byte
	StartedAt     uint64
	CompletedAt   uint64
	FinalState    string
	Gas           uint64
	BridgeFee     uint64
	Profit        int64 // signed: a loss is possible if dest_amount < exposure equivalent
	SourceChain   uint64
	DestChain     uint64
	Protocol      string
	MEVDelaySec   uint64
	RetryCount    int
	ErrorText     string
	Failed        bool
	Cancelled     bool
	TimedOut      bool
	BridgeFailure bool
}

// Aggregates holds the incrementally-maintained running totals derived
// from every recorded execution.
type Aggregates struct {
	Total     uint64
	Success   uint64
	Failed    uint64
	Cancelled uint64
	TimedOut  uint64

	GasSum       uint64
	BridgeFeeSum uint64
	ProfitSum    int64

	AvgExecSeconds float64 // exponential moving average, alpha = 1/8

	MEVTriggerCount uint64
	MEVDelaySum     uint64

	PerChain    map[uint64]*ChainStats
	PerProtocol map[string]*ProtocolStats
}

// ChainStats tracks per-chain execution counts.
type ChainStats struct {
	Total   uint64
	Success uint64
	Failed  uint64
}

// ProtocolStats tracks per-bridge-protocol execution and failure counts.
type ProtocolStats struct {
	Total         uint64
	BridgeFailure uint64
}

// Monitor is the single writer-visible metrics sink. Exports are snapshot
// copies so callers never observe a partially-updated ring or aggregate.
type Monitor struct {
	mu      sync.Mutex
	ring    []ExecutionRecord
	ringPos int
	filled  bool
	agg     Aggregates
}

// NewMonitor constructs an empty metrics sink.
func NewMonitor() *Monitor {
	return &Monitor{
		ring: make([]ExecutionRecord, ringSize),
		agg: Aggregates{
			PerChain:    make(map[uint64]*ChainStats),
			PerProtocol: make(map[string]*ProtocolStats),
		},
	}
}

// Record appends an execution record to the ring (evicting the oldest once
// full) and folds its contribution into the running aggregates.
func (m *Monitor) Record(r ExecutionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.ringPos] = r
	m.ringPos = (m.ringPos + 1) % ringSize
	if m.ringPos == 0 {
		m.filled = true
	}

	m.agg.Total++
	switch {
	case r.Cancelled:
		m.agg.Cancelled++
	case r.TimedOut:
		m.agg.TimedOut++
	case r.Failed:
		m.agg.Failed++
	default:
		m.agg.Success++
	}

	m.agg.GasSum += r.Gas
	m.agg.BridgeFeeSum += r.BridgeFee
	m.agg.ProfitSum += r.Profit

	execSeconds := float64(0)
	if r.CompletedAt > r.StartedAt {
		execSeconds = float64(r.CompletedAt - r.StartedAt)
	}
	if m.agg.Total == 1 {
		m.agg.AvgExecSeconds = execSeconds
	} else {
		m.agg.AvgExecSeconds = (7*m.agg.AvgExecSeconds + execSeconds) / 8
	}

	if r.MEVDelaySec > 0 {
		m.agg.MEVTriggerCount++
		m.agg.MEVDelaySum += r.MEVDelaySec
	}

	chain := m.agg.PerChain[r.SourceChain]
	if chain == nil {
		chain = &ChainStats{}
		m.agg.PerChain[r.SourceChain] = chain
	}
	chain.Total++
	if r.Failed || r.TimedOut {
		chain.Failed++
	} else if !r.Cancelled {
		chain.Success++
	}

	if r.Protocol != "" {
		proto := m.agg.PerProtocol[r.Protocol]
		if proto == nil {
			proto = &ProtocolStats{}
			m.agg.PerProtocol[r.Protocol] = proto
		}
		proto.Total++
		if r.BridgeFailure {
			proto.BridgeFailure++
		}
	}
}

// Snapshot returns a copy of the running aggregates safe for the caller to
// read without holding the monitor's lock.
func (m *Monitor) Snapshot() Aggregates {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.agg
	out.PerChain = make(map[uint64]*ChainStats, len(m.agg.PerChain))
	for k, v := range m.agg.PerChain {
		cp := *v
		out.PerChain[k] = &cp
	}
	out.PerProtocol = make(map[string]*ProtocolStats, len(m.agg.PerProtocol))
	for k, v := range m.agg.PerProtocol {
		cp := *v
		out.PerProtocol[k] = &cp
	}
	return out
}

// Records returns a copy of the retained execution records, oldest first.
func (m *Monitor) Records() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.filled {
		out := make([]ExecutionRecord, m.ringPos)
		copy(out, m.ring[:m.ringPos])
		return out
	}
	out := make([]ExecutionRecord, ringSize)
	copy(out, m.ring[m.ringPos:])
	copy(out[ringSize-m.ringPos:], m.ring[:m.ringPos])
	return out
}

// Alert names one tripped predicate along with the value that tripped it.
type Alert struct {
	Kind  kinds.Kind
	Value float64
}

const (
	failureRateThreshold  = 0.20
	minTotalForFailureAlert = 10
	slowExecThresholdSec  = 180
	highGasThreshold      = 500_000
	lowProfitThreshold    = 0
	bridgeFailureRate     = 0.10
	memoryHighBytes       = 2 << 30 // 2 GiB heap in use
)

// Alerts evaluates every alert predicate against the current aggregates and
// returns the ones that are tripped. Alerts are emitted for visibility;
// nothing here enforces or blocks behavior.
func (m *Monitor) Alerts() []Alert {
	agg := m.Snapshot()
	var alerts []Alert

	if agg.Total > minTotalForFailureAlert {
		rate := float64(agg.Failed) / float64(agg.Total)
		if rate > failureRateThreshold {
			alerts = append(alerts, Alert{Kind: "high_failure_rate", Value: rate})
		}
	}

	if agg.AvgExecSeconds > slowExecThresholdSec {
		alerts = append(alerts, Alert{Kind: "slow_executions", Value: agg.AvgExecSeconds})
	}

	if agg.Total > 0 {
		avgGas := float64(agg.GasSum) / float64(agg.Total)
		if avgGas > highGasThreshold {
			alerts = append(alerts, Alert{Kind: "high_gas_usage", Value: avgGas})
		}

		avgProfit := float64(agg.ProfitSum) / float64(agg.Total)
		if avgProfit < lowProfitThreshold {
			alerts = append(alerts, Alert{Kind: "low_profitability", Value: avgProfit})
		}
	}

	for protocol, stats := range agg.PerProtocol {
		if stats.Total == 0 {
			continue
		}
		rate := float64(stats.BridgeFailure) / float64(stats.Total)
		if rate > bridgeFailureRate {
			alerts = append(alerts, Alert{Kind: kinds.Kind("bridge_failures:" + protocol), Value: rate})
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	if memStats.HeapInuse > memoryHighBytes {
		alerts = append(alerts, Alert{Kind: "memory_high", Value: float64(memStats.HeapInuse)})
	}

	return alerts
}
