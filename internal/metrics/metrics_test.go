package metrics

import "testing"

func TestRecord_AggregatesCountsAndSums(t *testing.T) {
	m := NewMonitor()

	m.Record(ExecutionRecord{IntentID: [32]byte{1}, StartedAt: 0, CompletedAt: 10, Gas: 100, BridgeFee: 5, Profit: 20, SourceChain: 1, DestChain: 137, Protocol: "layerzero"})
	m.Record(ExecutionRecord{IntentID: [32]byte{2}, StartedAt: 0, CompletedAt: 20, Gas: 200, BridgeFee: 10, Profit: -5, SourceChain: 1, DestChain: 137, Protocol: "layerzero", Failed: true})

	snap := m.Snapshot()
	if snap.Total != 2 {
		t.Fatalf("total = %d, want 2", snap.Total)
	}
	if snap.Success != 1 || snap.Failed != 1 {
		t.Errorf("success=%d failed=%d, want 1/1", snap.Success, snap.Failed)
	}
	if snap.GasSum != 300 {
		t.Errorf("gas sum = %d, want 300", snap.GasSum)
	}
	if snap.ProfitSum != 15 {
		t.Errorf("profit sum = %d, want 15", snap.ProfitSum)
	}

	chain := snap.PerChain[1]
	if chain == nil || chain.Total != 2 || chain.Success != 1 || chain.Failed != 1 {
		t.Errorf("unexpected per-chain stats: %+v", chain)
	}

	proto := snap.PerProtocol["layerzero"]
	if proto == nil || proto.Total != 2 {
		t.Errorf("unexpected per-protocol stats: %+v", proto)
	}
}

func TestRecord_RingEvictsOldest(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < ringSize+5; i++ {
		m.Record(ExecutionRecord{IntentID: [32]byte{byte(i)}, StartedAt: 0, CompletedAt: 1})
	}

	records := m.Records()
	if len(records) != ringSize {
		t.Fatalf("records length = %d, want %d", len(records), ringSize)
	}
}

func TestAlerts_HighFailureRate(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 11; i++ {
		m.Record(ExecutionRecord{IntentID: [32]byte{byte(i)}, Failed: i < 5})
	}

	alerts := m.Alerts()
	found := false
	for _, a := range alerts {
		if a.Kind == "high_failure_rate" {
			found = true
		}
	}
	if !found {
		t.Error("expected high_failure_rate alert to trip")
	}
}

func TestAlerts_QuietWhenHealthy(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 20; i++ {
		m.Record(ExecutionRecord{IntentID: [32]byte{byte(i)}, StartedAt: 0, CompletedAt: 1, Gas: 1000, Profit: 10})
	}

	for _, a := range m.Alerts() {
		if a.Kind == "high_failure_rate" || a.Kind == "slow_executions" || a.Kind == "high_gas_usage" {
			t.Errorf("unexpected alert tripped in healthy scenario: %v", a.Kind)
		}
	}
}
