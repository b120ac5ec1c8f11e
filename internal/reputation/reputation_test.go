package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

func minBond() *uint256.Int {
	return uint256.NewInt(1_000_000_000)
}

func TestRegister_Success(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}

	if err := m.Register(solver, uint256.NewInt(2_000_000_000), []uint64{1, 137}, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := m.Get(solver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Score != InitialScore {
		t.Errorf("score = %d, want %d", rec.Score, InitialScore)
	}
}

func TestRegister_InsufficientBond(t *testing.T) {
	m := NewManager(minBond())
	err := m.Register([]byte{0x01}, uint256.NewInt(10), nil, 1000)
	if !errors.Is(err, kinds.Sentinel(kinds.InsufficientBond)) {
		t.Fatalf("expected InsufficientBond, got %v", err)
	}
}

func TestRecordSuccess_IncreasesScore(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}
	m.Register(solver, uint256.NewInt(2_000_000_000), []uint64{1, 137}, 1000)

	err := m.RecordSuccess(ExecutionReport{
		Solver:           solver,
		Success:          true,
		ExecutionTimeSec: 20,
		ExpectedOutput:   uint256.NewInt(1000),
		ActualOutput:     uint256.NewInt(1010),
		Profit:           uint256.NewInt(20),
		Timestamp:        1010,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := m.Get(solver)
	if rec.Score <= InitialScore {
		t.Errorf("score = %d, want > %d", rec.Score, InitialScore)
	}
	if rec.SuccessfulExecutions != 1 {
		t.Errorf("successful executions = %d, want 1", rec.SuccessfulExecutions)
	}
}

func TestRecordFailure_SlashesAndDecreasesScore(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}
	m.Register(solver, uint256.NewInt(2_000_000_000), []uint64{1, 137}, 1000)

	err := m.RecordFailure([32]byte{}, solver, SlashFailedExecution, uint256.NewInt(1_000_000), 1100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := m.Get(solver)
	if rec.Score != InitialScore-100 {
		t.Errorf("score = %d, want %d", rec.Score, InitialScore-100)
	}
	if rec.SlashedAmount.IsZero() {
		t.Error("expected slashed amount > 0")
	}
}

func TestIsEligible_RequiresBothChains(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}
	m.Register(solver, uint256.NewInt(2_000_000_000), []uint64{1}, 1000)

	if m.IsEligible(solver, uint256.NewInt(1000), 1, 137, 1000) {
		t.Error("expected ineligible: solver does not support chain 137")
	}
}

func TestIsEligible_InsufficientBondForExposure(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}
	m.Register(solver, minBond(), []uint64{1, 137}, 1000)

	huge := new(uint256.Int).Mul(minBond(), uint256.NewInt(1_000_000))
	if m.IsEligible(solver, huge, 1, 137, 1000) {
		t.Error("expected ineligible: bond does not cover required multiplier of exposure")
	}
}

func TestIsEligible_BecomesSlashedBelowMinBond(t *testing.T) {
	m := NewManager(minBond())
	solver := []byte{0x01}
	m.Register(solver, minBond(), []uint64{1, 137}, 1000)

	for i := 0; i < 10; i++ {
		m.RecordFailure([32]byte{}, solver, SlashInsufficientBond, minBond(), 1000)
	}

	rec, _ := m.Get(solver)
	if !rec.IsSlashed {
		t.Error("expected solver to be marked slashed after repeated penalties")
	}
	if m.IsEligible(solver, uint256.NewInt(1), 1, 137, 1000) {
		t.Error("expected a slashed solver to be ineligible")
	}
}

func TestTopSolvers_OrdersByCompositeScore(t *testing.T) {
	m := NewManager(minBond())
	a, b := []byte{0x01}, []byte{0x02}
	m.Register(a, uint256.NewInt(2_000_000_000), []uint64{1, 137}, 1000)
	m.Register(b, uint256.NewInt(2_000_000_000), []uint64{1, 137}, 1000)

	m.RecordSuccess(ExecutionReport{Solver: a, Success: true, ExecutionTimeSec: 10, ExpectedOutput: uint256.NewInt(1000), ActualOutput: uint256.NewInt(1100), Profit: uint256.NewInt(100), Timestamp: 1001})

	top := m.TopSolvers(context.Background(), 2)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if string(top[0].Solver) != string(a) {
		t.Error("expected solver with a successful, fast, profitable execution to rank first")
	}
}
