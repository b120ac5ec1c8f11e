package auction

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/reputation"
)

func newTestManager(t *testing.T) (*Manager, *reputation.Manager) {
	t.Helper()
	reps := reputation.NewManager(uint256.NewInt(1_000_000))
	return NewManager(reps), reps
}

func registerSolver(t *testing.T, reps *reputation.Manager, addr byte) []byte {
	t.Helper()
	solver := []byte{addr}
	if err := reps.Register(solver, uint256.NewInt(10_000_000), []uint64{1, 137}, 1000); err != nil {
		t.Fatalf("unexpected error registering solver: %v", err)
	}
	return solver
}

func TestStartAuction_RejectsDuplicate(t *testing.T) {
	m, _ := newTestManager(t)
	var id [32]byte
	if _, err := m.StartAuction(id, 60, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.StartAuction(id, 60, 1000); !errors.Is(err, kinds.Sentinel(kinds.AlreadyOpen)) {
		t.Fatalf("expected AlreadyOpen, got %v", err)
	}
}

func TestSubmitQuote_RejectsBelowMinDest(t *testing.T) {
	m, reps := newTestManager(t)
	solver := registerSolver(t, reps, 0x01)
	var id [32]byte
	m.StartAuction(id, 60, 1000)

	err := m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: solver, DestAmount: uint256.NewInt(900), ExecSeconds: 20, SubmittedAt: 1001}, 1, 137, 1001)
	if !errors.Is(err, kinds.Sentinel(kinds.QuoteRejected)) {
		t.Fatalf("expected QuoteRejected, got %v", err)
	}
}

func TestSettle_NoQuotesExpires(t *testing.T) {
	m, _ := newTestManager(t)
	var id [32]byte
	m.StartAuction(id, 60, 1000)

	_, err := m.Settle(id)
	if !errors.Is(err, kinds.Sentinel(kinds.NoEligibleSolver)) {
		t.Fatalf("expected NoEligibleSolver, got %v", err)
	}
	rec, _ := m.Get(id)
	if rec.State != StateExpired {
		t.Errorf("state = %v, want Expired", rec.State)
	}
}

func TestSettle_PicksHighestScore(t *testing.T) {
	m, reps := newTestManager(t)
	a := registerSolver(t, reps, 0x01)
	b := registerSolver(t, reps, 0x02)

	var id [32]byte
	m.StartAuction(id, 60, 1000)

	if err := m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: a, DestAmount: uint256.NewInt(1000), ExecSeconds: 50, SubmittedAt: 1001}, 1, 137, 1001); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: b, DestAmount: uint256.NewInt(1100), ExecSeconds: 10, SubmittedAt: 1002}, 1, 137, 1002); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	winner, err := m.Settle(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(winner.Solver) != string(b) {
		t.Error("expected the higher-output, faster solver to win")
	}
}

func TestSettle_TiebreakByEarlierSubmission(t *testing.T) {
	m, reps := newTestManager(t)
	a := registerSolver(t, reps, 0x01)
	b := registerSolver(t, reps, 0x02)

	var id [32]byte
	m.StartAuction(id, 60, 1000)

	m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: a, DestAmount: uint256.NewInt(1000), ExecSeconds: 20, SubmittedAt: 1005}, 1, 137, 1005)
	m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: b, DestAmount: uint256.NewInt(1000), ExecSeconds: 20, SubmittedAt: 1001}, 1, 137, 1001)

	winner, err := m.Settle(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(winner.Solver) != string(b) {
		t.Error("expected the earlier submission to win an identical-score tie")
	}
}

func TestCancel_BeforeFirstQuote(t *testing.T) {
	m, _ := newTestManager(t)
	var id [32]byte
	m.StartAuction(id, 60, 1000)

	if err := m.Cancel(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := m.Get(id)
	if rec.State != StateExpired {
		t.Errorf("state = %v, want Expired", rec.State)
	}
}

func TestCancel_RejectedAfterValidQuote(t *testing.T) {
	m, reps := newTestManager(t)
	solver := registerSolver(t, reps, 0x01)
	var id [32]byte
	m.StartAuction(id, 60, 1000)
	m.SubmitQuote(id, uint256.NewInt(1000), Quote{Solver: solver, DestAmount: uint256.NewInt(1000), ExecSeconds: 20, SubmittedAt: 1001}, 1, 137, 1001)

	if err := m.Cancel(id); err == nil {
		t.Fatal("expected cancel to be rejected after a valid quote was submitted")
	}
}
