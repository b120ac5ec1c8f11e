// Package auction runs the per-intent solver auction: opening a window,
// collecting competing quotes, scoring them, and settling on a winner (or
// expiring with no solver).
package auction

import (
	"bytes"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/reputation"
)

// State is the auction lifecycle.
type State int

const (
	StateOpen State = iota
	StateSettled
	StateExpired
)

// Quote is one solver's bid for an intent.
type Quote struct {
	ID          string
	Solver      []byte
	DestAmount  *uint256.Int
	ExecSeconds uint64
	SubmittedAt uint64
	score       float64
}

// Record is one intent's auction window plus its collected quotes.
type Record struct {
	mu        sync.Mutex
	IntentID  [32]byte
	OpenedAt  uint64
	ClosesAt  uint64
	State     State
	Quotes    []Quote
	Winner    *Quote
}

// Manager owns all open/settled auctions, keyed by intent id. Per spec,
// auction access is serialized per intent id — each Record carries its own
// mutex so unrelated auctions never contend.
type Manager struct {
	mu       sync.RWMutex
	auctions map[[32]byte]*Record
	reps     *reputation.Manager
}

// NewManager constructs an auction table backed by a reputation manager for
// eligibility checks and composite scoring.
func NewManager(reps *reputation.Manager) *Manager {
	return &Manager{
		auctions: make(map[[32]byte]*Record),
		reps:     reps,
	}
}

// StartAuction opens a new auction window for intentID, rejecting if one is
// already open.
func (m *Manager) StartAuction(intentID [32]byte, ttlSeconds, now uint64) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.auctions[intentID]; ok && existing.State == StateOpen {
		return nil, kinds.New(kinds.AlreadyOpen, "auction already open for this intent")
	}

	rec := &Record{
		IntentID: intentID,
		OpenedAt: now,
		ClosesAt: now + ttlSeconds,
		State:    StateOpen,
	}
	m.auctions[intentID] = rec
	return rec, nil
}

func scoreQuote(q Quote, minDestAmount *uint256.Int, repComposite float64) float64 {
	normalizedOutput := 1.0
	if !minDestAmount.IsZero() {
		ratio := new(uint256.Int).Mul(q.DestAmount, uint256.NewInt(10000))
		ratio.Div(ratio, minDestAmount)
		normalizedOutput = math.Min(float64(ratio.Uint64())/10000.0, 1.0)
	}
	speedScore := 1.0 / (1.0 + float64(q.ExecSeconds)/60.0)
	return 0.5*normalizedOutput + 0.3*repComposite + 0.2*speedScore
}

// SubmitQuote validates and appends a quote to an open auction.
func (m *Manager) SubmitQuote(intentID [32]byte, minDestAmount *uint256.Int, q Quote, srcChain, dstChain, now uint64) error {
	m.mu.RLock()
	rec, ok := m.auctions[intentID]
	m.mu.RUnlock()
	if !ok {
		return kinds.New(kinds.NotFound, "auction not found")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.State != StateOpen || now >= rec.ClosesAt {
		return kinds.New(kinds.NotFound, "auction is not open")
	}
	if !m.reps.IsEligible(q.Solver, minDestAmount, srcChain, dstChain, now) {
		return kinds.New(kinds.QuoteRejected, "solver is not eligible")
	}
	if q.DestAmount.Cmp(minDestAmount) < 0 {
		return kinds.New(kinds.QuoteRejected, "quote below min_dest_amount")
	}

	repRecord, err := m.reps.Get(q.Solver)
	composite := 0.5
	if err == nil {
		composite = repRecord.Composite()
	}
	q.score = scoreQuote(q, minDestAmount, composite)
	q.ID = uuid.NewString()
	rec.Quotes = append(rec.Quotes, q)
	return nil
}

// Settle picks the winning quote by score, tiebreaking by earlier
// submission then lower solver address. An auction with no valid quotes
// expires with NoEligibleSolver.
func (m *Manager) Settle(intentID [32]byte) (*Quote, error) {
	m.mu.RLock()
	rec, ok := m.auctions[intentID]
	m.mu.RUnlock()
	if !ok {
		return nil, kinds.New(kinds.NotFound, "auction not found")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.Quotes) == 0 {
		rec.State = StateExpired
		return nil, kinds.New(kinds.NoEligibleSolver, "no valid quotes received")
	}

	sorted := make([]Quote, len(rec.Quotes))
	copy(sorted, rec.Quotes)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.SubmittedAt != b.SubmittedAt {
			return a.SubmittedAt < b.SubmittedAt
		}
		return bytes.Compare(a.Solver, b.Solver) < 0
	})

	winner := sorted[0]
	rec.Winner = &winner
	rec.State = StateSettled
	return rec.Winner, nil
}

// Cancel expires an auction before any valid quote has been accepted.
func (m *Manager) Cancel(intentID [32]byte) error {
	m.mu.RLock()
	rec, ok := m.auctions[intentID]
	m.mu.RUnlock()
	if !ok {
		return kinds.New(kinds.NotFound, "auction not found")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.State != StateOpen {
		return kinds.New(kinds.NotFound, "auction is not open")
	}
	if len(rec.Quotes) > 0 {
		return kinds.New(kinds.QuoteRejected, "cannot cancel after a valid quote has been submitted")
	}
	rec.State = StateExpired
	return nil
}

// Get returns an auction record by intent id.
func (m *Manager) Get(intentID [32]byte) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.auctions[intentID]
	if !ok {
		return nil, kinds.New(kinds.NotFound, "auction not found")
	}
	return rec, nil
}
