package bridge

import (
	"encoding/hex"
	"sync"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// pendingWindow bounds how many nonces past the expected value are held
// rather than immediately rejected.
const pendingWindow = 64

// NonceTable enforces strictly monotone per-sender nonces with a bounded
// window for out-of-order arrivals.
type NonceTable struct {
	mu       sync.Mutex
	expected map[string]uint64
	pending  map[string]map[uint64]bool
}

// NewNonceTable constructs an empty replay-protection table.
func NewNonceTable() *NonceTable {
	return &NonceTable{
		expected: make(map[string]uint64),
		pending:  make(map[string]map[uint64]bool),
	}
}

func senderKey(sender []byte) string {
	return hex.EncodeToString(sender)
}

// Accept validates nonce against the expected value for sender. A nonce
// below expected is a replay. A nonce equal to expected advances the
// table and drains any immediately-following pending nonces. A nonce
// above expected (within pendingWindow) is held; beyond the window it is
// rejected.
func (t *NonceTable) Accept(sender []byte, nonce uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := senderKey(sender)
	expected := t.expected[k]

	if nonce < expected {
		return kinds.New(kinds.ReplayAttack, "nonce below expected value")
	}
	if nonce == expected {
		t.expected[k] = expected + 1
		t.drainPending(k)
		return nil
	}
	if nonce-expected > pendingWindow {
		return kinds.New(kinds.ReplayAttack, "nonce too far ahead of expected value")
	}
	if t.pending[k] == nil {
		t.pending[k] = make(map[uint64]bool)
	}
	t.pending[k][nonce] = true
	return nil
}

func (t *NonceTable) drainPending(k string) {
	for {
		expected := t.expected[k]
		if t.pending[k] == nil || !t.pending[k][expected] {
			return
		}
		delete(t.pending[k], expected)
		t.expected[k] = expected + 1
	}
}

// Expected returns the next expected nonce for sender.
func (t *NonceTable) Expected(sender []byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expected[senderKey(sender)]
}
