package bridge

import (
	"errors"
	"testing"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

func testMessage() *Message {
	return &Message{
		SourceChain: 1,
		DestChain:   137,
		Nonce:       0,
		Sender:      []byte{0xAA, 0xBB},
		Receiver:    []byte{0xCC, 0xDD},
		Payload:     []byte("swap-instructions"),
		Timestamp:   1000,
	}
}

func TestMessageHash_Deterministic(t *testing.T) {
	a := testMessage()
	b := testMessage()
	if a.Hash() != b.Hash() {
		t.Fatal("identical messages hashed differently")
	}

	c := testMessage()
	c.Nonce = 1
	if a.Hash() == c.Hash() {
		t.Fatal("differing nonce produced identical hash")
	}
}

func TestNonceTable_AcceptsInOrder(t *testing.T) {
	nt := NewNonceTable()
	sender := []byte{0x01}

	for i := uint64(0); i < 5; i++ {
		if err := nt.Accept(sender, i); err != nil {
			t.Fatalf("nonce %d rejected: %v", i, err)
		}
	}
	if nt.Expected(sender) != 5 {
		t.Errorf("expected next nonce 5, got %d", nt.Expected(sender))
	}
}

func TestNonceTable_RejectsReplay(t *testing.T) {
	nt := NewNonceTable()
	sender := []byte{0x01}

	if err := nt.Accept(sender, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := nt.Accept(sender, 0); !errors.Is(err, kinds.Sentinel(kinds.ReplayAttack)) {
		t.Fatalf("expected ReplayAttack, got %v", err)
	}
}

func TestNonceTable_OutOfOrderThenDrains(t *testing.T) {
	nt := NewNonceTable()
	sender := []byte{0x01}

	if err := nt.Accept(sender, 2); err != nil {
		t.Fatalf("unexpected error holding pending nonce: %v", err)
	}
	if nt.Expected(sender) != 0 {
		t.Fatalf("expected value should not advance while nonce 0/1 missing, got %d", nt.Expected(sender))
	}

	if err := nt.Accept(sender, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := nt.Accept(sender, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nt.Expected(sender) != 3 {
		t.Errorf("expected cascade to drain through pending nonce 2, got %d", nt.Expected(sender))
	}
}

func TestNonceTable_RejectsBeyondWindow(t *testing.T) {
	nt := NewNonceTable()
	sender := []byte{0x01}

	if err := nt.Accept(sender, pendingWindow+1); !errors.Is(err, kinds.Sentinel(kinds.ReplayAttack)) {
		t.Fatalf("expected ReplayAttack for nonce beyond window, got %v", err)
	}
}

func TestLightClient_ChainsAndRejectsBadParent(t *testing.T) {
	genesis := Header{Number: 0, StateRoot: [32]byte{1}}
	lc := NewLightClient(genesis)

	h1 := Header{ParentHash: genesis.Hash(), Number: 1, StateRoot: [32]byte{2}}
	if err := lc.AddHeader(h1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.Tip().Number != 1 {
		t.Fatalf("tip number = %d, want 1", lc.Tip().Number)
	}

	bad := Header{ParentHash: [32]byte{0xFF}, Number: 2}
	if err := lc.AddHeader(bad); !errors.Is(err, kinds.Sentinel(kinds.ProofInvalid)) {
		t.Fatalf("expected ProofInvalid, got %v", err)
	}
}

func TestLightClient_EvictsOldestBeyondRingSize(t *testing.T) {
	genesis := Header{Number: 0}
	lc := NewLightClient(genesis)
	lc.maxSize = 3

	prev := genesis
	for i := uint64(1); i <= 5; i++ {
		h := Header{ParentHash: prev.Hash(), Number: i}
		if err := lc.AddHeader(h); err != nil {
			t.Fatalf("unexpected error at height %d: %v", i, err)
		}
		prev = h
	}

	if _, ok := lc.HeaderAt(0); ok {
		t.Error("expected genesis header to have been evicted")
	}
	if _, ok := lc.HeaderAt(5); !ok {
		t.Error("expected most recent header to be retained")
	}
}

func TestLightClient_VerifyState(t *testing.T) {
	genesis := Header{Number: 0}
	lc := NewLightClient(genesis)
	h1 := Header{ParentHash: genesis.Hash(), Number: 1, StateRoot: [32]byte{0x42}}
	if err := lc.AddHeader(h1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !lc.VerifyState(1, [32]byte{0x42}) {
		t.Error("expected matching state root to verify")
	}
	if lc.VerifyState(1, [32]byte{0x43}) {
		t.Error("expected mismatched state root to fail verification")
	}
	if lc.VerifyState(99, [32]byte{0x42}) {
		t.Error("expected unknown height to fail verification")
	}
}

func buildMerkleProof(leaf []byte, path [][32]byte, indices []bool) (MerkleProof, [32]byte) {
	current := hashLeaf(leaf)
	for i, sibling := range path {
		if indices[i] {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	return MerkleProof{Leaf: leaf, Siblings: path, Indices: indices}, current
}

func TestVerify_MerkleInclusion(t *testing.T) {
	leaf := []byte("tx-data")
	siblings := [][32]byte{{0x01}, {0x02}}
	indices := []bool{false, true}
	proof, root := buildMerkleProof(leaf, siblings, indices)

	msg := testMessage()
	if err := Verify(msg, Proof{Kind: ProofMerkle, Merkle: proof, Root: root}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badRoot := root
	badRoot[0] ^= 0xFF
	if err := Verify(msg, Proof{Kind: ProofMerkle, Merkle: proof, Root: badRoot}); !errors.Is(err, kinds.Sentinel(kinds.ProofInvalid)) {
		t.Fatalf("expected ProofInvalid for wrong root, got %v", err)
	}
}

func TestVerify_ThresholdSignature(t *testing.T) {
	msg := testMessage()
	validators := [][]byte{{0x01}, {0x02}, {0x03}}
	sigs := []ValidatorSignature{
		{Validator: []byte{0x01}, Sig: []byte("sig1")},
		{Validator: []byte{0x02}, Sig: []byte("sig2")},
	}
	verifyAll := func(digest [32]byte, sig ValidatorSignature) bool { return true }

	err := Verify(msg, Proof{
		Kind:         ProofThresholdSignature,
		Signatures:   sigs,
		ValidatorSet: validators,
		Threshold:    2,
		SigVerify:    verifyAll,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = Verify(msg, Proof{
		Kind:         ProofThresholdSignature,
		Signatures:   sigs,
		ValidatorSet: validators,
		Threshold:    3,
		SigVerify:    verifyAll,
	})
	if !errors.Is(err, kinds.Sentinel(kinds.ProofInvalid)) {
		t.Fatalf("expected ProofInvalid when threshold unmet, got %v", err)
	}
}

func TestVerify_FinalityDepth(t *testing.T) {
	msg := testMessage()

	err := Verify(msg, Proof{Kind: ProofFinalityDepth, CurrentBlock: 100, MessageBlock: 50, FinalityBlocks: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = Verify(msg, Proof{Kind: ProofFinalityDepth, CurrentBlock: 90, MessageBlock: 50, FinalityBlocks: 50})
	if !errors.Is(err, kinds.Sentinel(kinds.NotFinalized)) {
		t.Fatalf("expected NotFinalized, got %v", err)
	}
}

func TestEstimateFee_ScalesWithPayloadAndCrossChain(t *testing.T) {
	same := EstimateFee(1, 1, 100)
	cross := EstimateFee(1, 137, 100)
	if cross <= same {
		t.Error("expected cross-chain fee premium to raise the estimate")
	}

	small := EstimateFee(1, 137, 10)
	large := EstimateFee(1, 137, 1000)
	if large <= small {
		t.Error("expected larger payload to raise the fee estimate")
	}
}
