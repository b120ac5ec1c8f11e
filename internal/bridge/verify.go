package bridge

import (
	"bytes"

	"golang.org/x/crypto/sha3"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// MerkleProof proves a leaf's inclusion in a tree whose root is known.
type MerkleProof struct {
	Leaf     []byte
	Siblings [][32]byte
	Indices  []bool // false = sibling is on the left
}

// VerifyMerkleInclusion recomputes the root from leaf and siblings and
// compares it against the trusted root.
func VerifyMerkleInclusion(proof MerkleProof, root [32]byte) bool {
	if len(proof.Siblings) != len(proof.Indices) {
		return false
	}
	current := hashLeaf(proof.Leaf)
	for i, sibling := range proof.Siblings {
		if proof.Indices[i] {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	return current == root
}

func hashLeaf(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{0x00})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashPair(left, right [32]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{0x01})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ValidatorSignature is one validator's signature over a message hash.
type ValidatorSignature struct {
	Validator []byte
	Sig       []byte
}

// VerifyThresholdSignatures checks that at least threshold distinct
// validators from validatorSet produced a valid signature over digest.
// The actual ECDSA check is delegated to the verify callback so this
// package stays free of a concrete signature scheme.
func VerifyThresholdSignatures(digest [32]byte, sigs []ValidatorSignature, validatorSet [][]byte, threshold int, verify func(digest [32]byte, sig ValidatorSignature) bool) bool {
	seen := make(map[string]bool)
	valid := 0
	for _, sig := range sigs {
		if !isValidator(sig.Validator, validatorSet) {
			continue
		}
		key := string(sig.Validator)
		if seen[key] {
			continue
		}
		if !verify(digest, sig) {
			continue
		}
		seen[key] = true
		valid++
	}
	return valid >= threshold
}

func isValidator(addr []byte, set [][]byte) bool {
	for _, v := range set {
		if bytes.Equal(v, addr) {
			return true
		}
	}
	return false
}

// VerifyFinality checks that currentBlock is at least finalityBlocks past
// messageBlock.
func VerifyFinality(currentBlock, messageBlock, finalityBlocks uint64) bool {
	if currentBlock < messageBlock {
		return false
	}
	return currentBlock-messageBlock >= finalityBlocks
}

// ProofKind tags which verification scheme a Verify call should use.
type ProofKind int

const (
	ProofMerkle ProofKind = iota
	ProofThresholdSignature
	ProofFinalityDepth
)

// Proof bundles the data needed by whichever verification scheme is named
// by Kind; callers populate only the fields relevant to that kind.
type Proof struct {
	Kind ProofKind

	Merkle MerkleProof
	Root   [32]byte

	Signatures   []ValidatorSignature
	ValidatorSet [][]byte
	Threshold    int
	SigVerify    func(digest [32]byte, sig ValidatorSignature) bool

	CurrentBlock   uint64
	MessageBlock   uint64
	FinalityBlocks uint64
}

// Verify dispatches a message + proof pair to the verification scheme
// named by proof.Kind.
func Verify(msg *Message, proof Proof) error {
	switch proof.Kind {
	case ProofMerkle:
		if !VerifyMerkleInclusion(proof.Merkle, proof.Root) {
			return kinds.New(kinds.ProofInvalid, "merkle inclusion proof failed")
		}
		return nil
	case ProofThresholdSignature:
		digest := msg.Hash()
		if !VerifyThresholdSignatures(digest, proof.Signatures, proof.ValidatorSet, proof.Threshold, proof.SigVerify) {
			return kinds.New(kinds.ProofInvalid, "validator threshold not met")
		}
		return nil
	case ProofFinalityDepth:
		if !VerifyFinality(proof.CurrentBlock, proof.MessageBlock, proof.FinalityBlocks) {
			return kinds.New(kinds.NotFinalized, "insufficient finality depth")
		}
		return nil
	default:
		return kinds.New(kinds.ProtocolUnsupported, "unknown proof kind")
	}
}

// EstimateFee is a pure function of source chain, dest chain, and payload
// size, returning native-wei of the source chain. The base fee scales
// with payload size; any route whose source and destination chain ids
// differ carries a flat 21,000 premium.
func EstimateFee(srcChain, dstChain uint64, payloadSize int) uint64 {
	const baseFee = 50_000
	const perByte = 16
	fee := uint64(baseFee + perByte*payloadSize)
	if srcChain != dstChain {
		fee += 21_000
	}
	return fee
}
