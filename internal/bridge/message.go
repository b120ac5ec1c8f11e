// Package bridge implements the cross-chain message core: canonical
// message hashing, per-sender replay protection, proof-verification
// dispatch across protocols, and a bounded light-client header chain.
package bridge

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// Message is a cross-chain instruction: move payload from sender on
// source_chain to receiver on dest_chain, guarded by a monotone nonce.
type Message struct {
	SourceChain uint64
	DestChain   uint64
	Nonce       uint64
	Sender      []byte
	Receiver    []byte
	Payload     []byte
	Timestamp   uint64
}

func putLenPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	h.Write(lenBuf[:])
	h.Write(b)
}

// Hash is the canonical identity of a message: little-endian u64 fields,
// length-prefixed byte strings.
func (m *Message) Hash() [32]byte {
	h := sha3.NewLegacyKeccak256()
	var u64Buf [8]byte

	binary.LittleEndian.PutUint64(u64Buf[:], m.SourceChain)
	h.Write(u64Buf[:])
	binary.LittleEndian.PutUint64(u64Buf[:], m.DestChain)
	h.Write(u64Buf[:])
	binary.LittleEndian.PutUint64(u64Buf[:], m.Nonce)
	h.Write(u64Buf[:])
	putLenPrefixed(h, m.Sender)
	putLenPrefixed(h, m.Receiver)
	putLenPrefixed(h, m.Payload)
	binary.LittleEndian.PutUint64(u64Buf[:], m.Timestamp)
	h.Write(u64Buf[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Protocol identifies a bridge implementation's verification scheme.
type Protocol int

const (
	ProtocolLayerZero Protocol = iota
	ProtocolAxelar
	ProtocolWormhole
	ProtocolOptimisticRollup
	ProtocolCustom
)

// ValidateNonce rejects a nonce below the expected value as a replay and
// accepts any other nonce. It does not advance or hold anything; that
// bookkeeping is done by NonceTable.
func ValidateNonce(expected, got uint64) error {
	if got < expected {
		return kinds.New(kinds.ReplayAttack, "nonce below expected value")
	}
	return nil
}
