// Package intent models a user's signed cross-chain conversion request: its
// canonical id, its EIP-712-like signed digest, and the validity contract
// every downstream component relies on before acting on it.
package intent

import (
	"bytes"
	"encoding/binary"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/kinds"
)

// Intent is a user's signed declaration of a desired cross-chain token
// conversion subject to constraints.
type Intent struct {
	User           []byte // 20-byte address, opaque to this package
	SourceChainID  uint64
	DestChainID    uint64
	SourceToken    []byte
	DestToken      []byte
	SourceAmount   *uint256.Int
	MinDestAmount  *uint256.Int
	Deadline       uint64 // epoch seconds
	Nonce          uint64
	Data           []byte
	Signature      []byte
}

// DomainSeparator binds a signed digest to a chain id and a name/version
// pair, preventing cross-deployment signature replay.
type DomainSeparator struct {
	Name    string
	Version string
	ChainID uint64
}

func keccak(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func u256Bytes(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// ID computes the canonical intent id: the keccak of the ABI-style
// concatenation of every field in spec order.
func (i *Intent) ID() [32]byte {
	return keccak(
		i.User,
		u64Bytes(i.SourceChainID),
		u64Bytes(i.DestChainID),
		i.SourceToken,
		i.DestToken,
		u256Bytes(i.SourceAmount),
		u256Bytes(i.MinDestAmount),
		u64Bytes(i.Deadline),
		u64Bytes(i.Nonce),
	)
}

func (d DomainSeparator) hash() [32]byte {
	return keccak([]byte(d.Name), []byte(d.Version), u64Bytes(d.ChainID))
}

// SignedDigest computes the EIP-712-like digest that Signature must cover:
// keccak(0x19 || 0x01 || domain_separator || id).
func (i *Intent) SignedDigest(domain DomainSeparator) [32]byte {
	ds := domain.hash()
	id := i.ID()
	return keccak([]byte{0x19, 0x01}, ds[:], id[:])
}

// Validate checks invariant I-INTENT: positive amounts, a future deadline,
// a source/dest pair that actually differs (by chain or token), and a
// signature that recovers to User.
func (i *Intent) Validate(domain DomainSeparator, now uint64, recover capabilities.SignatureRecover) error {
	if i.SourceAmount == nil || i.SourceAmount.IsZero() {
		return kinds.New(kinds.InvalidAmount, "source_amount must be non-zero")
	}
	if i.MinDestAmount == nil || i.MinDestAmount.IsZero() {
		return kinds.New(kinds.InvalidAmount, "min_dest_amount must be non-zero")
	}
	if i.Deadline <= now {
		return kinds.New(kinds.ExpiredDeadline, "intent deadline has passed")
	}
	if i.SourceChainID == i.DestChainID && bytes.Equal(i.SourceToken, i.DestToken) {
		return kinds.New(kinds.SameChainSameToken, "source and dest chain/token must differ")
	}

	digest := i.SignedDigest(domain)
	recovered, err := recover.Recover(digest, i.Signature)
	if err != nil {
		return kinds.Wrap(kinds.InvalidSignature, "signature recovery failed", err)
	}
	if recovered == nil || !bytes.Equal(recovered, i.User) {
		return kinds.New(kinds.InvalidSignature, "signature does not recover to user")
	}
	return nil
}

// IsExpired reports whether the intent's deadline has passed as of now.
func (i *Intent) IsExpired(now uint64) bool {
	return i.Deadline <= now
}

// Status is the lifecycle state of a submitted intent as tracked by the
// library API (submit_intent / cancel_intent / intent_status).
type Status int

const (
	StatusCreated Status = iota
	StatusMatched
	StatusExecuting
	StatusExecuted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusMatched:
		return "matched"
	case StatusExecuting:
		return "executing"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is the intent as tracked internally: the payload plus its current
// status, keyed by canonical id.
type Record struct {
	Intent *Intent
	ID     [32]byte
	Status Status
}
