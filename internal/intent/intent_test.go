package intent

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

type fakeRecover struct {
	addr []byte
	err  error
}

func (f fakeRecover) Recover(digest [32]byte, sig []byte) ([]byte, error) {
	return f.addr, f.err
}

func sampleIntent(user []byte) *Intent {
	return &Intent{
		User:          user,
		SourceChainID: 1,
		DestChainID:   137,
		SourceToken:   []byte{0x01},
		DestToken:     []byte{0x02},
		SourceAmount:  uint256.NewInt(1000),
		MinDestAmount: uint256.NewInt(990),
		Deadline:      2_000_000_000,
		Nonce:         1,
		Signature:     []byte("sig"),
	}
}

var domain = DomainSeparator{Name: "orbital-intents", Version: "1", ChainID: 1}

func TestValidate_Success(t *testing.T) {
	user := []byte{0xAA}
	in := sampleIntent(user)

	err := in.Validate(domain, 1_000_000_000, fakeRecover{addr: user})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsWrongSigner(t *testing.T) {
	user := []byte{0xAA}
	in := sampleIntent(user)

	err := in.Validate(domain, 1_000_000_000, fakeRecover{addr: []byte{0xBB}})
	if !errors.Is(err, kinds.Sentinel(kinds.InvalidSignature)) {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}
}

func TestValidate_RejectsExpired(t *testing.T) {
	user := []byte{0xAA}
	in := sampleIntent(user)
	in.Deadline = 10

	err := in.Validate(domain, 1_000_000_000, fakeRecover{addr: user})
	if !errors.Is(err, kinds.Sentinel(kinds.ExpiredDeadline)) {
		t.Fatalf("expected ExpiredDeadline, got %v", err)
	}
}

func TestValidate_RejectsSameChainSameToken(t *testing.T) {
	user := []byte{0xAA}
	in := sampleIntent(user)
	in.DestChainID = in.SourceChainID
	in.DestToken = in.SourceToken

	err := in.Validate(domain, 1_000_000_000, fakeRecover{addr: user})
	if !errors.Is(err, kinds.Sentinel(kinds.SameChainSameToken)) {
		t.Fatalf("expected SameChainSameToken, got %v", err)
	}
}

func TestID_Deterministic(t *testing.T) {
	user := []byte{0xAA}
	a := sampleIntent(user)
	b := sampleIntent(user)

	idA := a.ID()
	idB := b.ID()
	if !bytes.Equal(idA[:], idB[:]) {
		t.Error("expected identical intents to produce the same id")
	}

	b.Nonce = 2
	idB2 := b.ID()
	if bytes.Equal(idA[:], idB2[:]) {
		t.Error("expected a different nonce to change the id")
	}
}

func TestSignedDigest_DiffersByDomain(t *testing.T) {
	user := []byte{0xAA}
	in := sampleIntent(user)

	other := DomainSeparator{Name: domain.Name, Version: domain.Version, ChainID: domain.ChainID + 1}
	d1 := in.SignedDigest(domain)
	d2 := in.SignedDigest(other)
	if bytes.Equal(d1[:], d2[:]) {
		t.Error("expected digests to differ across domains")
	}
}
