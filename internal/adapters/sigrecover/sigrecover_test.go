package sigrecover

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsaRecover "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

func TestRecover_RoundTrips(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var digest [32]byte
	if _, err := rand.Read(digest[:]); err != nil {
		t.Fatalf("fill digest: %v", err)
	}

	compact, err := ecdsaRecover.SignCompact(priv, digest[:], false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// compact is [recovery_id+27 || R || S]; our adapter expects
	// [R || S || V], so undo the rearrangement toCompact performs.
	sig := make([]byte, 65)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0] - 27

	wantAddr := addressFromPubKey(priv.PubKey())

	gotAddr, err := New().Recover(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}

	if !bytes.Equal(gotAddr, wantAddr) {
		t.Errorf("recovered address = %x, want %x", gotAddr, wantAddr)
	}
}

func TestRecover_RejectsWrongLength(t *testing.T) {
	var digest [32]byte
	if _, err := New().Recover(digest, []byte{0x01, 0x02}); err == nil {
		t.Error("expected error for short signature")
	}
}
