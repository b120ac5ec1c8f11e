// Package sigrecover implements capabilities.SignatureRecover using
// secp256k1 recoverable signatures, producing an Ethereum-style 20-byte
// address (the low 20 bytes of Keccak-256 of the uncompressed public key)
// so it composes with the domain/digest scheme in internal/intent.
package sigrecover

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsaRecover "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Recoverer recovers a signer address from a digest and a 65-byte
// [R || S || V] recoverable signature.
type Recoverer struct{}

// New constructs a Recoverer. It carries no state; a value receiver would
// do just as well, but the type keeps the constructor symmetric with the
// other capability adapters.
func New() *Recoverer {
	return &Recoverer{}
}

// Recover implements capabilities.SignatureRecover.
func (Recoverer) Recover(digest [32]byte, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("sigrecover: signature must be 65 bytes, got %d", len(sig))
	}

	compact := toCompact(sig)
	pubKey, _, err := ecdsaRecover.RecoverCompact(compact, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sigrecover: recover: %w", err)
	}

	return addressFromPubKey(pubKey), nil
}

// toCompact rearranges an [R || S || V] signature into btcec's compact
// format [recovery_id+27 || R || S].
func toCompact(sig []byte) []byte {
	compact := make([]byte, 65)
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])
	return compact
}

func addressFromPubKey(pubKey *btcec.PublicKey) []byte {
	uncompressed := pubKey.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:]) // drop the 0x04 prefix byte
	digest := h.Sum(nil)
	return digest[len(digest)-20:]
}
