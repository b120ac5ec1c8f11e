// Package bridgeclient adapts the cross-chain message core in
// internal/bridge to the capabilities.BridgeClient shape the executor
// depends on: message transport rides the underlying chain client, proof
// verification dispatches into bridge.Verify with signature checks bound to
// an injected recoverer.
package bridgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/orbitalfi/intents-core/internal/bridge"
	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/kinds"
)

// wireProof is bridge.Proof minus its SigVerify callback, which cannot
// cross the wire and is rebound locally in Verify.
type wireProof struct {
	Kind ProofKind

	Merkle bridge.MerkleProof
	Root   [32]byte

	Signatures   []bridge.ValidatorSignature
	ValidatorSet [][]byte
	Threshold    int

	CurrentBlock   uint64
	MessageBlock   uint64
	FinalityBlocks uint64
}

// ProofKind re-exports bridge.ProofKind so wireProof stays JSON-encodable
// without importing bridge's unexported details.
type ProofKind = bridge.ProofKind

// Adapter implements capabilities.BridgeClient for one bridge protocol,
// delegating transport to a chain client and verification to bridge.Verify.
type Adapter struct {
	protocol string
	chains   []uint64
	chain    capabilities.ChainClient
	recover  capabilities.SignatureRecover

	mu       sync.Mutex
	statuses map[string]string
}

// New constructs a bridge adapter for protocol over the given supported
// chains, sending messages through chain and verifying signatures with
// recover.
func New(protocol string, chains []uint64, chain capabilities.ChainClient, recover capabilities.SignatureRecover) *Adapter {
	return &Adapter{
		protocol: protocol,
		chains:   chains,
		chain:    chain,
		recover:  recover,
		statuses: make(map[string]string),
	}
}

func (a *Adapter) Protocol() string          { return a.protocol }
func (a *Adapter) SupportedChains() []uint64 { return a.chains }

// Send submits a JSON-encoded bridge.Message as a transaction on the
// underlying chain client and tracks it as Pending.
func (a *Adapter) Send(ctx context.Context, message []byte) ([]byte, error) {
	var msg bridge.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil, kinds.Wrap(kinds.BridgeFailed, "decode message", err)
	}

	txHash, err := a.chain.SendTx(ctx, message)
	if err != nil {
		return nil, kinds.Wrap(kinds.BridgeFailed, "send cross-chain message", err)
	}

	a.mu.Lock()
	a.statuses[string(txHash)] = "Pending"
	a.mu.Unlock()

	return txHash, nil
}

// Verify decodes message and proof and dispatches into bridge.Verify,
// rebinding the proof's signature check to the adapter's recoverer.
func (a *Adapter) Verify(ctx context.Context, message, proof []byte) (bool, error) {
	var msg bridge.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return false, kinds.Wrap(kinds.ProofInvalid, "decode message", err)
	}
	var wp wireProof
	if err := json.Unmarshal(proof, &wp); err != nil {
		return false, kinds.Wrap(kinds.ProofInvalid, "decode proof", err)
	}

	p := bridge.Proof{
		Kind:           wp.Kind,
		Merkle:         wp.Merkle,
		Root:           wp.Root,
		Signatures:     wp.Signatures,
		ValidatorSet:   wp.ValidatorSet,
		Threshold:      wp.Threshold,
		SigVerify:      a.verifySignature,
		CurrentBlock:   wp.CurrentBlock,
		MessageBlock:   wp.MessageBlock,
		FinalityBlocks: wp.FinalityBlocks,
	}

	if err := bridge.Verify(&msg, p); err != nil {
		return false, nil
	}
	return true, nil
}

func (a *Adapter) verifySignature(digest [32]byte, sig bridge.ValidatorSignature) bool {
	recovered, err := a.recover.Recover(digest, sig.Sig)
	if err != nil || recovered == nil {
		return false
	}
	return bytes.Equal(recovered, sig.Validator)
}

// Status reports Executed once the underlying chain client's receipt for
// messageID confirms success, otherwise whatever state Send last recorded.
func (a *Adapter) Status(ctx context.Context, messageID []byte) (string, error) {
	a.mu.Lock()
	status, ok := a.statuses[string(messageID)]
	a.mu.Unlock()
	if !ok {
		return "", kinds.New(kinds.NotFound, "unknown message id")
	}

	receipt, err := a.chain.GetReceipt(ctx, messageID)
	if err == nil && receipt != nil && receipt.Success {
		status = "Executed"
		a.mu.Lock()
		a.statuses[string(messageID)] = status
		a.mu.Unlock()
	}
	return status, nil
}

// EstimateFee delegates to bridge.EstimateFee's pure payload/cross-chain
// cost model.
func (a *Adapter) EstimateFee(ctx context.Context, src, dst uint64, payloadSize int) (uint64, error) {
	return bridge.EstimateFee(src, dst, payloadSize), nil
}
