// Package capabilities defines the injection points the core consumes from
// its host: chain transport, bridge transport, signature recovery, time,
// randomness, and storage. The core never speaks a wire protocol itself; it
// calls these narrow interfaces and nothing else.
package capabilities

import (
	"context"
)

// Receipt is the minimal on-chain receipt shape the executor inspects.
// Recipient is the destination of the transaction's primary output, used to
// confirm funds landed with the intent's declared user; it may be nil on
// chains where a single recipient can't be determined unambiguously.
type Receipt struct {
	TxHash        []byte
	BlockNumber   uint64
	Confirmations uint64
	Success       bool
	Recipient     []byte
}

// ChainClient is the per-chain transport the executor and pool layer call
// into for sending and observing transactions. Implementations are expected
// to be safe for concurrent use.
type ChainClient interface {
	ChainID() uint64
	SendTx(ctx context.Context, tx []byte) ([]byte, error)
	WaitConfirmations(ctx context.Context, txHash []byte, n uint64) error
	Call(ctx context.Context, request []byte) ([]byte, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetReceipt(ctx context.Context, txHash []byte) (*Receipt, error)
	// EstimateGasCost returns the native transaction-cost estimate (gas price
	// on account-model chains, fee-per-vbyte times an assumed size on
	// UTXO chains) the executor folds into its per-execution metrics.
	EstimateGasCost(ctx context.Context) (uint64, error)
}

// BridgeClient is the per-protocol bridge transport.
type BridgeClient interface {
	Protocol() string
	SupportedChains() []uint64
	Send(ctx context.Context, message []byte) ([]byte, error)
	Verify(ctx context.Context, message, proof []byte) (bool, error)
	Status(ctx context.Context, messageID []byte) (string, error)
	EstimateFee(ctx context.Context, src, dst uint64, payloadSize int) (uint64, error)
}

// SignatureRecover recovers the signing address from a digest and signature.
// A nil address with a nil error means the signature did not recover to any
// address; callers compare the result against the expected signer.
type SignatureRecover interface {
	Recover(digest [32]byte, sig []byte) ([]byte, error)
}

// Clock returns the current unix time in seconds. Injected so executor
// timeouts and intent-expiry checks are deterministic under test.
type Clock interface {
	Now() uint64
}

// Sleeper performs a cancellable wait, used at every poll/backoff suspension
// point in the executor.
type Sleeper interface {
	Sleep(ctx context.Context, seconds uint64) error
}

// Rng supplies jitter for the MEV delay.
type Rng interface {
	Uint64() uint64
}

// PersistStore is an opaque byte-keyed durable table. The core writes only
// its own records here; schema ownership stays with the caller.
type PersistStore interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

// CacheStore is the same shape as PersistStore but without a durability
// guarantee, used for hot lookups (e.g. reputation snapshots).
type CacheStore interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}
