package bridge

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

const defaultHeaderRingSize = 1000

// Header is a minimal block header sufficient for state verification and
// parent-hash chaining.
type Header struct {
	ParentHash       [32]byte
	StateRoot        [32]byte
	TransactionsRoot [32]byte
	ReceiptsRoot     [32]byte
	Number           uint64
	Timestamp        uint64
	Extra            []byte
}

// Hash deterministically encodes the header fields and hashes them.
func (h *Header) Hash() [32]byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(h.ParentHash[:])
	hasher.Write(h.StateRoot[:])
	hasher.Write(h.TransactionsRoot[:])
	hasher.Write(h.ReceiptsRoot[:])
	var u64Buf [8]byte
	binary.LittleEndian.PutUint64(u64Buf[:], h.Number)
	hasher.Write(u64Buf[:])
	binary.LittleEndian.PutUint64(u64Buf[:], h.Timestamp)
	hasher.Write(u64Buf[:])
	hasher.Write(h.Extra)

	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// LightClient holds a bounded ring of trusted headers for one chain.
type LightClient struct {
	mu      sync.RWMutex
	headers []Header
	maxSize int
}

// NewLightClient seeds a light client with a genesis header.
func NewLightClient(genesis Header) *LightClient {
	return &LightClient{headers: []Header{genesis}, maxSize: defaultHeaderRingSize}
}

// AddHeader appends a new header iff its parent hash matches the current
// tip's hash. Oldest headers are evicted once the ring is full.
func (c *LightClient) AddHeader(h Header) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.headers[len(c.headers)-1]
	if h.ParentHash != tip.Hash() {
		return kinds.New(kinds.ProofInvalid, "header parent hash does not match trusted tip")
	}

	c.headers = append(c.headers, h)
	if len(c.headers) > c.maxSize {
		c.headers = c.headers[len(c.headers)-c.maxSize:]
	}
	return nil
}

// HeaderAt returns the trusted header at a given height, if still retained.
func (c *LightClient) HeaderAt(height uint64) (Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, h := range c.headers {
		if h.Number == height {
			return h, true
		}
	}
	return Header{}, false
}

// VerifyState succeeds iff the trusted header at height has a matching
// state root.
func (c *LightClient) VerifyState(height uint64, stateRoot [32]byte) bool {
	h, ok := c.HeaderAt(height)
	if !ok {
		return false
	}
	return h.StateRoot == stateRoot
}

// Tip returns the most recent trusted header.
func (c *LightClient) Tip() Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[len(c.headers)-1]
}
