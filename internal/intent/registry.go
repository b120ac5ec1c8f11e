package intent

import (
	"sync"

	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/kinds"
)

// Registry tracks submitted intents by canonical id. It backs the
// submit_intent / cancel_intent / intent_status library ops.
type Registry struct {
	mu      sync.RWMutex
	domain  DomainSeparator
	recover capabilities.SignatureRecover
	records map[[32]byte]*Record
}

// NewRegistry constructs an empty registry bound to a signing domain and a
// signature-recovery capability.
func NewRegistry(domain DomainSeparator, recover capabilities.SignatureRecover) *Registry {
	return &Registry{
		domain:  domain,
		recover: recover,
		records: make(map[[32]byte]*Record),
	}
}

// Submit validates an intent and stores it as Created, returning its
// canonical id.
func (r *Registry) Submit(in *Intent, now uint64) ([32]byte, error) {
	if err := in.Validate(r.domain, now, r.recover); err != nil {
		return [32]byte{}, err
	}

	id := in.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &Record{Intent: in, ID: id, Status: StatusCreated}
	return id, nil
}

// Cancel transitions a Created intent to Cancelled. Any other status is
// rejected since matched or executing intents are no longer the user's to
// unilaterally withdraw.
func (r *Registry) Cancel(id [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return kinds.New(kinds.InvalidIntent, "intent not found")
	}
	if rec.Status != StatusCreated {
		return kinds.New(kinds.InvalidExecution, "only a created intent can be cancelled")
	}
	rec.Status = StatusCancelled
	return nil
}

// Status returns the current status of an intent by id.
func (r *Registry) Status(id [32]byte) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return 0, kinds.New(kinds.InvalidIntent, "intent not found")
	}
	return rec.Status, nil
}

// Get returns the full record by id, for use by the auction/executor layers.
func (r *Registry) Get(id [32]byte) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, kinds.New(kinds.InvalidIntent, "intent not found")
	}
	return rec, nil
}

// SetStatus transitions an intent's status, used by the auction and
// executor components as an intent moves through matching and execution.
func (r *Registry) SetStatus(id [32]byte, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return kinds.New(kinds.InvalidIntent, "intent not found")
	}
	rec.Status = status
	return nil
}
