// Package systime provides the production capabilities.Clock,
// capabilities.Sleeper, and capabilities.Rng the executor runs against
// outside of tests.
package systime

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Clock reads the wall clock in unix seconds.
type Clock struct{}

func (Clock) Now() uint64 { return uint64(time.Now().Unix()) }

// Sleeper waits for the given duration or until ctx is cancelled.
type Sleeper struct{}

func (Sleeper) Sleep(ctx context.Context, seconds uint64) error {
	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rng draws MEV-delay jitter from crypto/rand rather than a predictable
// PRNG, since the delay is a scheduling decision an adversary should not be
// able to anticipate.
type Rng struct{}

func (Rng) Uint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint64(b[:])
}
