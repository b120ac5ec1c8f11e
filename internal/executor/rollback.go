package executor

import (
	"context"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

// rollback best-effort unlocks every pending locked asset on the source
// chain. It is idempotent: a confirmed entry is skipped on replay, so
// calling it twice after a partial failure is safe.
func (d *Deps) rollback(c *Context) {
	bg := context.Background()
	var failed bool

	for _, entry := range c.LockedAssets {
		if entry.Confirmed {
			continue
		}
		err := d.withRetry(bg, c, func(attempt int) uint64 { return pow(2, uint64(attempt)) }, func() error {
			txHash, sendErr := d.SourceChain.SendTx(bg, nil)
			if sendErr != nil {
				return sendErr
			}
			return d.SourceChain.WaitConfirmations(bg, txHash, d.SourceConfirmationBlocks)
		})
		if d.Hooks.OnRollback != nil {
			d.Hooks.OnRollback(c, entry, err)
		}
		if err != nil {
			failed = true
			continue
		}
		entry.Confirmed = true
	}

	if failed {
		c.FailReason = kinds.RollbackFailed
	}
}
