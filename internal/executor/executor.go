// Package executor drives one ExecutionContext per accepted intent through
// the cross-chain execution pipeline: source lock, source swap, bridge
// send, bridge confirmation wait, destination swap, final validation, with
// retry/backoff, a global hard timeout, cooperative cancellation, and
// rollback on failure.
package executor

import (
	"bytes"
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/pool"
	"github.com/orbitalfi/intents-core/internal/reputation"
)

// State is one of the eight pipeline stages, Validating through Completed,
// or the Failed terminal state (FailReason distinguishes the cause).
type State int

const (
	StateValidating State = iota
	StateLockingSource
	StateExecutingSourceSwap
	StateInitiatingBridge
	StateWaitingForBridgeConfirmation
	StateExecutingDestinationSwap
	StateFinalValidation
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateLockingSource:
		return "locking_source"
	case StateExecutingSourceSwap:
		return "executing_source_swap"
	case StateInitiatingBridge:
		return "initiating_bridge"
	case StateWaitingForBridgeConfirmation:
		return "waiting_for_bridge_confirmation"
	case StateExecutingDestinationSwap:
		return "executing_destination_swap"
	case StateFinalValidation:
		return "final_validation"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	MaxRetryAttempts        = 3
	MaxConcurrentExecutions = 10
	ExecutionTimeout        = 300 * time.Second
	MEVDelayMinSec          = 2
	MEVDelayMaxSec          = 7
	BridgePollInterval      = 10 * time.Second
	BridgeMaxPolls          = 30
)

// Route is the (possibly empty) source-leg and destination-leg swap plan
// for one intent; a leg with TokenIn == TokenOut is skipped.
type Route struct {
	SourcePool              *pool.Pool
	SourceTokenIn, SourceTokenOut int
	DestPool                *pool.Pool
	DestTokenIn, DestTokenOut     int
}

func (r Route) hasSourceLeg() bool {
	return r.SourcePool != nil && r.SourceTokenIn != r.SourceTokenOut
}

func (r Route) hasDestLeg() bool {
	return r.DestPool != nil && r.DestTokenIn != r.DestTokenOut
}

// LockEntry is a pending refund instruction for one (chain, token) locked
// during forward progress.
type LockEntry struct {
	Chain     uint64
	Token     []byte
	Amount    *uint256.Int
	Confirmed bool
}

// Context is the per-intent execution state. Only one driver goroutine
// ever touches a given Context.
type Context struct {
	IntentID      [32]byte
	Solver        []byte
	SourceChainID uint64
	DestChainID   uint64
	User          []byte
	DestToken     []byte
	MinDestAmount *uint256.Int
	Exposure      *uint256.Int
	Route         Route

	State      State
	FailReason kinds.Kind

	StartedAt    uint64
	CompletedAt  uint64
	MEVDelaySec  uint64
	RetryCount   int
	LockedAssets []*LockEntry

	DestAmount      *uint256.Int
	DestTxHash      []byte
	ExecutionBlock  uint64
	BridgeMessageID []byte
	Profit          *uint256.Int
}

// Hooks lets the host observe state transitions and rollback attempts
// without the executor depending on any particular metrics or logging
// implementation.
type Hooks struct {
	OnStateChange func(ctx *Context, from, to State)
	OnRollback    func(ctx *Context, entry *LockEntry, err error)
}

// Deps bundles the injected collaborators the driver calls into.
type Deps struct {
	SourceChain capabilities.ChainClient
	DestChain   capabilities.ChainClient
	Bridge      capabilities.BridgeClient
	Clock       capabilities.Clock
	Sleeper     capabilities.Sleeper
	Rng         capabilities.Rng
	Reputation  *reputation.Manager
	Hooks       Hooks

	SourceConfirmationBlocks uint64
	DestConfirmationBlocks   uint64
}

func (d *Deps) transition(c *Context, to State) {
	from := c.State
	c.State = to
	if d.Hooks.OnStateChange != nil {
		d.Hooks.OnStateChange(c, from, to)
	}
}

func (d *Deps) fail(c *Context, reason kinds.Kind) error {
	c.FailReason = reason
	d.transition(c, StateFailed)
	d.rollback(c)
	d.onFailure(c, reason)
	return kinds.New(reason, "execution failed: "+string(reason))
}

// onFailure maps a terminal failure reason to the slashing taxonomy per
// the executor/reputation integration contract. LockFailed is exempt: the
// solver never actually moved funds.
func (d *Deps) onFailure(c *Context, reason kinds.Kind) {
	if d.Reputation == nil || reason == kinds.LockFailed {
		return
	}

	var slashReason reputation.SlashReason
	switch reason {
	case kinds.Timeout:
		slashReason = reputation.SlashTimeout
	case kinds.SourceSwapFailed, kinds.DestSwapFailed, kinds.BridgeFailed, kinds.BridgeTimeout:
		slashReason = reputation.SlashFailedExecution
	case kinds.InvalidExecution:
		slashReason = reputation.SlashPartialFill
	default:
		return
	}
	d.Reputation.RecordFailure(c.IntentID, c.Solver, slashReason, c.Exposure, d.Clock.Now())
}

// Run advances a Context through the full pipeline, honoring cancellation
// at every suspension point and a 300-second global hard timeout.
func (d *Deps) Run(ctx context.Context, c *Context) error {
	deadline, cancel := context.WithTimeout(ctx, ExecutionTimeout)
	defer cancel()

	c.StartedAt = d.Clock.Now()
	d.transition(c, StateValidating)

	steps := []func(context.Context, *Context) error{
		d.stepValidating,
		d.stepLockingSource,
		d.stepExecutingSourceSwap,
		d.stepInitiatingBridge,
		d.stepWaitingForBridgeConfirmation,
		d.stepExecutingDestinationSwap,
		d.stepFinalValidation,
	}

	for _, step := range steps {
		if err := checkCancelled(deadline); err != nil {
			c.FailReason = kinds.Timeout
			d.transition(c, StateFailed)
			d.rollback(c)
			return err
		}
		if err := step(deadline, c); err != nil {
			return err
		}
	}

	c.CompletedAt = d.Clock.Now()
	d.transition(c, StateCompleted)
	d.onSuccess(c)
	return nil
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return kinds.Wrap(kinds.Timeout, "execution cancelled or timed out", ctx.Err())
	default:
		return nil
	}
}

func (d *Deps) stepValidating(ctx context.Context, c *Context) error {
	if c.MinDestAmount == nil || c.MinDestAmount.IsZero() {
		return d.fail(c, kinds.InvalidIntent)
	}
	return nil
}

// withRetry runs op once plus up to MaxRetryAttempts retries, sleeping
// backoffSec(attempt) seconds between attempts, honoring ctx cancellation at
// each sleep.
func (d *Deps) withRetry(ctx context.Context, c *Context, backoffSec func(attempt int) uint64, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= MaxRetryAttempts; attempt++ {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == MaxRetryAttempts {
			break
		}
		c.RetryCount++
		if err := d.Sleeper.Sleep(ctx, backoffSec(attempt+1)); err != nil {
			return err
		}
	}
	return lastErr
}

func pow(base, exp uint64) uint64 {
	result := uint64(1)
	for i := uint64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func (d *Deps) stepLockingSource(ctx context.Context, c *Context) error {
	jitterRange := uint64(MEVDelayMaxSec - MEVDelayMinSec + 1)
	c.MEVDelaySec = MEVDelayMinSec + d.Rng.Uint64()%jitterRange
	if err := d.Sleeper.Sleep(ctx, c.MEVDelaySec); err != nil {
		return err
	}

	d.transition(c, StateLockingSource)

	err := d.withRetry(ctx, c, func(attempt int) uint64 { return pow(2, uint64(attempt)) }, func() error {
		txHash, sendErr := d.SourceChain.SendTx(ctx, nil)
		if sendErr != nil {
			return sendErr
		}
		if confirmErr := d.SourceChain.WaitConfirmations(ctx, txHash, d.SourceConfirmationBlocks); confirmErr != nil {
			return confirmErr
		}
		c.LockedAssets = append(c.LockedAssets, &LockEntry{
			Chain:  c.SourceChainID,
			Amount: new(uint256.Int).Set(c.Exposure),
		})
		return nil
	})
	if err != nil {
		return d.fail(c, kinds.LockFailed)
	}
	return nil
}

func (d *Deps) stepExecutingSourceSwap(ctx context.Context, c *Context) error {
	d.transition(c, StateExecutingSourceSwap)
	if !c.Route.hasSourceLeg() {
		return nil
	}
	_, err := c.Route.SourcePool.ExecuteSwap(c.Route.SourceTokenIn, c.Route.SourceTokenOut, c.Exposure, uint256.NewInt(1))
	if err != nil {
		return d.fail(c, kinds.SourceSwapFailed)
	}
	return nil
}

func (d *Deps) stepInitiatingBridge(ctx context.Context, c *Context) error {
	d.transition(c, StateInitiatingBridge)

	err := d.withRetry(ctx, c, func(attempt int) uint64 { return pow(3, uint64(attempt)) }, func() error {
		messageID, sendErr := d.Bridge.Send(ctx, nil)
		if sendErr != nil {
			return sendErr
		}
		c.BridgeMessageID = messageID
		return nil
	})
	if err != nil {
		return d.fail(c, kinds.BridgeFailed)
	}
	return nil
}

func (d *Deps) stepWaitingForBridgeConfirmation(ctx context.Context, c *Context) error {
	d.transition(c, StateWaitingForBridgeConfirmation)

	for poll := 0; poll < BridgeMaxPolls; poll++ {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		status, err := d.Bridge.Status(ctx, c.BridgeMessageID)
		if err == nil && status == "Executed" {
			block, blockErr := d.DestChain.GetBlockNumber(ctx)
			if blockErr == nil {
				c.ExecutionBlock = block
			}
			return nil
		}
		if err := d.Sleeper.Sleep(ctx, uint64(BridgePollInterval.Seconds())); err != nil {
			return err
		}
	}
	return d.fail(c, kinds.BridgeTimeout)
}

func (d *Deps) stepExecutingDestinationSwap(ctx context.Context, c *Context) error {
	d.transition(c, StateExecutingDestinationSwap)
	if !c.Route.hasDestLeg() {
		c.DestAmount = c.MinDestAmount
	} else {
		result, err := c.Route.DestPool.ExecuteSwap(c.Route.DestTokenIn, c.Route.DestTokenOut, c.Exposure, c.MinDestAmount)
		if err != nil {
			return d.fail(c, kinds.DestSwapFailed)
		}
		c.DestAmount = result.AmountOut
	}

	txHash, err := d.DestChain.SendTx(ctx, nil)
	if err != nil {
		return d.fail(c, kinds.DestSwapFailed)
	}
	c.DestTxHash = txHash
	return nil
}

func (d *Deps) stepFinalValidation(ctx context.Context, c *Context) error {
	d.transition(c, StateFinalValidation)

	currentBlock, err := d.DestChain.GetBlockNumber(ctx)
	if err != nil {
		return d.fail(c, kinds.InvalidExecution)
	}
	if currentBlock < c.ExecutionBlock || currentBlock-c.ExecutionBlock < d.DestConfirmationBlocks {
		return d.fail(c, kinds.InvalidExecution)
	}
	if c.DestAmount == nil || c.DestAmount.Cmp(c.MinDestAmount) < 0 {
		return d.fail(c, kinds.InvalidExecution)
	}

	receipt, err := d.DestChain.GetReceipt(ctx, c.DestTxHash)
	if err != nil || !receipt.Success {
		return d.fail(c, kinds.InvalidExecution)
	}
	if len(receipt.Recipient) > 0 && len(c.User) > 0 && !bytes.Equal(receipt.Recipient, c.User) {
		return d.fail(c, kinds.InvalidExecution)
	}
	return nil
}

func (d *Deps) onSuccess(c *Context) {
	if d.Reputation == nil {
		return
	}
	execTime := c.CompletedAt - c.StartedAt
	profit := new(uint256.Int)
	if c.DestAmount.Cmp(c.MinDestAmount) > 0 {
		profit = new(uint256.Int).Sub(c.DestAmount, c.MinDestAmount)
	}
	c.Profit = profit
	d.Reputation.RecordSuccess(reputation.ExecutionReport{
		IntentID:         c.IntentID,
		Solver:           c.Solver,
		Success:          true,
		ExecutionTimeSec: execTime,
		ExpectedOutput:   c.MinDestAmount,
		ActualOutput:     c.DestAmount,
		Profit:           profit,
		Timestamp:        c.CompletedAt,
	})
}
