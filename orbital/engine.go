// Package orbital is the public library surface: it wires the pool,
// tick, intent, reputation, auction, executor, bridge, and metrics
// packages together behind the operation set a host process calls.
package orbital

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/auction"
	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/executor"
	"github.com/orbitalfi/intents-core/internal/intent"
	"github.com/orbitalfi/intents-core/internal/kinds"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
	"github.com/orbitalfi/intents-core/internal/metrics"
	"github.com/orbitalfi/intents-core/internal/pool"
	"github.com/orbitalfi/intents-core/internal/reputation"
	"github.com/orbitalfi/intents-core/internal/tickengine"
)

// Engine bundles every core component behind the operation set named in
// the external-interfaces section of the system it implements.
type Engine struct {
	mu sync.RWMutex

	Router     *pool.Router
	Intents    *intent.Registry
	Reputation *reputation.Manager
	Auctions   *auction.Manager
	Metrics    *metrics.Monitor

	executorDeps *executor.Deps

	contexts map[[32]byte]*executor.Context
}

// Config seeds an Engine with the collaborators the core never constructs
// itself.
type Config struct {
	Domain   intent.DomainSeparator
	Recover  capabilities.SignatureRecover
	MinBond  *uint256.Int
	Executor executor.Deps
	// Cache, if set, backs hot-path reputation reads (e.g. TopSolvers).
	Cache capabilities.CacheStore
}

// New wires a fresh Engine from its configuration.
func New(cfg Config) *Engine {
	reps := reputation.NewManager(cfg.MinBond)
	if cfg.Cache != nil {
		reps.SetCache(cfg.Cache)
	}
	e := &Engine{
		Router:     pool.NewRouter(),
		Intents:    intent.NewRegistry(cfg.Domain, cfg.Recover),
		Reputation: reps,
		Auctions:   auction.NewManager(reps),
		Metrics:    metrics.NewMonitor(),
		contexts:   make(map[[32]byte]*executor.Context),
	}
	deps := cfg.Executor
	deps.Reputation = reps
	e.executorDeps = &deps
	return e
}

// CreatePool constructs a pool and registers it with the router.
func (e *Engine) CreatePool(id uint64, tokenIDs []uint64, reserves []*uint256.Int, curve mathkernel.Curve, invariant *uint256.Int, feeBp uint64) (*pool.Pool, error) {
	p, err := pool.New(id, tokenIDs, reserves, curve, invariant, feeBp)
	if err != nil {
		return nil, err
	}
	e.Router.Register(p)
	return p, nil
}

// Pool returns the pool registered under id, if any.
func (e *Engine) Pool(id uint64) (*pool.Pool, bool) {
	return e.Router.Get(id)
}

func (e *Engine) poolAndIndices(p *pool.Pool, tokenInID, tokenOutID uint64) (int, int, error) {
	inIdx, ok := p.IndexOf(tokenInID)
	if !ok {
		return 0, 0, kinds.New(kinds.IndexOutOfBounds, "token_in not in pool")
	}
	outIdx, ok := p.IndexOf(tokenOutID)
	if !ok {
		return 0, 0, kinds.New(kinds.IndexOutOfBounds, "token_out not in pool")
	}
	return inIdx, outIdx, nil
}

// QuoteSwap quotes a single-pool swap by external token id without mutating
// pool state.
func (e *Engine) QuoteSwap(p *pool.Pool, tokenInID, tokenOutID uint64, amountIn *uint256.Int) (pool.SwapResult, error) {
	inIdx, outIdx, err := e.poolAndIndices(p, tokenInID, tokenOutID)
	if err != nil {
		return pool.SwapResult{}, err
	}
	return p.QuoteSwap(inIdx, outIdx, amountIn)
}

// ExecuteSwap performs a single-pool swap by external token id, rejecting it
// if the realized output falls below minAmountOut.
func (e *Engine) ExecuteSwap(p *pool.Pool, tokenInID, tokenOutID uint64, amountIn, minAmountOut *uint256.Int) (pool.SwapResult, error) {
	inIdx, outIdx, err := e.poolAndIndices(p, tokenInID, tokenOutID)
	if err != nil {
		return pool.SwapResult{}, err
	}
	return p.ExecuteSwap(inIdx, outIdx, amountIn, minAmountOut)
}

// QuoteMultiHop quotes a swap across a fixed in-pool token path.
func (e *Engine) QuoteMultiHop(p *pool.Pool, path []uint64, amountIn *uint256.Int) (pool.MultiHopResult, error) {
	indices := make([]int, len(path))
	for i, tokenID := range path {
		idx, ok := p.IndexOf(tokenID)
		if !ok {
			return pool.MultiHopResult{}, kinds.New(kinds.IndexOutOfBounds, "token not in pool")
		}
		indices[i] = idx
	}
	return p.QuoteMultiHop(indices, amountIn)
}

// FindRoute searches the router's pool registry for the best path between
// two external token ids.
func (e *Engine) FindRoute(tokenIn, tokenOut uint64, amountIn *uint256.Int) (pool.Route, error) {
	return e.Router.FindRoute(tokenIn, tokenOut, amountIn)
}

// AddTick inserts a concentrated-liquidity tick into a pool.
func (e *Engine) AddTick(p *pool.Pool, t *tickengine.Tick) {
	p.AddTick(t)
}

// RemoveTick deletes a tick from a pool by id.
func (e *Engine) RemoveTick(p *pool.Pool, tickID uint64) error {
	return p.RemoveTick(tickID)
}

// RecommendTick proposes a tick placement for a target liquidity depth and
// tolerance.
func (e *Engine) RecommendTick(totalLiquidity *uint256.Int, toleranceBp uint32, tokenCount int) (tickengine.TickRecommendation, error) {
	return tickengine.OptimizeTickPlacement(totalLiquidity, toleranceBp, tokenCount)
}

// SubmitIntent validates and registers a new intent, returning its
// canonical id.
func (e *Engine) SubmitIntent(in *intent.Intent, now uint64) ([32]byte, error) {
	return e.Intents.Submit(in, now)
}

// CancelIntent cancels a still-unmatched intent.
func (e *Engine) CancelIntent(id [32]byte) error {
	return e.Intents.Cancel(id)
}

// IntentStatus returns an intent's current lifecycle status.
func (e *Engine) IntentStatus(id [32]byte) (intent.Status, error) {
	return e.Intents.Status(id)
}

// RegisterSolver onboards a solver with an initial bond and supported
// chains.
func (e *Engine) RegisterSolver(solver []byte, bond *uint256.Int, chains []uint64, now uint64) error {
	return e.Reputation.Register(solver, bond, chains, now)
}

// AddBond tops up a registered solver's bond.
func (e *Engine) AddBond(solver []byte, amount *uint256.Int) error {
	return e.Reputation.AddBond(solver, amount)
}

// SolverInfo returns a solver's reputation record.
func (e *Engine) SolverInfo(solver []byte) (*reputation.Record, error) {
	return e.Reputation.Get(solver)
}

// TopSolvers returns the highest-ranked solvers by composite score.
func (e *Engine) TopSolvers(ctx context.Context, limit int) []*reputation.Record {
	return e.Reputation.TopSolvers(ctx, limit)
}

// OpenAuction starts a quote-collection window for an intent.
func (e *Engine) OpenAuction(intentID [32]byte, ttlSeconds, now uint64) (*auction.Record, error) {
	return e.Auctions.StartAuction(intentID, ttlSeconds, now)
}

// SubmitQuote submits a solver's quote into an open auction.
func (e *Engine) SubmitQuote(intentID [32]byte, minDestAmount *uint256.Int, q auction.Quote, srcChain, dstChain, now uint64) error {
	return e.Auctions.SubmitQuote(intentID, minDestAmount, q, srcChain, dstChain, now)
}

// SettleAuction picks the winning quote (or expires the auction) and, on a
// win, transitions the intent to Matched and begins executing it.
func (e *Engine) SettleAuction(ctx context.Context, intentID [32]byte, route executor.Route, user, destToken []byte, minDestAmount *uint256.Int) (*auction.Quote, error) {
	winner, err := e.Auctions.Settle(intentID)
	if err != nil {
		return nil, err
	}

	if err := e.Intents.SetStatus(intentID, intent.StatusMatched); err != nil {
		return winner, err
	}

	rec, err := e.Intents.Get(intentID)
	if err != nil {
		return winner, err
	}

	execCtx := &executor.Context{
		IntentID:      intentID,
		Solver:        winner.Solver,
		SourceChainID: rec.Intent.SourceChainID,
		DestChainID:   rec.Intent.DestChainID,
		User:          user,
		DestToken:     destToken,
		MinDestAmount: minDestAmount,
		Exposure:      minDestAmount,
		Route:         route,
	}

	e.mu.Lock()
	e.contexts[intentID] = execCtx
	e.mu.Unlock()

	go e.runExecution(ctx, intentID, execCtx)

	return winner, nil
}

func (e *Engine) runExecution(ctx context.Context, intentID [32]byte, execCtx *executor.Context) {
	startedAt := e.executorDeps.Clock.Now()
	_ = e.Intents.SetStatus(intentID, intent.StatusExecuting)

	runErr := e.executorDeps.Run(ctx, execCtx)

	finalStatus := intent.StatusExecuted
	if runErr != nil {
		finalStatus = intent.StatusFailed
	}
	_ = e.Intents.SetStatus(intentID, finalStatus)

	var profit int64
	if execCtx.Profit != nil {
		profit = int64(execCtx.Profit.Uint64())
	}

	var gas uint64
	if g, err := e.executorDeps.DestChain.EstimateGasCost(ctx); err == nil {
		gas = g
	}
	var bridgeFee uint64
	if f, err := e.executorDeps.Bridge.EstimateFee(ctx, execCtx.SourceChainID, execCtx.DestChainID, 0); err == nil {
		bridgeFee = f
	}

	bridgeFailure := execCtx.FailReason == kinds.BridgeFailed || execCtx.FailReason == kinds.BridgeTimeout

	e.Metrics.Record(metrics.ExecutionRecord{
		IntentID:      intentID,
		StartedAt:     startedAt,
		CompletedAt:   e.executorDeps.Clock.Now(),
		FinalState:    execCtx.State.String(),
		Gas:           gas,
		BridgeFee:     bridgeFee,
		Profit:        profit,
		SourceChain:   execCtx.SourceChainID,
		DestChain:     execCtx.DestChainID,
		Protocol:      e.executorDeps.Bridge.Protocol(),
		MEVDelaySec:   execCtx.MEVDelaySec,
		RetryCount:    execCtx.RetryCount,
		Failed:        runErr != nil,
		Cancelled:     runErr != nil && execCtx.FailReason == kinds.Cancelled,
		TimedOut:      runErr != nil && (execCtx.FailReason == kinds.Timeout || execCtx.FailReason == kinds.BridgeTimeout),
		BridgeFailure: bridgeFailure,
		ErrorText:     errText(runErr),
	})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// MetricsSnapshot returns a copy of the current aggregate metrics.
func (e *Engine) MetricsSnapshot() metrics.Aggregates {
	return e.Metrics.Snapshot()
}

// ActiveContexts returns the execution contexts currently tracked by the
// engine, keyed by intent id.
func (e *Engine) ActiveContexts() map[[32]byte]*executor.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[[32]byte]*executor.Context, len(e.contexts))
	for k, v := range e.contexts {
		out[k] = v
	}
	return out
}
