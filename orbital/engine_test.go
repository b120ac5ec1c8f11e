package orbital

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/auction"
	"github.com/orbitalfi/intents-core/internal/capabilities"
	"github.com/orbitalfi/intents-core/internal/executor"
	"github.com/orbitalfi/intents-core/internal/intent"
	"github.com/orbitalfi/intents-core/internal/mathkernel"
)

type fakeRecover struct{ addr []byte }

func (f fakeRecover) Recover(digest [32]byte, sig []byte) ([]byte, error) { return f.addr, nil }

type fakeClock struct{ t uint64 }

func (f *fakeClock) Now() uint64 { return f.t }

type fakeSleeper struct{}

func (fakeSleeper) Sleep(ctx context.Context, seconds uint64) error { return nil }

type fakeRng struct{}

func (fakeRng) Uint64() uint64 { return 3 }

type fakeChain struct {
	id       uint64
	blockNum uint64
}

func (f *fakeChain) ChainID() uint64 { return f.id }
func (f *fakeChain) SendTx(ctx context.Context, tx []byte) ([]byte, error) {
	return []byte{0x01}, nil
}
func (f *fakeChain) WaitConfirmations(ctx context.Context, txHash []byte, n uint64) error { return nil }
func (f *fakeChain) Call(ctx context.Context, request []byte) ([]byte, error)             { return nil, nil }
func (f *fakeChain) GetBlockNumber(ctx context.Context) (uint64, error)                   { return f.blockNum, nil }
func (f *fakeChain) GetReceipt(ctx context.Context, txHash []byte) (*capabilities.Receipt, error) {
	return &capabilities.Receipt{Success: true}, nil
}
func (f *fakeChain) EstimateGasCost(ctx context.Context) (uint64, error) { return 0, nil }

type fakeBridge struct{ status string }

func (f *fakeBridge) Protocol() string          { return "test" }
func (f *fakeBridge) SupportedChains() []uint64 { return nil }
func (f *fakeBridge) Send(ctx context.Context, message []byte) ([]byte, error) {
	return []byte{0x02}, nil
}
func (f *fakeBridge) Verify(ctx context.Context, message, proof []byte) (bool, error) {
	return true, nil
}
func (f *fakeBridge) Status(ctx context.Context, messageID []byte) (string, error) {
	return f.status, nil
}
func (f *fakeBridge) EstimateFee(ctx context.Context, src, dst uint64, payloadSize int) (uint64, error) {
	return 0, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Config{
		Domain:   intent.DomainSeparator{Name: "test", Version: "1", ChainID: 1},
		Recover:  fakeRecover{addr: []byte{0xAA}},
		MinBond:  uint256.NewInt(1),
		Executor: executorDepsFixture(),
	})
}

func executorDepsFixture() executor.Deps {
	return executor.Deps{
		SourceChain:              &fakeChain{id: 1, blockNum: 100},
		DestChain:                &fakeChain{id: 137, blockNum: 100},
		Bridge:                   &fakeBridge{status: "Executed"},
		Clock:                    &fakeClock{t: 1000},
		Sleeper:                  fakeSleeper{},
		Rng:                      fakeRng{},
		SourceConfirmationBlocks: 1,
		DestConfirmationBlocks:   0,
	}
}

func executorRouteFixture() executor.Route {
	return executor.Route{}
}

func TestEngine_CreatePoolAndQuoteSwap(t *testing.T) {
	e := newTestEngine(t)

	reserves := []*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}
	invariant := new(uint256.Int).Mul(uint256.NewInt(2), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(12)))
	p, err := e.CreatePool(1, []uint64{100, 200}, reserves, mathkernel.Curve{Kind: mathkernel.CurveSphere}, invariant, 30)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}

	result, err := e.QuoteSwap(p, 100, 200, uint256.NewInt(10_000))
	if err != nil {
		t.Fatalf("quote swap: %v", err)
	}
	if result.AmountOut.IsZero() {
		t.Error("expected nonzero quoted output")
	}
}

func TestEngine_SubmitIntentAndRegisterSolver(t *testing.T) {
	e := newTestEngine(t)

	in := &intent.Intent{
		User:          []byte{0xAA},
		SourceChainID: 1,
		DestChainID:   137,
		SourceToken:   []byte{0x01},
		DestToken:     []byte{0x02},
		SourceAmount:  uint256.NewInt(1000),
		MinDestAmount: uint256.NewInt(900),
		Deadline:      2000,
		Nonce:         1,
		Signature:     []byte{0x00},
	}

	id, err := e.SubmitIntent(in, 1000)
	if err != nil {
		t.Fatalf("submit intent: %v", err)
	}

	status, err := e.IntentStatus(id)
	if err != nil || status != intent.StatusCreated {
		t.Fatalf("status = %v/%v, want Created/nil", status, err)
	}

	if err := e.RegisterSolver([]byte{0xBB}, uint256.NewInt(1000), []uint64{1, 137}, 1000); err != nil {
		t.Fatalf("register solver: %v", err)
	}
	info, err := e.SolverInfo([]byte{0xBB})
	if err != nil || info.Score != 5000 {
		t.Fatalf("solver info = %+v/%v", info, err)
	}
}

func TestEngine_AuctionSettleDrivesExecution(t *testing.T) {
	e := newTestEngine(t)

	in := &intent.Intent{
		User:          []byte{0xAA},
		SourceChainID: 1,
		DestChainID:   137,
		SourceToken:   []byte{0x01},
		DestToken:     []byte{0x02},
		SourceAmount:  uint256.NewInt(1000),
		MinDestAmount: uint256.NewInt(900),
		Deadline:      2000,
		Nonce:         1,
		Signature:     []byte{0x00},
	}
	id, err := e.SubmitIntent(in, 1000)
	if err != nil {
		t.Fatalf("submit intent: %v", err)
	}

	if err := e.RegisterSolver([]byte{0xBB}, uint256.NewInt(1000), []uint64{1, 137}, 1000); err != nil {
		t.Fatalf("register solver: %v", err)
	}

	if _, err := e.OpenAuction(id, 3600, 1000); err != nil {
		t.Fatalf("open auction: %v", err)
	}
	quote := auction.Quote{Solver: []byte{0xBB}, DestAmount: uint256.NewInt(950), ExecSeconds: 30, SubmittedAt: 1000}
	if err := e.SubmitQuote(id, uint256.NewInt(900), quote, 1, 137, 1001); err != nil {
		t.Fatalf("submit quote: %v", err)
	}

	winner, err := e.SettleAuction(context.Background(), id, executorRouteFixture(), in.User, in.DestToken, in.MinDestAmount)
	if err != nil {
		t.Fatalf("settle auction: %v", err)
	}
	if string(winner.Solver) != string([]byte{0xBB}) {
		t.Errorf("winner solver = %x, want %x", winner.Solver, []byte{0xBB})
	}

	// Execution runs asynchronously; give the goroutine a moment to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, _ := e.IntentStatus(id)
		if status == intent.StatusExecuted || status == intent.StatusFailed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("execution did not reach a terminal status in time")
}
