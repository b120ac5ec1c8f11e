package tickengine

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/mathkernel"
)

func reservePoint(vals ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(vals))
	for i, v := range vals {
		out[i] = uint256.NewInt(v)
	}
	return out
}

func newTick(id, planeConstant, liquidity uint64, depegBp uint32) *Tick {
	return &Tick{
		ID:            id,
		PlaneConstant: uint256.NewInt(planeConstant),
		Liquidity:     uint256.NewInt(liquidity),
		FeeGrowth:     new(uint256.Int),
		DepegLimitBp:  depegBp,
	}
}

func TestIsInteriorToTick(t *testing.T) {
	reserves := reservePoint(100, 100, 100)
	tick := newTick(1, 400, 1000, 9500)

	interior, err := IsInterior(reserves, tick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !interior {
		t.Error("expected reserves to be interior to the tick")
	}
}

func TestIsOnBoundary(t *testing.T) {
	reserves := reservePoint(200, 200)
	tick := newTick(1, 400, 1000, 9500)

	onBoundary, err := IsOnBoundary(reserves, tick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !onBoundary {
		t.Error("expected reserves to be on the tick boundary")
	}
}

func TestFindNextCrossing(t *testing.T) {
	start := reservePoint(100, 100, 100)
	end := reservePoint(150, 150, 150)
	tick := newTick(1, 400, 1000, 9500)

	idx, found, err := FindNextCrossing(start, end, []*Tick{tick})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a crossing to be found")
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
}

func TestFindNextCrossing_NoTicks(t *testing.T) {
	start := reservePoint(100, 100)
	end := reservePoint(150, 150)

	_, found, err := FindNextCrossing(start, end, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no crossing with an empty tick set")
	}
}

func TestCrossingFraction_Bounded(t *testing.T) {
	start := reservePoint(100, 100)
	end := reservePoint(200, 200)
	tick := newTick(1, 100, 1000, 9500)

	frac, err := CrossingFraction(start, end, tick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frac.Cmp(mathkernel.Precision) > 0 {
		t.Errorf("crossing fraction %v exceeds precision", frac)
	}
}

func TestCalculateCapitalEfficiency_AboveIdentity(t *testing.T) {
	tick := newTick(1, 9500, 1000000, 9500)

	eff, err := CapitalEfficiency(tick, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eff <= 10000 {
		t.Errorf("efficiency = %d, want > 10000", eff)
	}
}

func TestOptimizeTickPlacement(t *testing.T) {
	rec, err := OptimizeTickPlacement(uint256.NewInt(1_000_000), 100, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DepegLimitBp != 9900 {
		t.Errorf("depeg limit = %d, want 9900", rec.DepegLimitBp)
	}
	if rec.ExpectedEfficiency <= 10000 {
		t.Errorf("expected efficiency = %d, want > 10000", rec.ExpectedEfficiency)
	}
}

func TestSortTicksByBoundary(t *testing.T) {
	ticks := []*Tick{
		newTick(1, 300, 100, 9000),
		newTick(2, 100, 100, 9500),
		newTick(3, 200, 100, 9300),
	}
	SortTicksByBoundary(ticks)

	want := []uint64{100, 200, 300}
	for i, w := range want {
		if ticks[i].PlaneConstant.Uint64() != w {
			t.Errorf("ticks[%d].PlaneConstant = %v, want %d", i, ticks[i].PlaneConstant, w)
		}
	}
}

func TestMergeSimilarTicks(t *testing.T) {
	ticks := []*Tick{
		newTick(1, 100, 1000, 9500),
		newTick(2, 101, 2000, 9500),
		newTick(3, 200, 3000, 9000),
	}

	merged, err := MergeSimilarTicks(ticks, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	if merged[0].Liquidity.Uint64() != 3000 {
		t.Errorf("merged[0].Liquidity = %v, want 3000", merged[0].Liquidity)
	}
}

func TestActiveLiquidityAtPoint(t *testing.T) {
	reserves := reservePoint(100, 100, 100)
	ticks := []*Tick{
		newTick(1, 400, 1000, 9500),
		newTick(2, 50, 2000, 9800),
	}

	active, err := ActiveLiquidityAtPoint(reserves, ticks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.IsZero() {
		t.Error("expected at least one active tick")
	}
}
