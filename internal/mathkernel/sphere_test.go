package mathkernel

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

func u64s(vals ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(vals))
	for i, v := range vals {
		out[i] = uint256.NewInt(v)
	}
	return out
}

// TestAmountOutSphere_TwoToken covers scenario S1 from the design notes:
// N=2, r=[1_000_000, 1_000_000], R^2=2e12, swap 10_000 of token 0.
func TestAmountOutSphere_TwoToken(t *testing.T) {
	reserves := u64s(1_000_000, 1_000_000)
	rSquared := uint256.NewInt(2_000_000_000_000)
	amountIn := uint256.NewInt(10_000)

	newReserves, amountOut, err := AmountOutSphere(reserves, 0, 1, amountIn, rSquared)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountOut.Uint64() < 9_900 || amountOut.Uint64() >= 10_000 {
		t.Fatalf("amount_out = %v, want in [9900, 10000)", amountOut)
	}
	if err := VerifySphereConstraint(newReserves, rSquared, DefaultToleranceBp); err != nil {
		t.Fatalf("post-swap invariant violated: %v", err)
	}
}

func TestAmountOutSphere_FiveToken(t *testing.T) {
	reserves := u64s(1_000_000, 1_000_000, 1_000_000, 1_000_000, 1_000_000)
	rSquared := uint256.NewInt(5_000_000_000_000)
	amountIn := uint256.NewInt(50_000)

	_, amountOut, err := AmountOutSphere(reserves, 0, 2, amountIn, rSquared)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountOut.Uint64() < 49_000 {
		t.Fatalf("amount_out = %v, want >= 49000", amountOut)
	}
}

func TestAmountOutSphere_RejectsZeroAmount(t *testing.T) {
	reserves := u64s(1_000_000, 1_000_000)
	rSquared := uint256.NewInt(2_000_000_000_000)

	_, _, err := AmountOutSphere(reserves, 0, 1, uint256.NewInt(0), rSquared)
	if !errors.Is(err, kinds.Sentinel(kinds.InvalidAmount)) {
		t.Fatalf("expected InvalidAmount, got %v", err)
	}
}

func TestAmountOutSphere_SameIndex(t *testing.T) {
	reserves := u64s(1_000_000, 1_000_000)
	rSquared := uint256.NewInt(2_000_000_000_000)

	_, _, err := AmountOutSphere(reserves, 0, 0, uint256.NewInt(1), rSquared)
	if err == nil {
		t.Fatal("expected error for i == j")
	}
}

func TestAmountOutSphere_IndexOutOfBounds(t *testing.T) {
	reserves := u64s(1_000_000, 1_000_000)
	rSquared := uint256.NewInt(2_000_000_000_000)

	_, _, err := AmountOutSphere(reserves, 0, 5, uint256.NewInt(1), rSquared)
	if !errors.Is(err, kinds.Sentinel(kinds.IndexOutOfBounds)) {
		t.Fatalf("expected IndexOutOfBounds, got %v", err)
	}
}

func TestPriceSphere_ReciprocalWithinOnePercent(t *testing.T) {
	reserves := u64s(3_000_000, 7_000_000, 2_000_000)

	pIJ, err := PriceSphere(reserves, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pJI, err := PriceSphere(reserves, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	product := new(uint256.Int).Mul(pIJ, pJI)
	precisionSquared := new(uint256.Int).Mul(Precision, Precision)

	diff := new(uint256.Int).Sub(precisionSquared, product)
	if product.Cmp(precisionSquared) > 0 {
		diff = new(uint256.Int).Sub(product, precisionSquared)
	}
	onePercent := new(uint256.Int).Div(precisionSquared, uint256.NewInt(100))
	if diff.Cmp(onePercent) > 0 {
		t.Fatalf("price(i->j)*price(j->i) deviates from PRECISION^2 by more than 1%%: diff=%v", diff)
	}
}

func TestPolarDecomposition_ClampsNegativeToZero(t *testing.T) {
	reserves := u64s(100, 50, 10)
	parallel, perp, err := PolarDecomposition(reserves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parallel.Uint64() != 53 { // (100+50+10)/3 = 53.33 -> floor 53
		t.Fatalf("parallel = %v, want 53", parallel)
	}
	if perp[2].Uint64() != 0 {
		t.Fatalf("perp[2] = %v, want 0 (saturated)", perp[2])
	}
	if perp[0].Uint64() != 47 {
		t.Fatalf("perp[0] = %v, want 47", perp[0])
	}
}

func TestVerifySphereConstraint_OutOfTolerance(t *testing.T) {
	reserves := u64s(3, 4)
	// 3^2 + 4^2 = 25
	err := VerifySphereConstraint(reserves, uint256.NewInt(100), 0)
	if !errors.Is(err, kinds.Sentinel(kinds.SphereConstraintViolation)) {
		t.Fatalf("expected SphereConstraintViolation, got %v", err)
	}
}

func TestEqualPricePoint(t *testing.T) {
	v, err := EqualPricePoint(2, uint256.NewInt(200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Uint64() != 10 {
		t.Fatalf("equal price point = %v, want 10", v)
	}
}

func TestPriceImpactBp_Symmetric(t *testing.T) {
	bp, err := PriceImpactBp(uint256.NewInt(100), uint256.NewInt(101))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp != 100 {
		t.Fatalf("price impact = %d bp, want 100", bp)
	}
}
