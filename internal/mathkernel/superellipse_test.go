package mathkernel

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/kinds"
)

func TestVerifySuperellipseConstraint_U2DispatchesToSphere(t *testing.T) {
	reserves := u64s(3, 4)
	err := VerifySuperellipseConstraint(reserves, SphereUBp, uint256.NewInt(25), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifySuperellipseConstraint_RejectsUBelowTwo(t *testing.T) {
	reserves := u64s(100, 100)
	err := VerifySuperellipseConstraint(reserves, 19000, uint256.NewInt(1000), 0)
	if err == nil {
		t.Fatal("expected error for u_bp < 20000")
	}
}

func TestVerifySuperellipseConstraint_UnsupportedFraction(t *testing.T) {
	reserves := u64s(100, 100)
	err := VerifySuperellipseConstraint(reserves, 23000, uint256.NewInt(1000), 100)
	if !errors.Is(err, kinds.Sentinel(kinds.UnsupportedPrecision)) {
		t.Fatalf("expected UnsupportedPrecision for u_bp=23000, got %v", err)
	}
}

func TestVerifySuperellipseConstraint_HalfRung(t *testing.T) {
	// 10^2 * sqrt(10) ~= 100*3 = 300 per token (integer sqrt(10)=3)
	reserves := u64s(10, 10, 10)
	err := VerifySuperellipseConstraint(reserves, 25000, uint256.NewInt(900), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAmountOutSuperellipse_U2MatchesSphere(t *testing.T) {
	reserves := u64s(100, 100)
	k := uint256.NewInt(20000)

	_, amountOut, err := AmountOutSuperellipse(reserves, 0, 1, uint256.NewInt(10), SphereUBp, k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountOut.IsZero() || amountOut.Cmp(reserves[1]) >= 0 {
		t.Fatalf("amount_out = %v, want in (0, reserve_out)", amountOut)
	}
}

func TestAmountOutSuperellipse_UnsupportedFractionRejected(t *testing.T) {
	reserves := u64s(100, 100)
	k := uint256.NewInt(200000)
	_, _, err := AmountOutSuperellipse(reserves, 0, 1, uint256.NewInt(10), 23000, k)
	if !errors.Is(err, kinds.Sentinel(kinds.UnsupportedPrecision)) {
		t.Fatalf("expected UnsupportedPrecision, got %v", err)
	}
}

func TestPriceSuperellipse_U2MatchesSphere(t *testing.T) {
	reserves := u64s(100, 200)
	price, err := PriceSuperellipse(reserves, 0, 1, SphereUBp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := new(uint256.Int).Div(Precision, uint256.NewInt(2))
	if price.Cmp(expected) != 0 {
		t.Fatalf("price = %v, want %v", price, expected)
	}
}

func TestPow_KnownValues(t *testing.T) {
	tests := []struct {
		base uint64
		exp  uint64
		want uint64
	}{
		{2, 10, 1024},
		{5, 0, 1},
		{7, 1, 7},
		{3, 5, 243},
	}
	for _, tt := range tests {
		got, err := Pow(uint256.NewInt(tt.base), tt.exp)
		if err != nil {
			t.Fatalf("Pow(%d,%d) error: %v", tt.base, tt.exp, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("Pow(%d,%d) = %v, want %d", tt.base, tt.exp, got, tt.want)
		}
	}
}

func TestNthRoot_KnownValues(t *testing.T) {
	tests := []struct {
		v    uint64
		n    uint64
		want uint64
	}{
		{27, 3, 3},
		{1000, 3, 10},
		{16, 4, 2},
		{100, 2, 10},
	}
	for _, tt := range tests {
		got, err := NthRoot(uint256.NewInt(tt.v), tt.n)
		if err != nil {
			t.Fatalf("NthRoot(%d,%d) error: %v", tt.v, tt.n, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("NthRoot(%d,%d) = %v, want %d", tt.v, tt.n, got, tt.want)
		}
	}
}
