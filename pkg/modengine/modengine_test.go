package modengine

import (
	"math/big"
	"testing"
)

// reference computes (u^2-2) mod n the direct way, for comparison
// against the shift-and-add engine.
func reference(u, n *big.Int) *big.Int {
	t := new(big.Int).Mul(u, u)
	t.Sub(t, big.NewInt(2))
	t.Mod(t, n)
	if t.Sign() < 0 {
		t.Add(t, n)
	}
	return t
}

func TestStepMatchesReference(t *testing.T) {
	cases := []struct {
		h, exp uint64
	}{
		{1, 3},
		{1, 7},
		{3, 3},
		{3, 4},
		{3, 10},
		{5, 9},
	}
	for _, tc := range cases {
		n := new(big.Int).Sub(new(big.Int).Lsh(new(big.Int).SetUint64(tc.h), uint(tc.exp)), big.NewInt(1))
		for _, start := range []int64{0, 1, 2, 3, 5} {
			u0 := new(big.Int).Mod(big.NewInt(start), n)
			e := New(tc.h, tc.exp, n)
			got := new(big.Int).Set(u0)
			got = e.Step(got)
			want := reference(u0, n)
			if got.Cmp(want) != 0 {
				t.Errorf("h=%d exp=%d Step(%s) = %s, want %s", tc.h, tc.exp, u0, got, want)
			}
		}
	}
}

func TestStepStaysInRange(t *testing.T) {
	n := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(3), 10), big.NewInt(1))
	e := New(3, 10, n)
	u := big.NewInt(4)
	for i := 0; i < 200; i++ {
		u = e.Step(u)
		if u.Sign() < 0 || u.Cmp(n) >= 0 {
			t.Fatalf("iteration %d: Step result %s out of range [0, %s)", i, u, n)
		}
	}
}

func TestStepIsPure(t *testing.T) {
	n := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(3), 12), big.NewInt(1))
	u := big.NewInt(12345)

	e1 := New(3, 12, n)
	r1 := new(big.Int).Set(e1.Step(new(big.Int).Set(u)))

	e2 := New(3, 12, n)
	r2 := new(big.Int).Set(e2.Step(new(big.Int).Set(u)))

	if r1.Cmp(r2) != 0 {
		t.Errorf("Step is not a pure function of (u, h, n): %s != %s", r1, r2)
	}
}
