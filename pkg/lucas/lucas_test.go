package lucas

import (
	"math/big"
	"testing"
)

func TestSelectV1NotMultipleOfThree(t *testing.T) {
	n := big.NewInt(7)
	for _, h := range []uint64{1, 2, 4, 5, 7, 8, 10} {
		if h%3 == 0 {
			continue
		}
		if got := SelectV1(h, n); got != 4 {
			t.Errorf("SelectV1(%d, N) = %d, want 4", h, got)
		}
	}
}

// TestSelectV1MultipleOfThree checks that for h a multiple of 3
// (h != 1), the returned x satisfies
// Jacobi(x-2, N) = +1 and Jacobi(x+2, N) = -1, and it is the smallest
// such x in the preferred-then-linear search order.
func TestSelectV1MultipleOfThree(t *testing.T) {
	cases := []struct {
		h   uint64
		exp uint64
	}{
		{3, 3}, // N=23
		{3, 4}, // N=47
		{6, 5}, // N=191 (normalized would become h=3,exp=6, but SelectV1 takes h directly)
	}
	for _, tc := range cases {
		n := new(big.Int).Sub(new(big.Int).Lsh(new(big.Int).SetUint64(tc.h), uint(tc.exp)), big.NewInt(1))
		x := SelectV1(tc.h, n)
		if !qualifies(x, n) {
			t.Fatalf("SelectV1(h=%d, N=%s) = %d does not qualify", tc.h, n, x)
		}

		// Nothing earlier in the fixed preferred-list search order may
		// also qualify (the list is not sorted by value, so "earlier"
		// means earlier in iteration order, not smaller in value).
		found := false
		for _, candidate := range preferredV1 {
			if candidate == x {
				found = true
				break
			}
			if qualifies(candidate, n) {
				t.Fatalf("SelectV1(h=%d, N=%s) = %d but earlier candidate %d already qualifies", tc.h, n, x, candidate)
			}
		}
		// If x wasn't in the preferred list at all, it must have come
		// from the linear continuation, and nothing smaller in that
		// continuation may qualify either.
		if !found {
			if x < linearSearchStart || (x-linearSearchStart)%2 != 0 {
				t.Fatalf("SelectV1(h=%d, N=%s) = %d is neither in the preferred list nor a valid linear-search value", tc.h, n, x)
			}
			for c := int64(linearSearchStart); c < x; c += 2 {
				if qualifies(c, n) {
					t.Fatalf("SelectV1(h=%d, N=%s) = %d but smaller linear candidate %d already qualifies", tc.h, n, x, c)
				}
			}
		}
	}
}

func TestU2MersenneIsV1ModN(t *testing.T) {
	n := big.NewInt(7) // h=1, exp=3: N=7
	u2 := U2(1, 4, n)
	want := new(big.Int).Mod(big.NewInt(4), n)
	if u2.Cmp(want) != 0 {
		t.Errorf("U2(1, 4, 7) = %s, want %s", u2, want)
	}
}

func TestU2InRange(t *testing.T) {
	cases := []struct {
		h   uint64
		exp uint64
	}{
		{3, 3},
		{3, 4},
		{1, 3},
		{5, 6},
	}
	for _, tc := range cases {
		n := new(big.Int).Sub(new(big.Int).Lsh(new(big.Int).SetUint64(tc.h), uint(tc.exp)), big.NewInt(1))
		v1 := SelectV1(tc.h, n)
		u2 := U2(tc.h, v1, n)
		if u2.Sign() < 0 || u2.Cmp(n) >= 0 {
			t.Errorf("U2(h=%d, v1=%d, N=%s) = %s out of range [0, N)", tc.h, v1, n, u2)
		}
	}
}
