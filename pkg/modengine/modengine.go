// Package modengine implements the modular squaring step
// U <- (U^2 - 2) mod N for N = h*2^n - 1, using a shift-and-add
// reduction instead of a general big-integer division by N.
package modengine

import "math/big"

// Engine holds the scratch big integers for one Riesel candidate and
// reuses them across Step calls, bounding steady-state allocation at
// O(bits(N)).
type Engine struct {
	h    *big.Int
	n    *big.Int // N = h*2^exp - 1
	exp  uint
	mask *big.Int // 2^exp - 1, precomputed once

	s, j, k, q, r, tmp *big.Int
}

// New builds an Engine for the candidate h*2^exp-1.
func New(h uint64, exp uint64, n *big.Int) *Engine {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(exp))
	mask.Sub(mask, big.NewInt(1))
	return &Engine{
		h:    new(big.Int).SetUint64(h),
		n:    n,
		exp:  uint(exp),
		mask: mask,
		s:    new(big.Int),
		j:    new(big.Int),
		k:    new(big.Int),
		q:    new(big.Int),
		r:    new(big.Int),
		tmp:  new(big.Int),
	}
}

// Step computes U' = (U^2 - 2) mod N in place and returns U', reusing
// the Engine's scratch integers. 0 <= u < N is required; the result
// satisfies 0 <= result < N.
//
// U^2 alone (never U^2-2) is what gets shift-and-add reduced, since
// U^2 is always non-negative — the "-2" is applied afterward and
// corrected back into [0, N) by adding N if it went negative. This
// sidesteps the need for floored division of a possibly-negative J
// (U may be 0 or 1, making U^2-2 negative).
func (e *Engine) Step(u *big.Int) *big.Int {
	// S = U^2 (always >= 0)
	e.s.Mul(u, u)

	// J = S >> exp, K = S & mask
	e.j.Rsh(e.s, e.exp)
	e.k.And(e.s, e.mask)

	// q = J / h, r = J % h (both non-negative since J >= 0, h > 0:
	// truncated and floored division coincide here)
	e.q.QuoRem(e.j, e.h, e.r)

	// U'' = q + r*2^exp + K, may land in [0, 2N)
	e.tmp.Lsh(e.r, e.exp)
	e.tmp.Add(e.tmp, e.q)
	e.tmp.Add(e.tmp, e.k)
	for e.tmp.Cmp(e.n) >= 0 {
		e.tmp.Sub(e.tmp, e.n)
	}

	// result = (U^2 mod N) - 2, corrected back into [0, N)
	e.tmp.Sub(e.tmp, two)
	if e.tmp.Sign() < 0 {
		e.tmp.Add(e.tmp, e.n)
	}
	for e.tmp.Cmp(e.n) >= 0 {
		e.tmp.Sub(e.tmp, e.n)
	}

	u.Set(e.tmp)
	return u
}

var two = big.NewInt(2)
