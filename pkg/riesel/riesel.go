// Package riesel models Riesel candidates N = h*2^n - 1 and the
// normalization rules that make them testable by the LLR iteration.
package riesel

import "math/big"

// Params is a Riesel candidate's (h, n) pair before or after
// normalization.
//
// Exp is conventionally written "n" and H is "h" in Riesel-candidate
// notation; the field names avoid reusing "N" for both the exponent
// and the candidate value.
type Params struct {
	H   uint64
	Exp uint64
}

// Candidate returns N = h*2^n - 1 as a big integer.
func (p Params) Candidate() *big.Int {
	n := new(big.Int).Lsh(big.NewInt(1), uint(p.Exp))
	n.Mul(n, new(big.Int).SetUint64(p.H))
	return n.Sub(n, big.NewInt(1))
}

// Normalize halves h and increments n while h is even. Returns the
// normalized params and whether the result is testable (h != 0 and
// h < 2^n).
func Normalize(p Params) (Params, bool) {
	for p.H != 0 && p.H%2 == 0 {
		p.H /= 2
		p.Exp++
	}
	if p.H == 0 {
		return p, false
	}
	bound := new(big.Int).Lsh(big.NewInt(1), uint(p.Exp))
	if new(big.Int).SetUint64(p.H).Cmp(bound) >= 0 {
		return p, false
	}
	return p, true
}

// DivisibleByThree reports whether N = h*2^n-1 is a multiple of 3,
// using the closed-form condition: h mod 3 = 1 with n even, or
// h mod 3 = 2 with n odd.
func (p Params) DivisibleByThree() bool {
	hMod3 := p.H % 3
	nEven := p.Exp%2 == 0
	return (hMod3 == 1 && nEven) || (hMod3 == 2 && !nEven)
}

// hard-coded trivial prime/composite candidates, below the range
// where the Lucas-Lehmer-Riesel iteration itself is meaningful.
var (
	trivialPrime     = map[Params]bool{{H: 1, Exp: 2}: true}
	trivialComposite = map[Params]bool{{H: 1, Exp: 1}: true}
)

// IsTrivialPrime reports whether (h, n) is hard-coded as prime.
func IsTrivialPrime(p Params) bool { return trivialPrime[p] }

// IsTrivialComposite reports whether (h, n) is hard-coded as composite.
func IsTrivialComposite(p Params) bool { return trivialComposite[p] }
