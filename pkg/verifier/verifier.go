// Package verifier emits a self-checking script for an external
// arbitrary-precision calculator, so a run's verdict can be checked by
// a tool this program never has to trust or link against. The emitted
// syntax targets bc(1): it re-derives U(2) from V(1) via the same
// left-to-right binary ladder pkg/lucas uses, then repeats the
// squaring step up to U(n), asserting the final term is zero for a
// prime verdict — entirely independently of gollr's own arithmetic.
package verifier

import (
	"fmt"
	"io"

	"github.com/arcetri/gollr/pkg/riesel"
)

// Write emits a bc script to w that independently verifies the
// Lucas-Lehmer-Riesel test for p using the given V(1) seed.
func Write(w io.Writer, p riesel.Params, v1 int64) error {
	n := p.Candidate()

	script := fmt.Sprintf(`/* generated verification script; run with: bc -q this-file.bc */
h = %d
n_exp = %d
N = %s
v1 = %d

/* binary digits of h into bit[], indexed by position: bit[0] is the least significant */
define setup() {
    auto t, nb
    t = h
    nb = 0
    while (t > 0) {
        bit[nb] = t %% 2
        t = t / 2
        nb = nb + 1
    }
    return nb
}

nb = setup()

/* left-to-right ladder over (V(m), V(m+1)), matching pkg/lucas.U2 */
r = v1 %% N
s = (v1 * v1 - 2) %% N
if (s < 0) s = s + N

i = nb - 2
while (i >= 0) {
    if (bit[i] == 0) {
        ns = (r * s - v1) %% N
        if (ns < 0) ns = ns + N
        nr = (r * r - 2) %% N
        if (nr < 0) nr = nr + N
        r = nr
        s = ns
    } else {
        nr = (r * s - v1) %% N
        if (nr < 0) nr = nr + N
        ns = (s * s - 2) %% N
        if (ns < 0) ns = ns + N
        r = nr
        s = ns
    }
    i = i - 1
}

u = r
if (h == 1) u = v1 %% N

i = 2
while (i < n_exp) {
    u = (u * u - 2) %% N
    if (u < 0) u = u + N
    i = i + 1
}

if (u == 0) print "PASS: ", h, " * 2 ^ ", n_exp, " - 1 is prime\n" else print "FAIL: ", h, " * 2 ^ ", n_exp, " - 1 is composite\n"
`, p.H, p.Exp, n.Text(10), v1)

	if _, err := io.WriteString(w, script); err != nil {
		return fmt.Errorf("verifier: write: %w", err)
	}
	return nil
}
