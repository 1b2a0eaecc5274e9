/*
Copyright © 2026 the brew authors.
This file is part of brew.

brew is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

brew is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with brew.  If not, see <http://www.gnu.org/licenses/>.
*/

package brew

import "fmt"

// SolveTridiagonal solves the system
//
//	lower[i]·x[i-1] + diag[i]·x[i] + upper[i]·x[i+1] = rhs[i]
//
// using the Thomas algorithm and returns x. lower[0] and upper[n-1] are
// ignored. The system must be diagonally dominant or otherwise safe to
// factor without pivoting.
func SolveTridiagonal(lower, diag, upper, rhs []float64) []float64 {
	n := len(diag)
	if len(lower) != n || len(upper) != n || len(rhs) != n {
		panic(fmt.Errorf("brew: tridiagonal system has bands of length %d, %d, %d and rhs of length %d",
			len(lower), n, len(upper), len(rhs)))
	}
	t := newTridiag(n)
	copy(t.lower, lower)
	copy(t.diag, diag)
	copy(t.upper, upper)
	copy(t.rhs, rhs)
	x := make([]float64, n)
	t.solve(x)
	return x
}

// tridiag holds a tridiagonal system along with scratch space, so that
// repeated solves of the same size do not allocate.
type tridiag struct {
	lower, diag, upper, rhs []float64
	cp, dp                  []float64
}

func newTridiag(n int) *tridiag {
	return &tridiag{
		lower: make([]float64, n),
		diag:  make([]float64, n),
		upper: make([]float64, n),
		rhs:   make([]float64, n),
		cp:    make([]float64, n),
		dp:    make([]float64, n),
	}
}

// solve writes the solution of the current system into x. x may alias any
// slice other than the system's own bands.
func (t *tridiag) solve(x []float64) {
	n := len(t.diag)
	if n == 0 {
		return
	}
	if n == 1 {
		x[0] = t.rhs[0] / t.diag[0]
		return
	}
	// Forward elimination.
	t.cp[0] = t.upper[0] / t.diag[0]
	t.dp[0] = t.rhs[0] / t.diag[0]
	for i := 1; i < n; i++ {
		m := t.diag[i] - t.lower[i]*t.cp[i-1]
		if i < n-1 {
			t.cp[i] = t.upper[i] / m
		} else {
			t.cp[i] = 0
		}
		t.dp[i] = (t.rhs[i] - t.lower[i]*t.dp[i-1]) / m
	}
	// Back substitution.
	x[n-1] = t.dp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = t.dp[i] - t.cp[i]*x[i+1]
	}
}
