// Package testkit holds invariant checks shared by the sequencing and
// pipeline tests.
package testkit

import (
	"fmt"
	"math/rand/v2"

	"jsxhost/internal/script"
)

// CheckExecutionOrder verifies a recorded execution order:
// 1) every position is in [0, n)
// 2) no position occurs twice (at most once)
// 3) positions are strictly ascending
// 4) when isolated is nil, the order is a prefix 0..k-1 with no gaps;
// otherwise gaps are allowed only at isolated positions.
func CheckExecutionOrder(order []int, n int, isolated map[int]bool) error {
	seen := make(map[int]bool, len(order))
	for i, pos := range order {
		// 1) bounds
		if pos < 0 || pos >= n {
			return fmt.Errorf("position %d out of range [0,%d)", pos, n)
		}
		// 2) at most once
		if seen[pos] {
			return fmt.Errorf("position %d executed twice", pos)
		}
		seen[pos] = true
		// 3) ascending
		if i > 0 && order[i-1] >= pos {
			return fmt.Errorf("order not ascending at index %d: %d after %d", i, pos, order[i-1])
		}
	}
	// 4) prefix
	if len(order) == 0 {
		return nil
	}
	last := order[len(order)-1]
	for p := 0; p <= last; p++ {
		if !seen[p] && !isolated[p] {
			return fmt.Errorf("gap at position %d before executed position %d", p, last)
		}
	}
	return nil
}

// CheckStates verifies slot states against the cursor: everything below
// the cursor is terminal and nothing at or above it is.
func CheckStates(states []script.State, cursor int) error {
	for i, st := range states {
		if i < cursor && !st.IsTerminal() {
			return fmt.Errorf("slot %d below cursor %d is %s", i, cursor, st)
		}
		if i >= cursor && st.IsTerminal() {
			return fmt.Errorf("slot %d at/above cursor %d is %s", i, cursor, st)
		}
	}
	return nil
}

// Permutations returns count shuffled orders of 0..n-1 from a fixed seed,
// always including the identity and the reverse order.
func Permutations(n, count int, seed uint64) [][]int {
	identity := make([]int, n)
	reverse := make([]int, n)
	for i := range n {
		identity[i] = i
		reverse[i] = n - 1 - i
	}
	out := [][]int{identity, reverse}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for len(out) < count {
		p := append([]int(nil), identity...)
		r.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
		out = append(out, p)
	}
	return out
}
