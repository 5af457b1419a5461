// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: axby.go — pruned (a, x, b, y) half-space cursor
//
// Purpose:
//   - Enumerates every point (a, x, b, y) for one fixed a: 1 <= b <= a with
//     gcd(a, b) = 1 and 3 <= x, y <= maxPow, in (b, x, y) lexicographic
//     order, exactly once.
//
// Notes:
//   - b <= a halves the (a, b) grid; a^x + b^y is symmetric in the bases.
//   - gcd(a, b) > 1 is pruned outright; a counterexample requires pairwise
//     coprime bases.
//   - Plain struct cursor, no recursion; Next sits under the filter loop.
// ─────────────────────────────────────────────────────────────────────────────

package axby

import (
	"bealsearch/constants"
	"bealsearch/modmath"
)

// Point is one filter probe: a^x + b^y against the c^z tables.
type Point struct {
	A uint32 // fixed base for the whole shard
	X uint32 // exponent on a, 3 <= X <= maxPow
	B uint32 // second base, 1 <= B <= A, gcd(A, B) = 1
	Y uint32 // exponent on b, 3 <= Y <= maxPow
}

// Cursor walks the point set for one shard. Create with New, drain with
// Next. Not safe for concurrent use; each shard loop owns its own cursor.
type Cursor struct {
	a      uint32 // shard value, constant per cursor
	maxPow uint32 // inclusive exponent bound
	b      uint32 // current second base
	x      uint32 // current exponent on a
	y      uint32 // current exponent on b, innermost
	done   bool
}

// New returns a cursor over the shard a. A cursor with out-of-range bounds
// (a below 1 or above maxBase, maxPow below 3) starts exhausted.
func New(maxBase, maxPow, a uint32) *Cursor {
	cu := &Cursor{a: a, maxPow: maxPow}
	if a < 1 || a > maxBase || maxPow < constants.MinPow {
		cu.done = true
		return cu
	}
	cu.Reset()
	return cu
}

// Reset rewinds the cursor to the first point of its shard. b starts at 1,
// which is coprime to every a.
func (cu *Cursor) Reset() {
	cu.b = 1
	cu.x = constants.MinPow
	cu.y = constants.MinPow
	cu.done = false
}

// Next returns the current point and advances, or done = true once the
// shard is exhausted. After exhaustion it keeps returning done and the
// point must not be consumed.
//
//go:registerparams
func (cu *Cursor) Next() (Point, bool) {
	if cu.done {
		return Point{}, true
	}
	p := Point{A: cu.a, X: cu.x, B: cu.b, Y: cu.y}

	// Odometer roll: y innermost, then x, then b over coprime values.
	cu.y++
	if cu.y > cu.maxPow {
		cu.y = constants.MinPow
		cu.x++
		if cu.x > cu.maxPow {
			cu.x = constants.MinPow
			cu.b++
			for cu.b <= cu.a && modmath.GCD(cu.a, cu.b) != 1 {
				cu.b++
			}
			if cu.b > cu.a {
				cu.done = true
			}
		}
	}
	return p, false
}

// Remaining reports whether the cursor still has points to emit.
//
//go:inline
func (cu *Cursor) Remaining() bool { return !cu.done }
