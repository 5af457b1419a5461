// ════════════════════════════════════════════════════════════════════════════════════════════════
// c^z Residue Index
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Beal Counterexample Search
// Component: Per-Prime Power Residue Membership Table
//
// Description:
//   Precomputes c^z mod m for every c in [1, maxBase], z in [3, maxPow] and
//   records which residues occur in a flat 2^32-bit table. Membership is a
//   single word load and bit test; the small vals table answers point
//   lookups and the cold-path witness scan.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package czindex

import (
	"fmt"
	"math/bits"

	"bealsearch/constants"
	"bealsearch/modmath"
)

// Pow is a (c, z) pair producing some residue under the index modulus.
type Pow struct {
	C uint32 // base, 1 <= C <= maxBase
	Z uint32 // exponent, 3 <= Z <= maxPow
}

// Index is one prime's residue table pair. Built once per worker process and
// read-only afterwards, so concurrent shard loops may share it freely.
type Index struct {
	mod     uint32   // filter modulus, a 32-bit prime
	maxBase uint32   // inclusive upper bound on c
	maxPow  uint32   // inclusive upper bound on z
	stride  uint64   // populated exponents per base: maxPow - 2
	vals    []uint32 // residues, row-major by base: vals[(c-1)*stride + (z-3)]
	exists  []uint64 // 2^32-bit occurrence table, one bit per residue
}

// MemoryBytes reports the resident cost of building nPrimes indices for the
// given bounds: the fixed bitsets plus the vals tables. Callers refuse
// configurations ahead of any allocation.
func MemoryBytes(maxBase, maxPow uint32, nPrimes int) uint64 {
	vals := uint64(maxBase) * uint64(maxPow-2) * 4
	return uint64(nPrimes) * (constants.BitsetBytes + vals)
}

// Build populates the index for c in [1, maxBase], z in [3, maxPow]:
// maxBase * (maxPow - 2) modular exponentiations.
func Build(maxBase, maxPow, mod uint32) (*Index, error) {
	if maxBase < 1 {
		return nil, fmt.Errorf("max base %d below 1", maxBase)
	}
	if maxPow < constants.MinPow {
		return nil, fmt.Errorf("max power %d below %d", maxPow, constants.MinPow)
	}
	if mod < 2 {
		return nil, fmt.Errorf("modulus %d below 2", mod)
	}

	ix := &Index{
		mod:     mod,
		maxBase: maxBase,
		maxPow:  maxPow,
		stride:  uint64(maxPow) - 2,
		vals:    make([]uint32, uint64(maxBase)*(uint64(maxPow)-2)),
		exists:  make([]uint64, constants.BitsetWords),
	}

	i := uint64(0)
	for c := uint32(1); c <= maxBase; c++ {
		// One squaring chain per base would be marginally cheaper, but the
		// build is a one-time cost and ModPow keeps the kernel singular.
		for z := uint32(constants.MinPow); z <= maxPow; z++ {
			r := modmath.ModPow(uint64(c), uint64(z), mod)
			ix.vals[i] = r
			ix.exists[r>>6] |= 1 << (r & 63)
			i++
		}
	}
	return ix, nil
}

// Mod returns the index modulus.
//
//go:inline
func (ix *Index) Mod() uint32 { return ix.mod }

// Value returns the stored residue c^z mod m. The caller keeps (c, z) inside
// the populated range; the search loop guarantees this by construction.
//
//go:inline
//go:registerparams
func (ix *Index) Value(c, z uint32) uint32 {
	return ix.vals[uint64(c-1)*ix.stride+uint64(z)-constants.MinPow]
}

// Contains reports whether any populated (c, z) produced residue r.
//
//go:inline
//go:registerparams
func (ix *Index) Contains(r uint32) bool {
	return ix.exists[r>>6]&(1<<(r&63)) != 0
}

// Witnesses scans vals for every (c, z) whose residue equals r. Linear in
// the table size — cold path only, at most once per surviving candidate.
func (ix *Index) Witnesses(r uint32) []Pow {
	var out []Pow
	i := uint64(0)
	for c := uint32(1); c <= ix.maxBase; c++ {
		for z := uint32(constants.MinPow); z <= ix.maxPow; z++ {
			if ix.vals[i] == r {
				out = append(out, Pow{C: c, Z: z})
			}
			i++
		}
	}
	return out
}

// PopCount returns the number of distinct residues present, for startup
// diagnostics and density checks.
func (ix *Index) PopCount() uint64 {
	var n uint64
	for _, w := range ix.exists {
		n += uint64(bits.OnesCount64(w))
	}
	return n
}
