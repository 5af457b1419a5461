// Package czindex tests: value/contains round trips, witness recovery, and
// the density bound from the populated-range contract.
package czindex

import (
	"testing"

	"bealsearch/modmath"
)

const testPrime = 4294967291

// -----------------------------------------------------------------------------
// ░░ Construction Validation ░░
// -----------------------------------------------------------------------------

func TestBuildRejectsBadBounds(t *testing.T) {
	if _, err := Build(0, 5, testPrime); err == nil {
		t.Fatal("maxBase 0 should be rejected")
	}
	if _, err := Build(10, 2, testPrime); err == nil {
		t.Fatal("maxPow 2 should be rejected")
	}
	if _, err := Build(10, 5, 1); err == nil {
		t.Fatal("modulus 1 should be rejected")
	}
}

func TestMemoryBytes(t *testing.T) {
	got := MemoryBytes(100, 100, 2)
	want := uint64(2) * ((1 << 29) + 100*98*4)
	if got != want {
		t.Fatalf("MemoryBytes = %d, want %d", got, want)
	}
}

// -----------------------------------------------------------------------------
// ░░ Value / Contains Round Trip ░░
// -----------------------------------------------------------------------------

// TestIndexRoundTrip builds the 100x100 index and checks every populated
// entry against ModPow, that membership round-trips, and that the occupancy
// count stays within the distinct-residue bound.
func TestIndexRoundTrip(t *testing.T) {
	const maxBase, maxPow = 100, 100
	ix, err := Build(maxBase, maxPow, testPrime)
	if err != nil {
		t.Fatal(err)
	}

	distinct := make(map[uint32]struct{})
	for c := uint32(1); c <= maxBase; c++ {
		for z := uint32(3); z <= maxPow; z++ {
			want := modmath.ModPow(uint64(c), uint64(z), testPrime)
			got := ix.Value(c, z)
			if got != want {
				t.Fatalf("Value(%d,%d) = %d, want %d", c, z, got, want)
			}
			if uint64(got) >= uint64(testPrime) {
				t.Fatalf("Value(%d,%d) = %d not reduced", c, z, got)
			}
			if !ix.Contains(got) {
				t.Fatalf("Contains(Value(%d,%d)) = false", c, z)
			}
			distinct[got] = struct{}{}
		}
	}

	if n := ix.PopCount(); n != uint64(len(distinct)) {
		t.Fatalf("PopCount = %d, want %d distinct residues", n, len(distinct))
	}
	if n := ix.PopCount(); n > maxBase*(maxPow-2) {
		t.Fatalf("PopCount %d exceeds populated entries", n)
	}
}

// TestContainsNegative picks residues absent from the table and checks the
// bit test rejects them.
func TestContainsNegative(t *testing.T) {
	ix, err := Build(8, 5, testPrime)
	if err != nil {
		t.Fatal(err)
	}
	present := make(map[uint32]struct{})
	for c := uint32(1); c <= 8; c++ {
		for z := uint32(3); z <= 5; z++ {
			present[ix.Value(c, z)] = struct{}{}
		}
	}
	misses := 0
	for r := uint32(0); r < 100000; r++ {
		if _, ok := present[r]; ok {
			continue
		}
		misses++
		if ix.Contains(r) {
			t.Fatalf("Contains(%d) = true for unpopulated residue", r)
		}
	}
	if misses == 0 {
		t.Fatal("sweep never saw an absent residue")
	}
}

// -----------------------------------------------------------------------------
// ░░ Witness Recovery ░░
// -----------------------------------------------------------------------------

func TestWitnesses(t *testing.T) {
	ix, err := Build(10, 6, testPrime)
	if err != nil {
		t.Fatal(err)
	}

	// 2^6 = 4^3 = 64: both pairs must surface for residue 64.
	ws := ix.Witnesses(64)
	want := map[Pow]bool{{C: 2, Z: 6}: true, {C: 4, Z: 3}: true, {C: 8, Z: 2}: false}
	found := make(map[Pow]bool)
	for _, w := range ws {
		found[w] = true
		if ix.Value(w.C, w.Z) != 64 {
			t.Fatalf("witness (%d,%d) does not produce 64", w.C, w.Z)
		}
	}
	for p, expect := range want {
		if expect && !found[p] {
			t.Fatalf("witness (%d,%d) missing", p.C, p.Z)
		}
		if !expect && found[p] {
			t.Fatalf("out-of-range witness (%d,%d) reported", p.C, p.Z)
		}
	}

	if ws := ix.Witnesses(7); len(ws) != 0 {
		t.Fatalf("Witnesses(7) = %v, want none", ws)
	}
}

func TestWitnessesCoverEveryValue(t *testing.T) {
	ix, err := Build(6, 5, testPrime)
	if err != nil {
		t.Fatal(err)
	}
	for c := uint32(1); c <= 6; c++ {
		for z := uint32(3); z <= 5; z++ {
			r := ix.Value(c, z)
			hit := false
			for _, w := range ix.Witnesses(r) {
				if w.C == c && w.Z == z {
					hit = true
					break
				}
			}
			if !hit {
				t.Fatalf("Witnesses(%d) missing producing pair (%d,%d)", r, c, z)
			}
		}
	}
}
