// Package search tests: configuration contracts, fingerprint binding, and
// the shard-7 filter scenario cross-checked against an independent
// map-based reference filter.
package search

import (
	"sync"
	"testing"

	"bealsearch/modmath"
	"bealsearch/wire"
)

var testPrimes = []uint32{4294967291, 4294967279}

func testConfig() Config {
	return Config{MaxBase: 10, MaxPow: 5, Primes: append([]uint32(nil), testPrimes...)}
}

// The two bitsets cost 1 GiB; build the shared test worker once.
var (
	workerOnce sync.Once
	testWorker *Worker
	workerErr  error
)

func sharedWorker(t *testing.T) *Worker {
	t.Helper()
	workerOnce.Do(func() {
		testWorker, workerErr = NewWorker(testConfig(), 4<<30)
	})
	if workerErr != nil {
		t.Fatal(workerErr)
	}
	return testWorker
}

// -----------------------------------------------------------------------------
// ░░ Configuration Contract ░░
// -----------------------------------------------------------------------------

func TestConfigValidate(t *testing.T) {
	good := testConfig()
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	bad := []Config{
		{MaxBase: 0, MaxPow: 5, Primes: testPrimes},
		{MaxBase: 10, MaxPow: 2, Primes: testPrimes},
		{MaxBase: 10, MaxPow: 5, Primes: nil},
		{MaxBase: 10, MaxPow: 5, Primes: []uint32{0}},
		{MaxBase: 10, MaxPow: 5, Primes: []uint32{7, 7}},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: invalid config accepted", i)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := testConfig()
	b := testConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical configs produced different fingerprints")
	}
	c := testConfig()
	c.MaxPow = 6
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("different bounds share a fingerprint")
	}
	d := testConfig()
	d.Primes = []uint32{testPrimes[1], testPrimes[0]}
	if a.Fingerprint() == d.Fingerprint() {
		t.Fatal("prime order must change the fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Fatalf("fingerprint length %d, want 64 hex chars", len(a.Fingerprint()))
	}
}

func TestNewWorkerMemoryRefusal(t *testing.T) {
	if _, err := NewWorker(testConfig(), 1<<20); err == nil {
		t.Fatal("1 MiB cap must refuse two 512 MiB bitsets")
	}
}

func TestNewWorkerBadConfig(t *testing.T) {
	if _, err := NewWorker(Config{MaxBase: 10, MaxPow: 5}, 4<<30); err == nil {
		t.Fatal("empty prime list accepted")
	}
}

// -----------------------------------------------------------------------------
// ░░ Compatibility Binding ░░
// -----------------------------------------------------------------------------

func TestCompatible(t *testing.T) {
	w := sharedWorker(t)
	cfg := testConfig()

	match := &wire.WorkSpec{
		MaxBase: cfg.MaxBase, MaxPow: cfg.MaxPow, Primes: cfg.Primes,
		Fingerprint: cfg.Fingerprint(), Shard: wire.Shard{A: 1},
	}
	if !w.Compatible(match) {
		t.Fatal("matching spec rejected")
	}

	// A spec without a fingerprint falls back to recomputation.
	match.Fingerprint = ""
	if !w.Compatible(match) {
		t.Fatal("fingerprint-less matching spec rejected")
	}

	other := testConfig()
	other.MaxBase = 11
	mismatch := &wire.WorkSpec{
		MaxBase: other.MaxBase, MaxPow: other.MaxPow, Primes: other.Primes,
		Fingerprint: other.Fingerprint(),
	}
	if w.Compatible(mismatch) {
		t.Fatal("mismatching spec accepted")
	}
}

// -----------------------------------------------------------------------------
// ░░ Filter Chain vs Reference ░░
// -----------------------------------------------------------------------------

// referenceCandidates reruns the shard with throwaway maps instead of the
// bitset indices.
func referenceCandidates(cfg Config, a uint32) [][4]uint32 {
	type powSet struct {
		m       uint32
		resides map[uint32]bool
	}
	sets := make([]powSet, len(cfg.Primes))
	for i, m := range cfg.Primes {
		set := powSet{m: m, resides: make(map[uint32]bool)}
		for c := uint32(1); c <= cfg.MaxBase; c++ {
			for z := uint32(3); z <= cfg.MaxPow; z++ {
				set.resides[modmath.ModPow(uint64(c), uint64(z), m)] = true
			}
		}
		sets[i] = set
	}

	var out [][4]uint32
	for b := uint32(1); b <= a; b++ {
		if modmath.GCD(a, b) != 1 {
			continue
		}
		for x := uint32(3); x <= cfg.MaxPow; x++ {
			for y := uint32(3); y <= cfg.MaxPow; y++ {
				pass := true
				for _, set := range sets {
					r := uint32((uint64(modmath.ModPow(uint64(a), uint64(x), set.m)) +
						uint64(modmath.ModPow(uint64(b), uint64(y), set.m))) % uint64(set.m))
					if !set.resides[r] {
						pass = false
						break
					}
				}
				if pass {
					out = append(out, [4]uint32{a, x, b, y})
				}
			}
		}
	}
	return out
}

func TestRunMatchesReference(t *testing.T) {
	w := sharedWorker(t)
	cfg := testConfig()
	for _, a := range []uint32{1, 3, 6, 7, 10} {
		got := w.Run(a)
		want := referenceCandidates(cfg, a)
		if len(got) != len(want) {
			t.Fatalf("shard %d: %d candidates, want %d", a, len(got), len(want))
		}
		for i := range want {
			if got[i].Quad() != want[i] {
				t.Fatalf("shard %d candidate %d = %v, want %v", a, i, got[i].Quad(), want[i])
			}
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	w := sharedWorker(t)
	first := w.Run(7)
	second := w.Run(7)
	if len(first) != len(second) {
		t.Fatalf("re-run length %d, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Quad() != second[i].Quad() {
			t.Fatalf("re-run diverged at %d", i)
		}
		if len(first[i].Witnesses) != len(second[i].Witnesses) {
			t.Fatalf("witness sets diverged at %d", i)
		}
	}
}

// TestRunPrunesSharedFactors: shard 6 must never probe b = 3, so the true
// identity 3^3 + 6^3 = 3^5 cannot surface as a candidate.
func TestRunPrunesSharedFactors(t *testing.T) {
	for _, cand := range sharedWorker(t).Run(6) {
		if cand.B == 3 || cand.B == 2 || cand.B == 4 || cand.B == 6 {
			t.Fatalf("non-coprime candidate emitted: %v", cand.Quad())
		}
	}
}

// TestWitnessesProduceResidue: every reported witness reproduces the
// candidate's residue under the first filter prime.
func TestWitnessesProduceResidue(t *testing.T) {
	w := sharedWorker(t)
	m := testPrimes[0]
	checked := 0
	for _, a := range []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		for _, cand := range w.Run(a) {
			r := uint32((uint64(modmath.ModPow(uint64(cand.A), uint64(cand.X), m)) +
				uint64(modmath.ModPow(uint64(cand.B), uint64(cand.Y), m))) % uint64(m))
			for _, wit := range cand.Witnesses {
				if modmath.ModPow(uint64(wit.C), uint64(wit.Z), m) != r {
					t.Fatalf("witness (%d,%d) does not match residue %d", wit.C, wit.Z, r)
				}
			}
			checked++
		}
	}
	t.Logf("checked %d candidates", checked)
}

func TestCountersAdvance(t *testing.T) {
	w := sharedWorker(t)
	before, _ := w.Counters()
	w.Run(5)
	after, _ := w.Counters()
	// Shard 5: b in {1,2,3,4}, 3x3 exponent grid.
	if after-before != 36 {
		t.Fatalf("points counter advanced by %d, want 36", after-before)
	}
}
