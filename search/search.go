// ════════════════════════════════════════════════════════════════════════════════════════════════
// Worker Search Engine
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Beal Counterexample Search
// Component: Conjunctive Residue Filter Chain
//
// Description:
//   Owns one c^z index per filter prime and runs shards through them: a
//   point survives only if, under every prime, the residue of a^x + b^y
//   occurs somewhere in the c^z table. Index construction costs minutes and
//   gigabytes, so a Worker binds to one configuration for its lifetime and
//   is reused across shards.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package search

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"bealsearch/axby"
	"bealsearch/constants"
	"bealsearch/czindex"
	"bealsearch/rescache"
	"bealsearch/wire"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Config is the immutable search configuration shared by every worker and
// the coordinator of one run.
type Config struct {
	MaxBase uint32   // upper bound on a, b and c
	MaxPow  uint32   // upper bound on x, y and z
	Primes  []uint32 // ordered filter chain moduli
}

// Validate checks the configuration contract: MaxBase >= 1, MaxPow >= 3,
// at least one prime, every modulus >= 2, all distinct.
func (c Config) Validate() error {
	if c.MaxBase < 1 {
		return fmt.Errorf("max base %d below 1", c.MaxBase)
	}
	if c.MaxPow < constants.MinPow {
		return fmt.Errorf("max power %d below %d", c.MaxPow, constants.MinPow)
	}
	if len(c.Primes) == 0 {
		return fmt.Errorf("empty filter prime list")
	}
	seen := make(map[uint32]bool, len(c.Primes))
	for _, p := range c.Primes {
		if p < 2 {
			return fmt.Errorf("filter modulus %d below 2", p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate filter prime %d", p)
		}
		seen[p] = true
	}
	return nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of the canonical
// serialization of the configuration. Workers compare fingerprints instead
// of deep-comparing prime lists on every work spec.
func (c Config) Fingerprint() string {
	buf := make([]byte, 0, 12+4*len(c.Primes))
	buf = binary.BigEndian.AppendUint32(buf, c.MaxBase)
	buf = binary.BigEndian.AppendUint32(buf, c.MaxPow)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Primes)))
	for _, p := range c.Primes {
		buf = binary.BigEndian.AppendUint32(buf, p)
	}
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// ConfigFromSpec extracts the configuration carried by a work spec.
func ConfigFromSpec(spec *wire.WorkSpec) Config {
	return Config{MaxBase: spec.MaxBase, MaxPow: spec.MaxPow, Primes: spec.Primes}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CANDIDATES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Candidate is a point that survived the full filter chain. It is an
// obligation for downstream big-integer verification, not a counterexample.
// Witnesses lists the (c, z) pairs matching the point's residue under the
// first filter prime, recovered once per candidate on the cold path.
type Candidate struct {
	A, X, B, Y uint32
	Witnesses  []czindex.Pow
}

// Quad returns the wire form of the candidate.
//
//go:inline
func (cand Candidate) Quad() [4]uint32 {
	return [4]uint32{cand.A, cand.X, cand.B, cand.Y}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// WORKER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Worker owns the per-prime filter chain. Construction is expensive; a
// Worker is bound to its configuration for the life of the process. Run is
// safe for concurrent use — the indices are read-only after Build — so one
// Worker serves every shard loop in the process.
type Worker struct {
	cfg     Config
	fp      string
	indices []*czindex.Index

	points     uint64 // atomic: points probed across all shards
	candidates uint64 // atomic: candidates emitted across all shards
}

// NewWorker validates the configuration, refuses it when the combined index
// allocation would exceed memCap bytes, then builds one index per filter
// prime concurrently.
func NewWorker(cfg Config, memCap uint64) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}
	if need := czindex.MemoryBytes(cfg.MaxBase, cfg.MaxPow, len(cfg.Primes)); need > memCap {
		return nil, fmt.Errorf("index memory %d bytes exceeds cap %d: %d primes at %d bytes of bitset each",
			need, memCap, len(cfg.Primes), constants.BitsetBytes)
	}

	w := &Worker{
		cfg:     cfg,
		fp:      cfg.Fingerprint(),
		indices: make([]*czindex.Index, len(cfg.Primes)),
	}

	var group errgroup.Group
	for i, prime := range cfg.Primes {
		group.Go(func() error {
			ix, err := czindex.Build(cfg.MaxBase, cfg.MaxPow, prime)
			if err != nil {
				return fmt.Errorf("index for prime %d: %w", prime, err)
			}
			w.indices[i] = ix
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return w, nil
}

// Config returns the bound configuration.
func (w *Worker) Config() Config { return w.cfg }

// Fingerprint returns the bound configuration's hex digest.
func (w *Worker) Fingerprint() string { return w.fp }

// Compatible reports whether a work spec matches the bound configuration.
// A worker binds to the first configuration it sees and refuses mismatches;
// rebuilding mid-run would waste minutes of index construction.
func (w *Worker) Compatible(spec *wire.WorkSpec) bool {
	if spec.Fingerprint != "" {
		return spec.Fingerprint == w.fp
	}
	return ConfigFromSpec(spec).Fingerprint() == w.fp
}

// Counters returns the lifetime points-probed and candidates-emitted
// totals.
func (w *Worker) Counters() (points, candidates uint64) {
	return atomic.LoadUint64(&w.points), atomic.LoadUint64(&w.candidates)
}

// Run drains the shard a through the filter chain and returns the surviving
// candidates in enumeration order. Deterministic: re-running a shard yields
// an identical candidate sequence.
func (w *Worker) Run(a uint32) []Candidate {
	var (
		out      []Candidate
		rec      witnessRecovery
		points   uint64
		cur      = axby.New(w.cfg.MaxBase, w.cfg.MaxPow, a)
		indices  = w.indices
		nIndices = len(indices)
	)

	for {
		p, done := cur.Next()
		if done {
			break
		}
		points++

		pass := true
		for i := 0; i < nIndices; i++ {
			ix := indices[i]
			r := uint32((uint64(ix.Value(p.A, p.X)) + uint64(ix.Value(p.B, p.Y))) % uint64(ix.Mod()))
			if !ix.Contains(r) {
				pass = false
				break
			}
		}
		if !pass {
			continue
		}

		// Survivor: recover witnesses under the first prime, memoized per
		// residue for the duration of the shard.
		first := indices[0]
		r := uint32((uint64(first.Value(p.A, p.X)) + uint64(first.Value(p.B, p.Y))) % uint64(first.Mod()))
		out = append(out, Candidate{
			A: p.A, X: p.X, B: p.B, Y: p.Y,
			Witnesses: rec.lookup(first, r),
		})
	}

	atomic.AddUint64(&w.points, points)
	atomic.AddUint64(&w.candidates, uint64(len(out)))
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// WITNESS RECOVERY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// witnessRecovery memoizes the linear witness scan per residue within one
// shard. Lazily initialized: most shards emit no candidate at all.
type witnessRecovery struct {
	cache rescache.Cache
	memo  [][]czindex.Pow
}

func (rec *witnessRecovery) lookup(ix *czindex.Index, r uint32) []czindex.Pow {
	if rec.memo == nil {
		rec.cache = rescache.New(constants.WitnessCacheSlots)
	}
	// Residues are < mod <= 2^32-1, so r+1 never wraps to the empty
	// sentinel. Stored value is the memo slot plus one.
	if slot, ok := rec.cache.Get(r + 1); ok {
		return rec.memo[slot-1]
	}
	ws := ix.Witnesses(r)
	rec.memo = append(rec.memo, ws)
	rec.cache.Put(r+1, uint32(len(rec.memo)))
	return ws
}
