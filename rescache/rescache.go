// ════════════════════════════════════════════════════════════════════════════════════════════════
// Residue Memo Cache
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Beal Counterexample Search
// Component: Fixed-Capacity Robin Hood Memo Map
//
// Description:
//   Small open-addressed hash map from a residue to a witness-list slot,
//   used so that repeated candidate residues within a shard pay the linear
//   vals witness scan only once. Robin Hood displacement keeps probe chains
//   short; the table never grows and stops accepting entries at half load.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package rescache

// Cache maps uint32 keys to uint32 values. Key 0 is the empty sentinel and
// must not be inserted; callers with a full 32-bit key space shift their
// domain by one. Single-writer only.
type Cache struct {
	keys []uint32 // 0 = empty slot
	vals []uint32 // parallel to keys
	mask uint32   // size - 1, size a power of two
	used uint32   // occupied slots
}

// nextPow2 rounds n up to the nearest power of two.
//
//go:inline
func nextPow2(n int) uint32 {
	s := uint32(1)
	for s < uint32(n) {
		s <<= 1
	}
	return s
}

// New creates a cache with at least capacity slots of headroom. The table
// is sized to twice the requested capacity so probe chains stay short.
func New(capacity int) Cache {
	sz := nextPow2(capacity * 2)
	return Cache{
		keys: make([]uint32, sz),
		vals: make([]uint32, sz),
		mask: sz - 1,
	}
}

// Put inserts key→val unless the key is already present, in which case the
// stored value wins and is returned. Inserts are refused (ok = false) once
// the table reaches half load, which bounds displacement cost; the caller
// falls back to recomputing.
//
//go:registerparams
func (h *Cache) Put(key, val uint32) (uint32, bool) {
	if h.used > h.mask>>1 {
		if v, ok := h.Get(key); ok {
			return v, true
		}
		return val, false
	}

	i := key & h.mask
	dist := uint32(0)
	for {
		k := h.keys[i]
		if k == 0 {
			h.keys[i], h.vals[i] = key, val
			h.used++
			return val, true
		}
		if k == key {
			return h.vals[i], true
		}

		// Robin Hood: displace the occupant when it sits closer to its
		// home slot than we do.
		kDist := (i + h.mask + 1 - (k & h.mask)) & h.mask
		if kDist < dist {
			key, h.keys[i] = h.keys[i], key
			val, h.vals[i] = h.vals[i], val
			dist = kDist
		}
		i = (i + 1) & h.mask
		dist++
	}
}

// Get retrieves the value for key. The Robin Hood invariant permits early
// termination: passing a slot closer to home than our probe distance means
// the key cannot be present.
//
//go:registerparams
func (h *Cache) Get(key uint32) (uint32, bool) {
	i := key & h.mask
	dist := uint32(0)
	for {
		k := h.keys[i]
		if k == 0 {
			return 0, false
		}
		if k == key {
			return h.vals[i], true
		}
		kDist := (i + h.mask + 1 - (k & h.mask)) & h.mask
		if kDist < dist {
			return 0, false
		}
		i = (i + 1) & h.mask
		dist++
	}
}

// Len returns the number of stored entries.
//
//go:inline
func (h *Cache) Len() int { return int(h.used) }
