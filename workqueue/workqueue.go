// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: workqueue.go — outstanding-shard heap with completed bitset
//
// Purpose:
//   - Tracks which a-shards are outstanding and which are complete.
//   - Next hands out the oldest incomplete shard and re-queues it, so a
//     shard lost with its worker is re-dispensed once the a-axis generator
//     runs dry (at-least-once dispatch; completion is idempotent).
//
// Notes:
//   - Binary min-heap ordered by (enqueue stamp, sequence); completion is a
//     bit per shard. Shards are 1-based a-values.
//   - Not synchronized. The coordinator serializes access under its mutex.
// ─────────────────────────────────────────────────────────────────────────────

package workqueue

import "time"

type entry struct {
	stamp int64  // enqueue time, seconds
	seq   uint64 // FIFO tie-break within a second
	shard uint32 // a-value
}

// Queue is the coordinator's shard ledger.
type Queue struct {
	heap      []entry
	completed []uint64 // bit per shard, 1-based
	maxShard  uint32
	nDone     uint32
	seq       uint64
	now       func() int64 // stubbed in tests
}

// New returns an empty ledger for shards 1..maxShard.
func New(maxShard uint32) *Queue {
	return &Queue{
		completed: make([]uint64, (uint64(maxShard)>>6)+1),
		maxShard:  maxShard,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// Add registers a shard as outstanding, stamped with the current time.
func (q *Queue) Add(shard uint32) {
	q.push(entry{stamp: q.now(), seq: q.seq, shard: shard})
	q.seq++
}

// Next pops the oldest shard that is still incomplete, re-queues it with a
// fresh stamp, and returns it. Completed entries drained along the way are
// dropped. Returns false when nothing is outstanding.
func (q *Queue) Next() (uint32, bool) {
	for len(q.heap) > 0 {
		e := q.pop()
		if q.Completed(e.shard) {
			continue
		}
		q.Add(e.shard)
		return e.shard, true
	}
	return 0, false
}

// Complete marks a shard done. Reports true when the shard was already
// complete, which the coordinator treats as a duplicate delivery.
func (q *Queue) Complete(shard uint32) bool {
	if shard < 1 || shard > q.maxShard {
		return true
	}
	if q.Completed(shard) {
		return true
	}
	q.completed[shard>>6] |= 1 << (shard & 63)
	q.nDone++
	return false
}

// Completed reports whether a shard has been marked done.
//
//go:inline
func (q *Queue) Completed(shard uint32) bool {
	return q.completed[shard>>6]&(1<<(shard&63)) != 0
}

// Done reports whether every shard in [1, maxShard] is complete.
func (q *Queue) Done() bool { return q.nDone == q.maxShard }

// Stats returns the completed count and the outstanding heap size.
func (q *Queue) Stats() (completed, outstanding int) {
	return int(q.nDone), len(q.heap)
}

// ───────────────────────────── Heap Internals ──────────────────────────────

func less(a, b entry) bool {
	if a.stamp != b.stamp {
		return a.stamp < b.stamp
	}
	return a.seq < b.seq
}

func (q *Queue) push(e entry) {
	q.heap = append(q.heap, e)
	i := len(q.heap) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !less(q.heap[i], q.heap[parent]) {
			break
		}
		q.heap[i], q.heap[parent] = q.heap[parent], q.heap[i]
		i = parent
	}
}

func (q *Queue) pop() entry {
	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	i := 0
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < last && less(q.heap[l], q.heap[smallest]) {
			smallest = l
		}
		if r < last && less(q.heap[r], q.heap[smallest]) {
			smallest = r
		}
		if smallest == i {
			return top
		}
		q.heap[i], q.heap[smallest] = q.heap[smallest], q.heap[i]
		i = smallest
	}
}
