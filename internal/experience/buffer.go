// Package experience holds transition tuples and the fixed-capacity replay
// buffer the value learner trains from.
package experience

import (
	"math/rand/v2"
)

// #region experience
// Experience is one (state, action, reward, next state) transition.
// Seq is assigned by the buffer on insertion and increases monotonically.
type Experience struct {
	State     []float64 `json:"state"`
	Action    int       `json:"action"`
	Reward    float64   `json:"reward"`
	NextState []float64 `json:"next_state"`
	Terminal  bool      `json:"terminal"`
	Seq       uint64    `json:"seq"`
}

// Clone returns a deep copy.
func (e Experience) Clone() Experience {
	e.State = append([]float64(nil), e.State...)
	e.NextState = append([]float64(nil), e.NextState...)
	return e
}

// #endregion experience

// #region buffer
// DefaultCapacity is the replay buffer size used when none is configured.
const DefaultCapacity = 1000

// Buffer is a ring buffer of experiences. Once full, each Add overwrites the
// oldest entry. Stored experiences are copies and are never mutated.
// Not safe for concurrent use.
type Buffer struct {
	items []Experience
	next  int
	size  int
	seq   uint64
	rng   *rand.Rand
}

// NewBuffer creates a buffer. capacity <= 0 uses DefaultCapacity; a nil rng
// uses a fixed-seed source.
func NewBuffer(capacity int, rng *rand.Rand) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	return &Buffer{items: make([]Experience, capacity), rng: rng}
}

// Add inserts a copy of e and returns its sequence number.
func (b *Buffer) Add(e Experience) uint64 {
	b.seq++
	c := e.Clone()
	c.Seq = b.seq
	b.items[b.next] = c
	b.next = (b.next + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
	return c.Seq
}

// Sample returns min(n, Len()) distinct experiences chosen uniformly
// without replacement, in no particular order.
func (b *Buffer) Sample(n int) []Experience {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}
	// partial Fisher-Yates over the live index range
	idx := make([]int, b.size)
	for i := range idx {
		idx[i] = i
	}
	out := make([]Experience, n)
	for i := 0; i < n; i++ {
		j := i + b.rng.IntN(b.size-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = b.items[idx[i]].Clone()
	}
	return out
}

// Len returns the number of stored experiences.
func (b *Buffer) Len() int { return b.size }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.items) }

// Clear empties the buffer. Sequence numbers keep increasing.
func (b *Buffer) Clear() {
	for i := range b.items {
		b.items[i] = Experience{}
	}
	b.next = 0
	b.size = 0
}

// Snapshot returns copies of all stored experiences, oldest first.
func (b *Buffer) Snapshot() []Experience {
	out := make([]Experience, 0, b.size)
	start := 0
	if b.size == len(b.items) {
		start = b.next
	}
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)].Clone())
	}
	return out
}

// #endregion buffer
