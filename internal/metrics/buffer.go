package metrics

// DefaultCapacity is the retention buffer size used when none is given.
const DefaultCapacity = 1000

// Buffer is a fixed-capacity circular buffer of Snapshots. Once full, each
// Push evicts the oldest entry. Buffer is not safe for concurrent use; the
// sampler guards it with its own lock.
type Buffer struct {
	data  []Snapshot
	head  int
	count int
}

// NewBuffer creates a buffer with the given capacity (DefaultCapacity if <= 0).
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]Snapshot, capacity)}
}

// Push adds a snapshot, overwriting the oldest if full.
func (b *Buffer) Push(s Snapshot) {
	b.data[b.head] = s
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// Len returns the number of retained snapshots.
func (b *Buffer) Len() int { return b.count }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Last returns the most recent snapshot and whether one exists.
func (b *Buffer) Last() (Snapshot, bool) {
	if b.count == 0 {
		return Snapshot{}, false
	}
	idx := b.head - 1
	if idx < 0 {
		idx = len(b.data) - 1
	}
	return b.data[idx], true
}

// Snapshots returns a copy of the contents, oldest first.
func (b *Buffer) Snapshots() []Snapshot {
	return b.Window(b.count)
}

// Window returns a copy of the last n snapshots, oldest first.
// n larger than Len returns everything.
func (b *Buffer) Window(n int) []Snapshot {
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return []Snapshot{}
	}
	result := make([]Snapshot, n)
	start := b.head - n
	if start < 0 {
		start += len(b.data)
	}
	for i := range n {
		result[i] = b.data[(start+i)%len(b.data)]
	}
	return result
}

// Resize changes the capacity, preserving the most recent snapshots that fit.
func (b *Buffer) Resize(newCap int) {
	if newCap <= 0 {
		newCap = DefaultCapacity
	}
	if newCap == len(b.data) {
		return
	}
	old := b.Snapshots()
	b.data = make([]Snapshot, newCap)
	b.Reset()
	b.Load(old)
}

// Load replaces the contents with snaps, keeping the most recent Cap() entries.
func (b *Buffer) Load(snaps []Snapshot) {
	b.Reset()
	start := 0
	if len(snaps) > len(b.data) {
		start = len(snaps) - len(b.data)
	}
	for _, s := range snaps[start:] {
		b.Push(s)
	}
}

// Reset clears all snapshots.
func (b *Buffer) Reset() {
	clear(b.data)
	b.head = 0
	b.count = 0
}
