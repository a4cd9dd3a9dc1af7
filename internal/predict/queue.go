package predict

// pendingNote is an unmatched note start or end.
type pendingNote struct {
	// Time is the block relative time plus the queue's TimeAdj when queued.
	Time int64
	Key  uint8
	End  bool
	// Block is the block number the note was queued in.
	Block int
}

// NoteQueue is a bounded FIFO of unmatched notes.
// Times of queued notes stay comparable across blocks through TimeAdj:
// a note's time relative to the current block is its Time minus TimeAdj.
type NoteQueue struct {
	items []pendingNote
	// TimeAdj grows by the block size each block while the queue is not empty.
	TimeAdj int64
	// Dropped counts notes lost to overflow or staleness.
	Dropped int
}

// NewNoteQueue returns an empty queue holding up to capacity notes.
func NewNoteQueue(capacity int) *NoteQueue {
	return &NoteQueue{items: make([]pendingNote, 0, capacity)}
}

func (q *NoteQueue) Len() int {
	return len(q.items)
}

func (q *NoteQueue) At(i int) pendingNote {
	return q.items[i]
}

// Relative returns the time of item i relative to the current block.
func (q *NoteQueue) Relative(i int) int64 {
	return q.items[i].Time - q.TimeAdj
}

// Advance moves the queue's clock to the next block.
func (q *NoteQueue) Advance(blockSize int) {
	if len(q.items) == 0 {
		q.TimeAdj = 0
		return
	}
	q.TimeAdj += int64(blockSize)
}

// Push appends a note at block relative time t.
// If the queue is full, the oldest note is dropped and Push returns false.
func (q *NoteQueue) Push(t int64, key uint8, end bool, block int) bool {
	ok := true
	if len(q.items) == cap(q.items) {
		q.Remove(0)
		q.Dropped++
		ok = false
	}
	q.items = append(q.items, pendingNote{Time: t + q.TimeAdj, Key: key, End: end, Block: block})
	return ok
}

// Remove deletes item i, keeping order.
func (q *NoteQueue) Remove(i int) {
	copy(q.items[i:], q.items[i+1:])
	q.items = q.items[:len(q.items)-1]
}

// DropBefore removes notes queued before block and returns how many were removed.
func (q *NoteQueue) DropBefore(block int) int {
	n := 0
	for len(q.items) > 0 && q.items[0].Block < block {
		q.Remove(0)
		n++
	}
	q.Dropped += n
	return n
}

// Clear empties the queue and resets its clock.
func (q *NoteQueue) Clear() {
	q.items = q.items[:0]
	q.TimeAdj = 0
}
