package vm

// Heap is the process-wide, append-only table of int-array references the
// CORE hands out as integer handles. It is the only resource frames share;
// because the interpreter is single-threaded and synchronous (spec.md §5),
// the table needs no locking — unlike chazu-maggie's ObjectRegistry, which
// guards every per-kind map with its own mutex because the Maggie VM runs
// goroutine-spawned processes concurrently. Handles are issued monotonically
// from zero and are never reused or freed individually: only Free tears the
// whole table down, once, at program end.
type Heap struct {
	arrays [][]int32
}

// NewHeap returns an empty heap ready to accept arrays.
func NewHeap() *Heap {
	return &Heap{arrays: make([][]int32, 0, 8)}
}

// NewHeapWithCapacity is the same as NewHeap but pre-sizes the backing slice,
// used when internal/config supplies a [heap] initial_capacity hint.
func NewHeapWithCapacity(capacity int) *Heap {
	if capacity <= 0 {
		return NewHeap()
	}
	return &Heap{arrays: make([][]int32, 0, capacity)}
}

// Add stores array and returns its handle. Always succeeds.
func (h *Heap) Add(array []int32) int32 {
	h.arrays = append(h.arrays, array)
	return int32(len(h.arrays) - 1)
}

// Get returns the backing array for handle. Passing a handle never issued by
// Add is a caller bug; the CORE's invariants (spec.md §3) guarantee every
// reference on a stack or in locals is either zero or a handle Add returned,
// so this does not defensively check the range.
func (h *Heap) Get(handle int32) []int32 {
	return h.arrays[handle]
}

// Len reports how many arrays have been registered, used by tests.
func (h *Heap) Len() int {
	return len(h.arrays)
}

// Free releases every stored array and invalidates all handles. Called once
// at program teardown.
func (h *Heap) Free() {
	h.arrays = nil
}

// Snapshot returns the full table of arrays in handle order, used by
// internal/snapshot to dump the heap without exposing the live backing
// slice to mutation.
func (h *Heap) Snapshot() [][]int32 {
	out := make([][]int32, len(h.arrays))
	copy(out, h.arrays)
	return out
}

// NewIntArray builds the heap's on-wire array representation: length word
// first, n zeroed elements following (spec.md §3, "Heap").
func NewIntArray(n int32) []int32 {
	arr := make([]int32, n+1)
	arr[0] = n
	return arr
}
