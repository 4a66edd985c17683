// Package history provides a fixed-capacity FIFO buffer for the most recently
// processed frames.
package history

// Ring holds at most Cap() values. Pushing into a full ring evicts the oldest
// value first. Storage is allocated once at construction.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest value
	size int
}

// New creates a ring with the given capacity. Capacity must be at least 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("history: ring capacity must be at least 1")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. When the ring was full the evicted value is returned with
// ok set to true so the caller can release it.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.size == len(r.buf) {
		evicted = r.buf[r.head]
		ok = true
		var zero T
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
		r.size--
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return evicted, ok
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// At returns the i-th value counting from the oldest.
func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.size {
		return zero, false
	}
	return r.buf[(r.head+i)%len(r.buf)], true
}

// Back returns the k-th value counting back from the newest: Back(0) is the
// newest, Back(1) the one before it.
func (r *Ring[T]) Back(k int) (T, bool) {
	return r.At(r.size - 1 - k)
}

// Items returns a copy of the stored values, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Drain removes every value and returns them oldest first.
func (r *Ring[T]) Drain() []T {
	out := r.Items()
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.size = 0, 0
	return out
}
