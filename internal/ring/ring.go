// Package ring provides a fixed-capacity buffer that keeps the most recent values.
package ring

// Ring keeps the last Cap values pushed to it. It does no locking; owners
// guard it with their own mutex.
type Ring[T any] struct {
	items []T
	next  int
	full  bool
}

// New returns a Ring holding at most capacity values. A capacity below one holds one.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push stores v, evicting the oldest value once the ring is full.
func (r *Ring[T]) Push(v T) {
	r.items[r.next] = v
	r.next++
	if r.next == len(r.items) {
		r.next = 0
		r.full = true
	}
}

// Len returns how many values are held.
func (r *Ring[T]) Len() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Last returns a copy of up to n of the newest values, oldest first.
func (r *Ring[T]) Last(n int) []T {
	n = min(n, r.Len())
	if n <= 0 {
		return nil
	}

	out := make([]T, n)
	// The newest value sits just before next.
	start := r.next - n
	if start >= 0 {
		copy(out, r.items[start:r.next])
		return out
	}
	k := copy(out, r.items[start+len(r.items):])
	copy(out[k:], r.items[:r.next])
	return out
}
