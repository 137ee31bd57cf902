// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

// ring is a fixed-capacity FIFO. Pushing into a full ring evicts the oldest
// element. It is not safe for concurrent use; Collector serializes access.
type ring[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring[T]) len() int {
	return r.count
}

func (r *ring[T]) capacity() int {
	return len(r.buf)
}

// values returns the elements oldest first.
func (r *ring[T]) values() []T {
	return r.last(r.count)
}

// last returns up to n of the newest elements, oldest first.
func (r *ring[T]) last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := r.head + r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *ring[T]) each(fn func(T)) {
	for i := 0; i < r.count; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

func (r *ring[T]) clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
}
