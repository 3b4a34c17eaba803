package window

// #region sliding
// Sliding is a bounded FIFO of the most recent values. Pushing onto a full
// window evicts the oldest value, so Len never exceeds Cap.
type Sliding[T any] struct {
	buf   []T
	start int
	size  int
}

// New creates a window holding at most capacity values. A capacity below 1
// is treated as 1.
func New[T any](capacity int) *Sliding[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Sliding[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Sliding[T]) Push(v T) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of values currently held.
func (w *Sliding[T]) Len() int { return w.size }

// Cap returns the configured capacity.
func (w *Sliding[T]) Cap() int { return len(w.buf) }

// Full reports whether the window holds Cap values.
func (w *Sliding[T]) Full() bool { return w.size == len(w.buf) }

// Values returns a copy of the held values, oldest first.
func (w *Sliding[T]) Values() []T {
	out := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the most recent n values, oldest first. n is capped at Len.
func (w *Sliding[T]) Last(n int) []T {
	if n > w.size {
		n = w.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	skip := w.size - n
	for i := 0; i < n; i++ {
		out[i] = w.buf[(w.start+skip+i)%len(w.buf)]
	}
	return out
}

// Newest returns the most recently pushed value.
func (w *Sliding[T]) Newest() (T, bool) {
	var zero T
	if w.size == 0 {
		return zero, false
	}
	return w.buf[(w.start+w.size-1)%len(w.buf)], true
}

// Reset drops all values and keeps the capacity.
func (w *Sliding[T]) Reset() {
	var zero T
	for i := range w.buf {
		w.buf[i] = zero
	}
	w.start = 0
	w.size = 0
}

// #endregion sliding

// #region helpers
// CountTrue returns how many of vals are true.
func CountTrue(vals []bool) int {
	n := 0
	for _, v := range vals {
		if v {
			n++
		}
	}
	return n
}

// Spread returns max(vals) - min(vals), or 0 for an empty slice.
func Spread(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// #endregion helpers
