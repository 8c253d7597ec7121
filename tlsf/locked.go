package tlsf

import "sync"

// Locked serializes every call to the wrapped Allocator with a mutex.
type Locked struct {
	mu sync.Mutex
	a  Allocator
}

// NewLocked wraps a for use from several goroutines.
func NewLocked(a Allocator) *Locked {
	return &Locked{a: a}
}

// Allocate implements Allocator.
func (l *Locked) Allocate(size, align int) (Ref, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Allocate(size, align)
}

// Deallocate implements Allocator.
func (l *Locked) Deallocate(ref Ref, align int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.Deallocate(ref, align)
}

// Reallocate implements Allocator.
func (l *Locked) Reallocate(ref Ref, newSize, align int) (Ref, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Reallocate(ref, newSize, align)
}

// AddPool implements Allocator.
func (l *Locked) AddPool(region []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.AddPool(region)
}

// Stats implements Allocator.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// Do runs fn with the lock held, for sequences that must not interleave
// with other callers.
func (l *Locked) Do(fn func(a Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.a)
}

var (
	_ Allocator = (*Default)(nil)
	_ Allocator = (*Locked)(nil)
)
