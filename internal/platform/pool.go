// internal/platform/pool.go

package platform

import (
	"errors"
	"sync"
)

// ErrNoMemory means a fixed pool has no free slot left.
var ErrNoMemory = errors.New("platform: out of memory")

// Pool hands out zeroed slots from a fixed array sized at boot. Slots are
// never returned individually; Reset reclaims the whole pool.
type Pool[T any] struct {
	mu    sync.Mutex
	slots []T
	used  int
}

// NewPool creates a pool with room for n objects.
func NewPool[T any](n int) *Pool[T] {
	if n < 0 {
		n = 0
	}
	return &Pool[T]{slots: make([]T, n)}
}

// Alloc returns the next free zeroed slot.
func (p *Pool[T]) Alloc() (*T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used >= len(p.slots) {
		return nil, ErrNoMemory
	}
	obj := &p.slots[p.used]
	p.used++
	return obj, nil
}

// Used reports how many slots have been handed out.
func (p *Pool[T]) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Cap reports the pool size.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Reset reclaims every slot at once.
func (p *Pool[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.slots[:p.used])
	p.used = 0
}
