package deploy

import (
	"context"
	"fmt"
	"sync"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

// Locker grants at most one in-flight deployment per catalog. Acquire never
// waits: a held lease returns domain.ErrDeploymentInProgress. The returned
// release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, catalogID string) (release func(), err error)
}

// MemoryLocker is a per-process Locker
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates a MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, catalogID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[catalogID] {
		return nil, fmt.Errorf("catalog %s: %w", catalogID, domain.ErrDeploymentInProgress)
	}
	l.held[catalogID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, catalogID)
			l.mu.Unlock()
		})
	}, nil
}
