package capture

import (
	"context"
	"sync"
)

// Swappable delegates to a provider that can be replaced at runtime, so a
// camera config change takes effect on the next Open without rebuilding the
// scanner. Handles already open are unaffected by a swap.
type Swappable struct {
	mu    sync.RWMutex
	inner Provider
}

// NewSwappable wraps p.
func NewSwappable(p Provider) *Swappable {
	return &Swappable{inner: p}
}

// Swap replaces the delegate and returns the previous one.
func (s *Swappable) Swap(p Provider) Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.inner
	s.inner = p
	return prev
}

// Current returns the active delegate.
func (s *Swappable) Current() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner
}

// Open calls Open on the current delegate.
func (s *Swappable) Open(ctx context.Context, facing Facing) (Handle, error) {
	return s.Current().Open(ctx, facing)
}

// Name returns the current delegate's name.
func (s *Swappable) Name() string {
	return s.Current().Name()
}
