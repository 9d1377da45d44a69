package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns a set of named pools.
type Manager struct {
	mu     sync.RWMutex
	pools  map[string]*Pool
	closed atomic.Bool
}

// Info describes one pool in Manager.Stats.
type Info struct {
	Name     string
	Type     Type
	Running  int
	Free     int
	Capacity int
	Waiting  int
	Stats
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]*Pool)}
}

// Register creates and registers a pool.
func (m *Manager) Register(name string, typ Type, config *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrPoolClosed
	}
	if _, exists := m.pools[name]; exists {
		return fmt.Errorf("%w: %s", ErrPoolAlreadyExists, name)
	}

	p, err := NewPool(name, typ, config)
	if err != nil {
		return err
	}
	m.pools[name] = p
	return nil
}

// RegisterWithType registers a pool named after its type.
func (m *Manager) RegisterWithType(typ Type, config *Config) error {
	return m.Register(string(typ), typ, config)
}

// Get returns the pool registered under name.
func (m *Manager) Get(name string) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrPoolClosed
	}
	p, exists := m.pools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return p, nil
}

// GetByType returns the pool registered for typ.
func (m *Manager) GetByType(typ Type) (*Pool, error) {
	return m.Get(string(typ))
}

// Submit schedules task on the named pool.
func (m *Manager) Submit(name string, task func()) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	return p.Submit(task)
}

// SubmitWithContext schedules task on the named pool.
func (m *Manager) SubmitWithContext(ctx context.Context, name string, task func()) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	return p.SubmitWithContext(ctx, task)
}

// List returns the registered pool names, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a snapshot for every pool.
func (m *Manager) Stats() map[string]Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Info, len(m.pools))
	for name, p := range m.pools {
		out[name] = Info{
			Name:     name,
			Type:     p.Type(),
			Running:  p.Running(),
			Free:     p.Free(),
			Capacity: p.Cap(),
			Waiting:  p.Waiting(),
			Stats:    p.Stats(),
		}
	}
	return out
}

// Release closes and unregisters one pool.
func (m *Manager) Release(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.pools[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	p.Release()
	delete(m.pools, name)
	return nil
}

// ReleaseAll closes every pool. The manager rejects further use.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed.Store(true)
	for _, p := range m.pools {
		p.Release()
	}
	m.pools = make(map[string]*Pool)
}

// ReleaseAllTimeout is ReleaseAll waiting up to timeout per pool.
func (m *Manager) ReleaseAllTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed.Store(true)
	var firstErr error
	for name, p := range m.pools {
		if err := p.ReleaseTimeout(timeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release pool %q: %w", name, err)
		}
	}
	m.pools = make(map[string]*Pool)
	return firstErr
}

// IsClosed reports whether ReleaseAll was called.
func (m *Manager) IsClosed() bool {
	return m.closed.Load()
}
