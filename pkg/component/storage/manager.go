package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/pkg/infra/pool"
)

// Manager is a registry of named storage clients. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register adds client under name. Names are unique.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage(fmt.Sprintf("client %q is already registered", name))
	}
	m.clients[name] = client
	return nil
}

// MustRegister is Register that panics on error.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("register storage client: %v", err))
	}
}

// Unregister removes a client without closing it.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; !exists {
		return ErrClientNotFound.WithMessage(fmt.Sprintf("client %q not found", name))
	}
	delete(m.clients, name)
	return nil
}

// Get returns the client registered under name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, ErrClientNotFound.WithMessage(fmt.Sprintf("client %q not found", name))
	}
	return client, nil
}

// List returns the registered names, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheck pings one client.
func (m *Manager) HealthCheck(ctx context.Context, name string) HealthStatus {
	client, err := m.Get(name)
	if err != nil {
		return HealthStatus{Name: name, Error: err}
	}
	return check(ctx, name, client)
}

func check(ctx context.Context, name string, client Client) HealthStatus {
	start := time.Now()
	err := client.Ping(ctx)
	return HealthStatus{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheckAll pings every client concurrently. Checks run on the global
// health check pool, falling back to a goroutine when the pool is missing
// or full.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		statuses = make(map[string]HealthStatus, len(clients))
	)

	workers, err := pool.GetByType(pool.HealthCheckPool)
	if err != nil {
		workers = nil
	}

	for name, client := range clients {
		name, client := name, client
		task := func() {
			defer wg.Done()
			st := check(ctx, name, client)
			mu.Lock()
			statuses[name] = st
			mu.Unlock()
		}

		wg.Add(1)
		if workers == nil {
			go task()
			continue
		}
		if err := workers.Submit(task); err != nil {
			logger.Debugw("health check pool rejected task", "client", name, "error", err)
			go task()
		}
	}

	wg.Wait()
	return statuses
}

// AllHealthy reports whether every client passes its health check.
func (m *Manager) AllHealthy(ctx context.Context) bool {
	for _, st := range m.HealthCheckAll(ctx) {
		if !st.Healthy {
			return false
		}
	}
	return true
}

// Close closes one client and unregisters it.
func (m *Manager) Close(name string) error {
	client, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := client.Close(); err != nil {
		return err
	}
	return m.Unregister(name)
}

// CloseAll closes every client and empties the registry. All clients are
// closed even when some fail; the first failure is returned.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close storage client %q: %w", name, err)
		}
	}
	m.clients = make(map[string]Client)
	return firstErr
}
