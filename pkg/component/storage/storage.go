package storage

import (
	"context"
	"time"
)

// Client is a connection to a storage backend.
type Client interface {
	// Name identifies the backend type, for example "mongodb".
	Name() string

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection. It is safe to call more than once.
	Close() error

	// Health returns a checker bound to this client.
	Health() HealthChecker
}

// HealthChecker reports nil when the backend is healthy.
type HealthChecker func() error

// HealthStatus is the result of one health check.
type HealthStatus struct {
	Name    string
	Healthy bool
	Latency time.Duration
	Error   error
}

// Factory creates connected clients from its configuration.
type Factory interface {
	Create(ctx context.Context) (Client, error)
}
