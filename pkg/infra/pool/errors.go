// Package pool wraps ants worker pools behind a small named registry.
//
// The storage manager runs concurrent health checks on the HealthCheckPool
// and falls back to plain goroutines when the global manager was never
// initialised.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool closed")

	// ErrPoolNotFound is returned for unknown pool names.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolAlreadyExists is returned when a name is registered twice.
	ErrPoolAlreadyExists = errors.New("pool already exists")

	// ErrManagerNotInitialized is returned by the package level helpers
	// when the global manager could not be created.
	ErrManagerNotInitialized = errors.New("pool manager not initialized")

	// ErrPoolOverload is returned by nonblocking pools that are full.
	ErrPoolOverload = errors.New("pool overloaded")
)
