package pool

import (
	"sync"
	"time"

	"github.com/kart-io/logger"
)

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// GlobalConfig configures the pools created by InitGlobalWithConfig.
// A nil entry skips that pool.
type GlobalConfig struct {
	DefaultPool     *Config
	HealthCheckPool *Config
	BackgroundPool  *Config
}

// DefaultGlobalConfig returns the configuration used by InitGlobal.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DefaultPool:     DefaultPoolConfig(),
		HealthCheckPool: HealthCheckPoolConfig(),
		BackgroundPool:  BackgroundPoolConfig(),
	}
}

// InitGlobal initialises the global manager with the default pools.
func InitGlobal() error {
	return InitGlobalWithConfig(nil)
}

// InitGlobalWithConfig initialises the global manager. It is a no-op when
// the manager already exists.
func InitGlobalWithConfig(config *GlobalConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return nil
	}
	if config == nil {
		config = DefaultGlobalConfig()
	}

	m := NewManager()
	for typ, cfg := range map[Type]*Config{
		DefaultPool:     config.DefaultPool,
		HealthCheckPool: config.HealthCheckPool,
		BackgroundPool:  config.BackgroundPool,
	} {
		if cfg == nil {
			continue
		}
		if err := m.RegisterWithType(typ, cfg); err != nil {
			m.ReleaseAll()
			return err
		}
	}

	globalManager = m
	logger.Infow("worker pools initialized", "pools", m.List())
	return nil
}

// Global returns the global manager or nil when InitGlobal was not called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager
}

// CloseGlobal releases the global manager.
func CloseGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
}

// CloseGlobalTimeout releases the global manager waiting up to timeout.
func CloseGlobalTimeout(timeout time.Duration) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		return nil
	}
	err := globalManager.ReleaseAllTimeout(timeout)
	globalManager = nil
	return err
}

// Submit schedules task on the global DefaultPool.
func Submit(task func()) error {
	return SubmitToType(DefaultPool, task)
}

// SubmitToType schedules task on the global pool of type typ.
func SubmitToType(typ Type, task func()) error {
	m := Global()
	if m == nil {
		return ErrManagerNotInitialized
	}
	return m.Submit(string(typ), task)
}

// GetByType returns the global pool of type typ.
func GetByType(typ Type) (*Pool, error) {
	m := Global()
	if m == nil {
		return nil, ErrManagerNotInitialized
	}
	return m.GetByType(typ)
}
