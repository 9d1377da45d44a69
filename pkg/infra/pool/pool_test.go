package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", HealthCheckPool, nil)
	require.NoError(t, err)
	defer p.Release()

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, HealthCheckPool, p.Type())
	assert.Equal(t, 1000, p.Cap())
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{Capacity: 10, ExpiryDuration: 5 * time.Second})
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			wg.Done()
			t.Errorf("submit: %v", err)
		}
	}
	wg.Wait()

	assert.EqualValues(t, 100, counter.Load())
	assert.Eventually(t, func() bool {
		return p.Stats().CompletedTasks == 100
	}, time.Second, 10*time.Millisecond)
}

func TestPoolSubmitWithContext(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{Capacity: 5, ExpiryDuration: 5 * time.Second})
	require.NoError(t, err)
	defer p.Release()

	done := make(chan struct{})
	require.NoError(t, p.SubmitWithContext(context.Background(), func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.SubmitWithContext(ctx, func() { t.Error("cancelled task ran") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolPanicRecovery(t *testing.T) {
	caught := make(chan interface{}, 1)
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
		PanicHandler:   func(r interface{}) { caught <- r },
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case r := <-caught:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic handler not called")
	}
	assert.EqualValues(t, 1, p.Stats().PanicRecovered)
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{Capacity: 5, ExpiryDuration: time.Second})
	require.NoError(t, err)

	p.Release()
	p.Release()

	err = p.Submit(func() { t.Error("closed pool ran a task") })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolNonblocking(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       1,
		ExpiryDuration: 5 * time.Second,
		Nonblocking:    true,
	})
	require.NoError(t, err)
	defer p.Release()

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	err = p.Submit(func() { t.Error("overloaded pool ran a task") })
	assert.ErrorIs(t, err, ErrPoolOverload)
	assert.EqualValues(t, 1, p.Stats().RejectedTasks)
}

func TestManager(t *testing.T) {
	mgr := NewManager()
	defer mgr.ReleaseAll()

	require.NoError(t, mgr.Register("checks", HealthCheckPool, &Config{Capacity: 10, ExpiryDuration: time.Second}))
	assert.ErrorIs(t, mgr.Register("checks", HealthCheckPool, nil), ErrPoolAlreadyExists)
	require.NoError(t, mgr.RegisterWithType(BackgroundPool, BackgroundPoolConfig()))

	p, err := mgr.Get("checks")
	require.NoError(t, err)
	assert.Equal(t, HealthCheckPool, p.Type())

	_, err = mgr.Get("missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)

	done := make(chan struct{})
	require.NoError(t, mgr.Submit("checks", func() { close(done) }))
	<-done

	assert.Equal(t, []string{"background", "checks"}, mgr.List())

	stats := mgr.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 10, stats["checks"].Capacity)

	require.NoError(t, mgr.Release("background"))
	assert.ErrorIs(t, mgr.Release("background"), ErrPoolNotFound)

	mgr.ReleaseAll()
	assert.True(t, mgr.IsClosed())
	_, err = mgr.Get("checks")
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestGlobalPool(t *testing.T) {
	CloseGlobal()
	_, err := GetByType(HealthCheckPool)
	assert.ErrorIs(t, err, ErrManagerNotInitialized)

	require.NoError(t, InitGlobal())
	defer CloseGlobal()
	// second call keeps the existing manager
	first := Global()
	require.NoError(t, InitGlobal())
	assert.Same(t, first, Global())

	assert.Equal(t, []string{"background", "default", "health-check"}, Global().List())

	done := make(chan struct{})
	require.NoError(t, Submit(func() { close(done) }))
	<-done

	p, err := GetByType(HealthCheckPool)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Cap())
}

func BenchmarkPoolSubmit(b *testing.B) {
	p, _ := NewPool("bench", DefaultPool, &Config{
		Capacity:       1000,
		ExpiryDuration: 5 * time.Second,
		PreAlloc:       true,
	})
	defer p.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = p.Submit(func() {})
		}
	})
}
