// Package storage defines the contract shared by storage clients and a
// Manager that registers them, checks their health and closes them on
// shutdown.
//
// A client implements Client:
//
//	type Client interface {
//	    Name() string
//	    Ping(ctx context.Context) error
//	    Close() error
//	    Health() HealthChecker
//	}
//
// The tree application registers its MongoDB client and serves the result of
// Manager.HealthCheckAll on /healthz:
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("mongodb", client)
//	defer mgr.CloseAll()
//
//	for name, st := range mgr.HealthCheckAll(ctx) {
//	    if !st.Healthy {
//	        logger.Warnw("storage unhealthy", "name", name, "error", st.Error)
//	    }
//	}
//
// Health checks run on the pool.HealthCheckPool worker pool when the global
// pool manager is initialised, otherwise on plain goroutines.
package storage
