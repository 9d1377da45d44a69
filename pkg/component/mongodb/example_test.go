package mongodb_test

import (
	"context"
	"time"

	"github.com/kart-io/mongokit/pkg/component/mongodb"
	"github.com/kart-io/mongokit/pkg/component/storage"
)

func ExampleNew() {
	opts := mongodb.NewOptions()
	opts.Host = "localhost"
	opts.Database = "tree"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongodb.NewWithContext(ctx, opts)
	if err != nil {
		return
	}
	defer func() { _ = client.Close() }()

	mgr := storage.NewManager()
	mgr.MustRegister(client.Name(), client)
	_ = mgr.AllHealthy(ctx)
}
