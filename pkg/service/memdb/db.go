// Package memdb is an in-memory implementation of service.Database.
//
// It understands the query, update and aggregation subset the service layer
// and its tests use, enforces unique indexes and emulates transactions by
// snapshotting every collection when a transaction starts. Transactions are
// not isolated from each other: aborting one restores the snapshot and
// discards concurrent writes made outside it.
//
// Every operation is counted and can be made to fail once with FailNext,
// which lets tests assert which driver calls a service issued.
package memdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/mongokit/pkg/cache"
	"github.com/kart-io/mongokit/pkg/service"
)

// Database level operation names accepted by DB.FailNext.
const (
	OpProbe        = "probe"
	OpStartSession = "start_session"
	OpCommit       = "commit"
	OpAbort        = "abort"
)

var (
	// ErrNoTransaction is returned when committing or aborting a session
	// without a running transaction.
	ErrNoTransaction = errors.New("memdb: no transaction started")
	// ErrTransactionInProgress is returned when starting a second
	// transaction on a session.
	ErrTransactionInProgress = errors.New("memdb: transaction already in progress")
	// ErrSessionEnded is returned when using an ended session.
	ErrSessionEnded = errors.New("memdb: session ended")
)

// Option configures a DB.
type Option func(*DB)

// WithReplicaSet makes the transaction probe report support.
func WithReplicaSet(enabled bool) Option {
	return func(d *DB) { d.replicaSet = enabled }
}

// DB is an in-memory database.
type DB struct {
	mu sync.Mutex

	replicaSet  bool
	collections map[string]*Collection
	sessions    []*Session
	probes      int
	failures    map[string]error
}

var _ service.Database = (*DB)(nil)

// New creates an empty database. By default it behaves like a standalone
// server without transaction support.
func New(opts ...Option) *DB {
	d := &DB{
		collections: make(map[string]*Collection),
		failures:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Collection returns the named collection, creating it on first use.
func (d *DB) Collection(name string, _ ...*options.CollectionOptions) service.Collection {
	return d.Coll(name)
}

// Coll is Collection with the concrete type, for test assertions.
func (d *DB) Coll(name string) *Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collection(name)
}

func (d *DB) collection(name string) *Collection {
	c, ok := d.collections[name]
	if !ok {
		c = newCollection(d, name)
		d.collections[name] = c
	}
	return c
}

// StartSession starts a session.
func (d *DB) StartSession(_ context.Context) (service.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(OpStartSession); err != nil {
		return nil, err
	}
	s := &Session{db: d}
	d.sessions = append(d.sessions, s)
	return s, nil
}

// SessionFromContext returns the session bound to ctx by Session.Context.
func (d *DB) SessionFromContext(ctx context.Context) service.Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
		return s
	}
	return nil
}

// SupportsTransactions reports the WithReplicaSet setting and counts the
// call.
func (d *DB) SupportsTransactions(_ context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.probes++
	if err := d.takeFailure(OpProbe); err != nil {
		return false, err
	}
	return d.replicaSet, nil
}

// Probes returns how many times SupportsTransactions was called.
func (d *DB) Probes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probes
}

// Sessions returns the sessions started so far, oldest first.
func (d *DB) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.sessions...)
}

// FailNext makes the next call of a database level operation fail with err.
func (d *DB) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

func (d *DB) takeFailure(op string) error {
	err, ok := d.failures[op]
	if ok {
		delete(d.failures, op)
	}
	return err
}

func (d *DB) snapshot() map[string]cache.Snapshot[string, bson.M] {
	snap := make(map[string]cache.Snapshot[string, bson.M], len(d.collections))
	for name, c := range d.collections {
		snap[name] = c.docs.Snapshot()
	}
	return snap
}

func (d *DB) restore(snap map[string]cache.Snapshot[string, bson.M]) {
	for name, c := range d.collections {
		if s, ok := snap[name]; ok {
			c.docs.Restore(s)
		} else {
			c.docs.Clear()
		}
	}
}

type sessionKey struct{}

// Session is an in-memory logical session.
type Session struct {
	db *DB

	inTx      bool
	ended     bool
	snap      map[string]cache.Snapshot[string, bson.M]
	started   int
	committed int
	aborted   int
}

var _ service.Session = (*Session)(nil)

// InTransaction reports whether a transaction is running.
func (s *Session) InTransaction() bool {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.inTx
}

// StartTransaction snapshots the database.
func (s *Session) StartTransaction() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	switch {
	case s.ended:
		return ErrSessionEnded
	case s.inTx:
		return ErrTransactionInProgress
	}
	s.snap = s.db.snapshot()
	s.inTx = true
	s.started++
	return nil
}

// CommitTransaction keeps the writes made since StartTransaction.
func (s *Session) CommitTransaction(_ context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.inTx {
		return ErrNoTransaction
	}
	if err := s.db.takeFailure(OpCommit); err != nil {
		return err
	}
	s.inTx, s.snap = false, nil
	s.committed++
	return nil
}

// AbortTransaction restores the snapshot taken by StartTransaction.
func (s *Session) AbortTransaction(_ context.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.inTx {
		return ErrNoTransaction
	}
	if err := s.db.takeFailure(OpAbort); err != nil {
		return err
	}
	s.abort()
	return nil
}

func (s *Session) abort() {
	s.db.restore(s.snap)
	s.inTx, s.snap = false, nil
	s.aborted++
}

// EndSession aborts a running transaction and ends the session.
func (s *Session) EndSession(_ context.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.inTx {
		s.abort()
	}
	s.ended = true
}

// Context binds the session to ctx.
func (s *Session) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Started returns how many transactions were started.
func (s *Session) Started() int { return s.count(&s.started) }

// Committed returns how many transactions were committed.
func (s *Session) Committed() int { return s.count(&s.committed) }

// Aborted returns how many transactions were aborted, including the one
// EndSession aborts.
func (s *Session) Aborted() int { return s.count(&s.aborted) }

// Ended reports whether EndSession was called.
func (s *Session) Ended() bool {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.ended
}

func (s *Session) count(n *int) int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return *n
}

// String describes the session state.
func (s *Session) String() string {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fmt.Sprintf("session{inTx=%t ended=%t started=%d committed=%d aborted=%d}",
		s.inTx, s.ended, s.started, s.committed, s.aborted)
}
