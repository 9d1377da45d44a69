package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apierrors "github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/query"
	"github.com/kart-io/mongokit/pkg/service"
	"github.com/kart-io/mongokit/pkg/service/memdb"
)

func TestDeleteWithoutRulesSkipsIDLookup(t *testing.T) {
	db := memdb.New()
	s := newService(t, db, nodeConfig{})
	ctx := context.Background()
	insertNode(t, s, "a", nil)
	insertNode(t, s, "a", nil)

	res, err := s.DeleteOne(ctx, query.F("name").Eq("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)
	assert.Equal(t, 0, db.Coll(nodes).Calls(memdb.OpFind))
	assert.EqualValues(t, 1, countAll(t, s))

	sessions := db.Sessions()
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Ended())
	assert.Equal(t, 0, sessions[0].Started())
}

func TestDeleteOneAmbiguousWithRules(t *testing.T) {
	db := memdb.New()
	ran := false
	s := newService(t, db, nodeConfig{
		DeleteRules: []nodeRule{
			deleteRule("dr_any", service.DeleteDeny, func(context.Context, *nodeService, nodeArgs) error {
				ran = true
				return nil
			}),
		},
	})
	insertNode(t, s, "a", nil)
	insertNode(t, s, "a", nil)

	_, err := s.DeleteOne(context.Background(), bson.M{"name": "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrAmbiguousDelete)
	assert.True(t, apierrors.IsCode(err, service.ErrAmbiguousDelete.Code))
	assert.False(t, ran)
	assert.EqualValues(t, 2, countAll(t, s))
	assert.Equal(t, 0, db.Coll(nodes).Calls(memdb.OpDeleteOne))
}

func TestDeleteRuleOrder(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	var log []string
	record := func(tag string) func(context.Context, *nodeService, nodeArgs) error {
		return func(_ context.Context, _ *nodeService, args nodeArgs) error {
			require.NotNil(t, args.Session)
			assert.True(t, args.Session.InTransaction())
			log = append(log, fmt.Sprintf("%s:%d", tag, len(args.IDs)))
			return nil
		}
	}
	s := newService(t, db, nodeConfig{})
	// registration order is not run order
	s.RegisterDeleteRule(
		deleteRule("dr_post", service.DeletePost, record("post")),
		deleteRule("dr_pre", service.DeletePre, record("pre")),
		deleteRule("dr_deny", service.DeleteDeny, record("deny")),
	)
	insertNode(t, s, "a", nil)
	insertNode(t, s, "b", nil)

	res, err := s.DeleteMany(context.Background(), bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.DeletedCount)
	assert.Equal(t, []string{"deny:2", "pre:2", "post:2"}, log)

	sessions := db.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Committed())
	assert.True(t, sessions[0].Ended())
}

func TestDeleteRulesWithinStageRunInDeclarationOrder(t *testing.T) {
	var log []string
	record := func(tag string) func(context.Context, *nodeService, nodeArgs) error {
		return func(context.Context, *nodeService, nodeArgs) error {
			log = append(log, tag)
			return nil
		}
	}
	s := newService(t, memdb.New(), nodeConfig{
		DeleteRules: []nodeRule{
			deleteRule("dr_a", service.DeletePre, record("A")),
			deleteRule("dr_b", service.DeletePre, record("B")),
			deleteRule("dr_c", service.DeletePre, record("C")),
		},
	})
	id := insertNode(t, s, "a", nil)

	res, err := s.DeleteByID(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)
	assert.Equal(t, []string{"A", "B", "C"}, log)
}

func TestDeleteWithNoMatchRunsNoRules(t *testing.T) {
	db := memdb.New()
	ran := false
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(deleteRule("dr_pre", service.DeletePre, func(context.Context, *nodeService, nodeArgs) error {
		ran = true
		return nil
	}))

	res, err := s.DeleteMany(context.Background(), bson.M{"name": "nothing"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.DeletedCount)
	assert.False(t, ran)
	assert.Equal(t, 1, db.Coll(nodes).Calls(memdb.OpDeleteMany))
}

func TestDenyRulePreventsDelete(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	denied := errors.New("root nodes cannot be deleted")
	preRan := false
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(
		deleteRule("dr_deny_if_root", service.DeleteDeny, func(ctx context.Context, s *nodeService, args nodeArgs) error {
			n, err := s.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": args.IDs}, "parent_id": nil})
			if err != nil {
				return err
			}
			if n > 0 {
				return denied
			}
			return nil
		}),
		deleteRule("dr_pre", service.DeletePre, func(context.Context, *nodeService, nodeArgs) error {
			preRan = true
			return nil
		}),
	)
	root := insertNode(t, s, "root", nil)

	_, err := s.DeleteByID(context.Background(), root)
	require.Error(t, err)
	assert.True(t, service.IsDeleteError(err))
	assert.ErrorIs(t, err, service.ErrDelete)
	assert.ErrorIs(t, err, denied)
	assert.False(t, preRan)
	assert.EqualValues(t, 1, countAll(t, s))
	assert.Equal(t, 0, db.Coll(nodes).Calls(memdb.OpDeleteOne))

	sessions := db.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Aborted())
	assert.Equal(t, 0, sessions[0].Committed())
}

func TestPostRuleFailure(t *testing.T) {
	failing := func() nodeRule {
		return deleteRule("dr_post", service.DeletePost, func(context.Context, *nodeService, nodeArgs) error {
			return errors.New("post failed")
		})
	}

	t.Run("replica set rolls back", func(t *testing.T) {
		db := memdb.New(memdb.WithReplicaSet(true))
		s := newService(t, db, nodeConfig{DeleteRules: []nodeRule{failing()}})
		id := insertNode(t, s, "a", nil)

		_, err := s.DeleteByID(context.Background(), id)
		assert.True(t, service.IsDeleteError(err))
		assert.EqualValues(t, 1, countAll(t, s))
	})

	t.Run("standalone keeps the delete", func(t *testing.T) {
		db := memdb.New()
		s := newService(t, db, nodeConfig{DeleteRules: []nodeRule{failing()}})
		id := insertNode(t, s, "a", nil)

		_, err := s.DeleteByID(context.Background(), id)
		assert.True(t, service.IsDeleteError(err))
		assert.EqualValues(t, 0, countAll(t, s))
	})
}

func TestCascadingDeleteJoinsTransaction(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(deleteRule("dr_delete_subtree", service.DeletePre, func(ctx context.Context, s *nodeService, args nodeArgs) error {
		assert.Same(t, args.Session, s.Database().SessionFromContext(ctx))
		_, err := s.DeleteMany(ctx, query.F("parent_id").In(args.IDs))
		return err
	}))

	root := insertNode(t, s, "root", nil)
	a := insertNode(t, s, "a", &root)
	insertNode(t, s, "a1", &a)
	insertNode(t, s, "a2", &a)
	b := insertNode(t, s, "b", &root)
	insertNode(t, s, "b1", &b)
	other := insertNode(t, s, "other", nil)

	res, err := s.DeleteByID(context.Background(), a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)
	assert.EqualValues(t, 4, countAll(t, s))

	res, err = s.DeleteByID(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.DeletedCount)

	ids, err := s.FindIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{other}, ids)

	sessions := db.Sessions()
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.Equal(t, 1, sess.Started())
		assert.Equal(t, 1, sess.Committed())
	}
}

func TestCallerSessionInTransactionIsNotCommitted(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(deleteRule("dr_noop", service.DeletePre, func(context.Context, *nodeService, nodeArgs) error { return nil }))
	ctx := context.Background()
	id := insertNode(t, s, "a", nil)

	sess, err := db.StartSession(ctx)
	require.NoError(t, err)
	defer sess.EndSession(ctx)
	require.NoError(t, sess.StartTransaction())

	_, err = s.DeleteByID(sess.Context(ctx), id)
	require.NoError(t, err)

	assert.True(t, sess.InTransaction())
	assert.Len(t, db.Sessions(), 1)
	assert.Equal(t, 0, db.Probes())

	require.NoError(t, sess.AbortTransaction(ctx))
	assert.EqualValues(t, 1, countAll(t, s))
}

func TestCallerSessionWithoutTransaction(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{})
	ctx := context.Background()
	id := insertNode(t, s, "a", nil)

	sess, err := db.StartSession(ctx)
	require.NoError(t, err)

	_, err = s.DeleteByID(sess.Context(ctx), id)
	require.NoError(t, err)

	ms := db.Sessions()
	require.Len(t, ms, 1)
	assert.Equal(t, 1, ms[0].Committed())
	assert.False(t, ms[0].Ended())
	sess.EndSession(ctx)
}

func TestTransactionProbeIsMemoised(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{})
	ctx := context.Background()

	boom := errors.New("probe failed")
	db.FailNext(memdb.OpProbe, boom)
	_, err := s.DeleteMany(ctx, bson.M{})
	assert.ErrorIs(t, err, boom)

	for i := 0; i < 3; i++ {
		_, err := s.DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, db.Probes())

	ok, err := s.SupportsTransactions(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, db.Probes())
}

func TestCommitFailure(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	s := newService(t, db, nodeConfig{})
	id := insertNode(t, s, "a", nil)

	db.FailNext(memdb.OpCommit, errors.New("write conflict"))
	_, err := s.DeleteByID(context.Background(), id)
	assert.ErrorIs(t, err, apierrors.ErrDBTransaction)

	// ending the session aborts the uncommitted transaction
	assert.EqualValues(t, 1, countAll(t, s))
}

func TestDeleteManyLargeBatch(t *testing.T) {
	const total = 997
	db := memdb.New(memdb.WithReplicaSet(true))
	seen := 0
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(deleteRule("dr_count", service.DeletePre, func(_ context.Context, _ *nodeService, args nodeArgs) error {
		seen = len(args.IDs)
		return nil
	}))
	ctx := context.Background()

	batch := make([]nodeInsert, 0, total)
	for i := 0; i < total; i++ {
		batch = append(batch, nodeInsert{Name: fmt.Sprintf("node-%03d", i)})
	}
	res, err := s.InsertMany(ctx, batch)
	require.NoError(t, err)
	require.Len(t, res.InsertedIDs, total)

	del, err := s.DeleteMany(ctx, query.F("name").Regex("^node-"))
	require.NoError(t, err)
	assert.EqualValues(t, total, del.DeletedCount)
	assert.Equal(t, total, seen)
	assert.EqualValues(t, 0, countAll(t, s))
}

func TestDeleteDriverFailureAbortsTransaction(t *testing.T) {
	db := memdb.New(memdb.WithReplicaSet(true))
	postRan := false
	s := newService(t, db, nodeConfig{})
	s.RegisterDeleteRule(
		deleteRule("dr_pre", service.DeletePre, func(ctx context.Context, s *nodeService, _ nodeArgs) error {
			_, err := s.InsertOne(ctx, nodeInsert{Name: "audit"})
			return err
		}),
		deleteRule("dr_post", service.DeletePost, func(context.Context, *nodeService, nodeArgs) error {
			postRan = true
			return nil
		}),
	)
	id := insertNode(t, s, "a", nil)

	boom := errors.New("network")
	db.Coll(nodes).FailNext(memdb.OpDeleteOne, boom)
	_, err := s.DeleteByID(context.Background(), id)
	assert.ErrorIs(t, err, boom)
	assert.False(t, postRan)

	docs := db.Coll(nodes).Docs()
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["name"])
}
