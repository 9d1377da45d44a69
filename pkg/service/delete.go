package service

import (
	"context"

	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/infra/tracing"
	"github.com/kart-io/mongokit/pkg/query"
)

// DeleteByID deletes the document with the given id.
func (s *BaseService[TInsert, TUpdate, TKey]) DeleteByID(
	ctx context.Context,
	id TKey,
	opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	return s.DeleteOne(ctx, bson.M{"_id": id}, opts...)
}

// DeleteOne deletes the first document matching q.
//
// With delete rules registered the filter must be unambiguous:
// ErrAmbiguousDelete is returned, before any rule runs, when it matches more
// than one document.
func (s *BaseService[TInsert, TUpdate, TKey]) DeleteOne(
	ctx context.Context,
	q query.Filter,
	opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	return s.delete(ctx, "delete_one", q, true, opts)
}

// DeleteMany deletes every document matching q.
func (s *BaseService[TInsert, TUpdate, TKey]) DeleteMany(
	ctx context.Context,
	q query.Filter,
	opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	return s.delete(ctx, "delete_many", q, false, opts)
}

// delete runs a delete with its rules:
//
//  1. reuse the session bound to ctx or start one owned by this call
//  2. resolve the matching ids, only when delete rules exist
//  3. start a transaction unless one is running or the deployment has none
//  4. run deny then pre rules for a non-empty id list
//  5. delete
//  6. run post rules for a non-empty id list
//  7. commit a transaction started here, abort it on any error
func (s *BaseService[TInsert, TUpdate, TKey]) delete(
	ctx context.Context,
	op string,
	q query.Filter,
	one bool,
	opts []*options.DeleteOptions,
) (res *mongo.DeleteResult, err error) {
	ctx, span := s.startSpan(ctx, op)
	defer func() { endSpan(ctx, span, err) }()

	sess := s.db.SessionFromContext(ctx)
	if sess == nil {
		owned, err := s.db.StartSession(ctx)
		if err != nil {
			return nil, err
		}
		defer owned.EndSession(context.WithoutCancel(ctx))
		sess = owned
	}
	sctx := sess.Context(ctx)

	var ids []TKey
	if s.HasDeleteRules() {
		if ids, err = s.FindIDs(sctx, q); err != nil {
			return nil, err
		}
		if one && len(ids) > 1 {
			return nil, ErrAmbiguousDelete.WithMessagef("Ambiguous DeleteOne on %s: %d documents match the query", s.name, len(ids))
		}
	}

	startedTx := false
	if !sess.InTransaction() {
		supported, err := s.SupportsTransactions(sctx)
		if err != nil {
			return nil, err
		}
		if supported {
			if err := sess.StartTransaction(); err != nil {
				return nil, errors.ErrDBTransaction.WithCause(err)
			}
			startedTx = true
		}
	}

	tracing.AddSpanAttributes(ctx,
		tracing.Int("mongokit.delete.ids", len(ids)),
		tracing.Bool("mongokit.delete.transaction", startedTx),
	)
	logger.Debugw("Deleting documents",
		"collection", s.name,
		"operation", op,
		"ids", len(ids),
		"transaction", startedTx,
	)

	res, err = s.runDelete(sctx, sess, q, ids, one, opts)
	if !startedTx {
		return res, err
	}

	if err != nil {
		if abortErr := sess.AbortTransaction(context.WithoutCancel(sctx)); abortErr != nil {
			logger.Warnw("Failed to abort delete transaction", "collection", s.name, "error", abortErr)
		}
		return nil, err
	}
	if err := sess.CommitTransaction(sctx); err != nil {
		return nil, errors.ErrDBTransaction.WithCause(err)
	}
	return res, nil
}

// runDelete is steps 4 to 6 of delete. ids is frozen for all rules.
func (s *BaseService[TInsert, TUpdate, TKey]) runDelete(
	ctx context.Context,
	sess Session,
	q query.Filter,
	ids []TKey,
	one bool,
	opts []*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	args := DeleteArgs[TKey]{Session: sess, IDs: ids}

	if len(ids) > 0 {
		if err := s.runDeleteRules(ctx, DeleteDeny, args); err != nil {
			return nil, err
		}
		if err := s.runDeleteRules(ctx, DeletePre, args); err != nil {
			return nil, err
		}
	}

	var (
		res *mongo.DeleteResult
		err error
	)
	if one {
		res, err = s.Collection().DeleteOne(ctx, query.Compile(q), opts...)
	} else {
		res, err = s.Collection().DeleteMany(ctx, query.Compile(q), opts...)
	}
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		if err := s.runDeleteRules(ctx, DeletePost, args); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *BaseService[TInsert, TUpdate, TKey]) runDeleteRules(ctx context.Context, stage DeleteRuleConfig, args DeleteArgs[TKey]) error {
	for _, rule := range s.deleteRules {
		if rule.Config() != stage {
			continue
		}
		if err := rule.Invoke(ctx, s, args); err != nil {
			logger.Warnw("Delete rule failed",
				"collection", s.name,
				"rule", rule.Name(),
				"stage", string(stage),
				"ids", len(args.IDs),
				"error", err,
			)
			return err
		}
	}
	return nil
}
