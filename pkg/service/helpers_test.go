package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/pkg/service"
	"github.com/kart-io/mongokit/pkg/service/memdb"
)

const nodes = "nodes"

type nodeInsert struct {
	Name     string              `bson:"name" validate:"required"`
	ParentID *primitive.ObjectID `bson:"parent_id"`
	Tags     []string            `bson:"tags,omitempty"`
}

type nodeUpdate struct {
	Name     *string             `bson:"name" validate:"omitnil,min=1"`
	ParentID *primitive.ObjectID `bson:"parent_id"`
}

type (
	nodeService = service.BaseService[nodeInsert, nodeUpdate, primitive.ObjectID]
	nodeConfig  = service.Config[nodeInsert, nodeUpdate, primitive.ObjectID]
	nodeRule    = service.DeleteRule[*nodeService, primitive.ObjectID]
	nodeArgs    = service.DeleteArgs[primitive.ObjectID]
)

func newService(t *testing.T, db *memdb.DB, cfg nodeConfig) *nodeService {
	t.Helper()
	s, err := service.New[nodeInsert, nodeUpdate](db, nodes, cfg)
	require.NoError(t, err)
	return s
}

func insertNode(t *testing.T, s *nodeService, name string, parent *primitive.ObjectID) primitive.ObjectID {
	t.Helper()
	res, err := s.InsertOne(context.Background(), nodeInsert{Name: name, ParentID: parent})
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID)
}

func deleteRule(name string, stage service.DeleteRuleConfig, fn func(ctx context.Context, s *nodeService, args nodeArgs) error) nodeRule {
	return service.NewDeleteRule[*nodeService, primitive.ObjectID](name, stage, fn)
}

func strPtr(s string) *string { return &s }

func countAll(t *testing.T, s *nodeService) int64 {
	t.Helper()
	n, err := s.CountDocuments(context.Background(), bson.M{})
	require.NoError(t, err)
	return n
}
