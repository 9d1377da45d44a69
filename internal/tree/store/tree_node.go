// Package store implements the tree-node service on top of pkg/service.
//
// Deleting a node deletes its whole subtree in the same transaction, root
// nodes can not be deleted, and a node's parent must exist and can not be
// the node itself.
package store

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/mongokit/internal/tree/model"
	pkgmodel "github.com/kart-io/mongokit/pkg/model"
	"github.com/kart-io/mongokit/pkg/service"
)

// NameIndex is the unique, case-insensitive index on node names.
const NameIndex = "unique-name"

type (
	// TreeNodeService stores tree nodes in the tree_nodes collection.
	TreeNodeService = service.Service[model.TreeNodeCreate, model.TreeNodeUpdate]

	deleteRule = service.DeleteRule[*TreeNodeService, primitive.ObjectID]
	deleteArgs = service.DeleteArgs[primitive.ObjectID]
	validator  = service.Validator[*TreeNodeService]
)

// Config returns the service configuration of tree nodes. now stamps
// created_at and defaults to pkgmodel.NowUTC.
func Config(now func() pkgmodel.UTCDatetime) service.Config[model.TreeNodeCreate, model.TreeNodeUpdate, primitive.ObjectID] {
	if now == nil {
		now = pkgmodel.NowUTC
	}

	return service.Config[model.TreeNodeCreate, model.TreeNodeUpdate, primitive.ObjectID]{
		Indexes: []service.IndexData{
			{
				Keys: model.FieldName.Name(),
				IndexOptions: service.IndexOptions{
					Name:      NameIndex,
					Unique:    true,
					Collation: &options.Collation{Locale: "en", Strength: 1},
				},
			},
		},
		DeleteRules: []deleteRule{
			service.NewDeleteRule[*TreeNodeService, primitive.ObjectID]("dr_delete_subtree", service.DeletePre, deleteSubtree),
			service.NewDeleteRule[*TreeNodeService, primitive.ObjectID]("dr_deny_if_root", service.DeleteDeny, denyIfRoot),
		},
		Validators: []validator{
			service.NewValidator[*TreeNodeService]("v_parent_valid", service.ValidateInsertUpdate, parentValid),
		},
		ConvertForInsert: func(_ context.Context, _ model.TreeNodeCreate, doc bson.M) (interface{}, error) {
			doc[model.FieldCreatedAt.Name()] = now()
			return doc, nil
		},
	}
}

// NewTreeNodeService binds a TreeNodeService to db.
func NewTreeNodeService(db service.Database) (*TreeNodeService, error) {
	return service.New(db, model.CollectionName, Config(nil))
}

// deleteSubtree deletes the children of the deleted nodes. The nested
// delete runs the rules again, which walks the subtree down to the leaves.
func deleteSubtree(ctx context.Context, s *TreeNodeService, args deleteArgs) error {
	childIDs, err := s.FindIDs(ctx, model.FieldParent.In(args.IDs))
	if err != nil {
		return err
	}
	if len(childIDs) == 0 {
		return nil
	}
	_, err = s.DeleteMany(ctx, model.FieldID.In(childIDs))
	return err
}

// denyIfRoot rejects deletes that match a root node.
func denyIfRoot(ctx context.Context, s *TreeNodeService, args deleteArgs) error {
	roots, err := s.CountDocuments(ctx, model.FieldID.In(args.IDs).And(model.FieldParent.Eq(nil)))
	if err != nil {
		return err
	}
	if roots > 0 {
		return ErrDeleteRoot
	}
	return nil
}

// parentValid checks that the parent exists and, for updates, that no
// matched node becomes its own parent.
func parentValid(ctx context.Context, s *TreeNodeService, args service.ValidateArgs) error {
	var parent *primitive.ObjectID
	switch data := args.Data.(type) {
	case model.TreeNodeCreate:
		parent = data.Parent
	case model.TreeNodeUpdate:
		parent = data.Parent.Ptr()
	}
	if parent == nil {
		return nil
	}

	exists, err := s.Exists(ctx, *parent)
	if err != nil {
		return err
	}
	if !exists {
		return ErrParentNotFound
	}

	if _, ok := args.Data.(model.TreeNodeUpdate); !ok {
		return nil
	}
	matched, err := s.FindIDs(ctx, args.Query)
	if err != nil {
		return err
	}
	if slices.Contains(matched, *parent) {
		return ErrSelfReference
	}
	return nil
}
