// Package model defines the documents of the tree-node application.
package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/pkg/model"
	"github.com/kart-io/mongokit/pkg/query"
)

// CollectionName is the collection tree nodes are stored in.
const CollectionName = "tree_nodes"

// TreeNode is a stored tree node. Nodes without a parent are roots.
type TreeNode struct {
	model.Document `bson:",inline"`

	Name      string              `bson:"name" json:"name"`
	Parent    *primitive.ObjectID `bson:"parent" json:"parent"`
	CreatedAt model.UTCDatetime   `bson:"created_at" json:"created_at"`
}

// IsRoot reports whether n has no parent.
func (n *TreeNode) IsRoot() bool {
	return n.Parent == nil
}

// TreeNodeCreate is the payload of node creation.
type TreeNodeCreate struct {
	Name   string              `bson:"name" json:"name" validate:"required,max=128"`
	Parent *primitive.ObjectID `bson:"parent" json:"parent,omitempty"`
}

// TreeNodeUpdate is the payload of node updates. Omitted fields are left
// unchanged, a null parent turns the node into a root.
type TreeNodeUpdate struct {
	Name   *string                            `bson:"name" json:"name,omitempty" validate:"omitnil,min=1,max=128"`
	Parent model.Optional[primitive.ObjectID] `bson:"parent" json:"parent"`
}

// QTreeNode exposes the queryable fields of TreeNode.
var QTreeNode = query.Q[TreeNode]()

// Fields of TreeNode.
var (
	FieldID        = QTreeNode.F("ID")
	FieldName      = QTreeNode.F("Name")
	FieldParent    = QTreeNode.F("Parent")
	FieldCreatedAt = QTreeNode.F("CreatedAt")
)
