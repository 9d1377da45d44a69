package store

import (
	"github.com/kart-io/mongokit/pkg/errors"
)

func init() {
	errors.RegisterService(errors.ServiceTree, "tree")
}

var (
	// ErrParentNotFound is returned when a payload names a missing parent.
	ErrParentNotFound = errors.NewRequestError(errors.ServiceTree, 1).
				Message("Parent does not exist.", "父节点不存在。").
				MustBuild()

	// ErrSelfReference is returned when an update makes a node its own parent.
	ErrSelfReference = errors.NewRequestError(errors.ServiceTree, 2).
				Message("Self-reference.", "节点不能引用自身。").
				MustBuild()

	// ErrDeleteRoot is returned when a delete matches a root node.
	ErrDeleteRoot = errors.NewRequestError(errors.ServiceTree, 3).
			Message("Can not delete root nodes.", "不能删除根节点。").
			MustBuild()
)
