package handler

import (
	"net/http"

	"github.com/kart-io/mongokit/pkg/errors"
)

var (
	// ErrCreateFailed is returned for any failed insert.
	ErrCreateFailed = errors.NewRequestError(errors.ServiceTree, 101).
			Message("Creation failed.", "创建失败。").
			MustBuild()

	// ErrUpdateFailed is returned for any failed update.
	ErrUpdateFailed = errors.NewRequestError(errors.ServiceTree, 102).
			Message("Update failed.", "更新失败。").
			MustBuild()

	// ErrDeleteRejected is returned when a delete rule rejects a delete.
	ErrDeleteRejected = errors.NewRequestError(errors.ServiceTree, 103).
				Message("Delete rejected.", "删除被拒绝。").
				MustBuild()

	// ErrNodeNotFound is returned when no node has the requested id.
	ErrNodeNotFound = errors.NewNotFoundError(errors.ServiceTree, 1).
			Message("Tree node not found.", "节点不存在。").
			MustBuild()

	// ErrCreatedNodeMissing is returned when a created node can not be read back.
	ErrCreatedNodeMissing = errors.NewConflictError(errors.ServiceTree, 1).
				Message("Created tree node could not be read back.", "无法读取已创建的节点。").
				MustBuild()

	// ErrUnhealthy is returned by the health endpoint when a storage client fails.
	ErrUnhealthy = errors.NewBuilder(errors.ServiceTree, errors.CategoryNetwork, 1).
			HTTP(http.StatusServiceUnavailable).
			Message("Storage unavailable.", "存储不可用。").
			MustBuild()
)
