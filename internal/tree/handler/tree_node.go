// Package handler implements the HTTP handlers of the tree-node API.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/internal/tree/model"
	"github.com/kart-io/mongokit/internal/tree/store"
	"github.com/kart-io/mongokit/pkg/errors"
	pkgmodel "github.com/kart-io/mongokit/pkg/model"
	"github.com/kart-io/mongokit/pkg/service"
	"github.com/kart-io/mongokit/pkg/utils/json"
	"github.com/kart-io/mongokit/pkg/utils/response"
)

// TreeNodeHandler serves /tree-node.
type TreeNodeHandler struct {
	svc *store.TreeNodeService
}

// NewTreeNodeHandler creates a TreeNodeHandler.
func NewTreeNodeHandler(svc *store.TreeNodeService) *TreeNodeHandler {
	return &TreeNodeHandler{svc: svc}
}

// List returns every tree node.
func (h *TreeNodeHandler) List(c *gin.Context) {
	docs, err := h.svc.FindAll(c.Request.Context(), nil)
	if err != nil {
		response.Fail(c, err)
		return
	}

	nodes, err := pkgmodel.DecodeAll[model.TreeNode](docs)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, nodes)
}

// Create inserts a node and returns it as stored.
func (h *TreeNodeHandler) Create(c *gin.Context) {
	var req model.TreeNodeCreate
	if err := bind(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.svc.InsertOne(ctx, req)
	if err != nil {
		logger.Warnw("Failed to create tree node", "name", req.Name, "error", err)
		response.Fail(c, ErrCreateFailed.WithCause(err))
		return
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		response.Fail(c, ErrCreatedNodeMissing)
		return
	}
	node, err := h.get(c, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if node == nil {
		response.Fail(c, ErrCreatedNodeMissing.WithMessagef("Created tree node %s could not be read back.", id.Hex()))
		return
	}
	response.OK(c, node)
}

// Get returns one node.
func (h *TreeNodeHandler) Get(c *gin.Context) {
	id, err := pkgmodel.ParseObjectID(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}

	node, err := h.get(c, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if node == nil {
		response.Fail(c, notFound(id))
		return
	}
	response.OK(c, node)
}

// Update applies the supplied fields and returns the updated node.
func (h *TreeNodeHandler) Update(c *gin.Context) {
	id, err := pkgmodel.ParseObjectID(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req model.TreeNodeUpdate
	if err := bind(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	res, err := h.svc.UpdateByID(c.Request.Context(), id, req)
	if err != nil {
		logger.Warnw("Failed to update tree node", "id", id.Hex(), "error", err)
		response.Fail(c, ErrUpdateFailed.WithMessagef("Update of tree node %s failed.", id.Hex()).WithCause(err))
		return
	}
	if res.MatchedCount == 0 {
		response.Fail(c, notFound(id))
		return
	}

	node, err := h.get(c, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if node == nil {
		response.Fail(c, notFound(id))
		return
	}
	response.OK(c, node)
}

// Delete deletes a node with its subtree.
func (h *TreeNodeHandler) Delete(c *gin.Context) {
	id, err := pkgmodel.ParseObjectID(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}

	res, err := h.svc.DeleteByID(c.Request.Context(), id)
	if err != nil {
		if service.IsDeleteError(err) {
			logger.Warnw("Tree node delete rejected", "id", id.Hex(), "error", err)
			response.Fail(c, ErrDeleteRejected.WithMessagef("Delete of tree node %s rejected.", id.Hex()).WithCause(err))
			return
		}
		response.Fail(c, err)
		return
	}
	if res.DeletedCount == 0 {
		response.Fail(c, notFound(id))
		return
	}
	response.OK(c, pkgmodel.DeleteResult{DeleteCount: res.DeletedCount})
}

func (h *TreeNodeHandler) get(c *gin.Context, id primitive.ObjectID) (*model.TreeNode, error) {
	doc, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil || doc == nil {
		return nil, err
	}
	return decode(doc)
}

func decode(doc bson.M) (*model.TreeNode, error) {
	return pkgmodel.Decode[model.TreeNode](doc)
}

func notFound(id primitive.ObjectID) *errors.Errno {
	return ErrNodeNotFound.WithMessagef("Tree node %s not found.", id.Hex())
}

// bind decodes the JSON request body into v.
func bind(c *gin.Context, v interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return errors.ErrBadRequest.WithCause(err)
	}
	if len(body) == 0 {
		return errors.ErrBadRequest.WithMessage("Request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.ErrBadRequest.WithMessagef("Invalid request body: %v", err)
	}
	return nil
}
