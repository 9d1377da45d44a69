package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/mongokit/internal/tree/handler"
	"github.com/kart-io/mongokit/internal/tree/model"
	"github.com/kart-io/mongokit/internal/tree/router"
	"github.com/kart-io/mongokit/internal/tree/store"
	"github.com/kart-io/mongokit/pkg/component/storage"
	pkgmodel "github.com/kart-io/mongokit/pkg/model"
	"github.com/kart-io/mongokit/pkg/service/memdb"
	"github.com/kart-io/mongokit/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubHealth map[string]storage.HealthStatus

func (s stubHealth) HealthCheckAll(context.Context) map[string]storage.HealthStatus { return s }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	db     *memdb.DB
}

func newAPI(t *testing.T, health handler.HealthChecker) *api {
	t.Helper()
	db := memdb.New(memdb.WithReplicaSet(true))
	svc, err := store.NewTreeNodeService(db)
	require.NoError(t, err)
	require.NoError(t, svc.CreateIndexes(context.Background()))

	if health == nil {
		health = stubHealth{}
	}
	engine := router.NewEngine()
	router.Register(engine, svc, health)
	return &api{t: t, engine: engine, db: db}
}

func (a *api) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *api) create(name string, parent *primitive.ObjectID) model.TreeNode {
	a.t.Helper()
	body := map[string]interface{}{"name": name}
	if parent != nil {
		body["parent"] = parent.Hex()
	}
	status, env := a.do(http.MethodPost, "/api/v1/tree-node/", body)
	require.Equal(a.t, http.StatusOK, status, env.Message)

	var node model.TreeNode
	require.NoError(a.t, json.Unmarshal(env.Data, &node))
	return node
}

func nodePath(id primitive.ObjectID) string {
	return "/api/v1/tree-node/" + id.Hex()
}

func TestCreateAndGet(t *testing.T) {
	a := newAPI(t, nil)

	root := a.create("root", nil)
	assert.False(t, root.ID.IsZero())
	assert.Nil(t, root.Parent)
	assert.False(t, root.CreatedAt.IsZero())

	child := a.create("child", &root.ID)
	require.NotNil(t, child.Parent)
	assert.Equal(t, root.ID, *child.Parent)

	status, env := a.do(http.MethodGet, nodePath(child.ID), nil)
	assert.Equal(t, http.StatusOK, status)
	var got model.TreeNode
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "child", got.Name)

	status, env = a.do(http.MethodGet, "/api/v1/tree-node/", nil)
	assert.Equal(t, http.StatusOK, status)
	var all []model.TreeNode
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 2)
}

func TestCreateFailures(t *testing.T) {
	a := newAPI(t, nil)
	a.create("root", nil)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"duplicate name", map[string]interface{}{"name": "ROOT"}, handler.ErrCreateFailed.Code},
		{"missing parent", map[string]interface{}{"name": "x", "parent": primitive.NewObjectID().Hex()}, handler.ErrCreateFailed.Code},
		{"empty name", map[string]interface{}{"name": ""}, handler.ErrCreateFailed.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := a.do(http.MethodPost, "/api/v1/tree-node/", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, env.Code)
			assert.Equal(t, "Creation failed.", env.Message)
		})
	}
}

func TestGetStatuses(t *testing.T) {
	a := newAPI(t, nil)

	status, env := a.do(http.MethodGet, nodePath(primitive.NewObjectID()), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, handler.ErrNodeNotFound.Code, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/tree-node/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, pkgmodel.ErrInvalidObjectID.Code, env.Code)
}

func TestUpdate(t *testing.T) {
	a := newAPI(t, nil)
	root := a.create("root", nil)
	other := a.create("other", nil)
	child := a.create("child", &root.ID)

	t.Run("move", func(t *testing.T) {
		status, env := a.do(http.MethodPut, nodePath(child.ID), map[string]interface{}{"parent": other.ID.Hex()})
		require.Equal(t, http.StatusOK, status, env.Message)
		var got model.TreeNode
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "child", got.Name)
		assert.Equal(t, other.ID, *got.Parent)
	})

	t.Run("null parent makes a root", func(t *testing.T) {
		status, env := a.do(http.MethodPut, nodePath(child.ID), map[string]interface{}{"parent": nil})
		require.Equal(t, http.StatusOK, status, env.Message)
		var got model.TreeNode
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Nil(t, got.Parent)
		assert.Equal(t, "child", got.Name)

		status, env = a.do(http.MethodPut, nodePath(child.ID), map[string]interface{}{"parent": other.ID.Hex()})
		require.Equal(t, http.StatusOK, status, env.Message)
	})

	t.Run("empty body changes nothing", func(t *testing.T) {
		status, env := a.do(http.MethodPut, nodePath(child.ID), map[string]interface{}{})
		require.Equal(t, http.StatusOK, status, env.Message)
		var got model.TreeNode
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, other.ID, *got.Parent)
	})

	t.Run("self reference", func(t *testing.T) {
		status, env := a.do(http.MethodPut, nodePath(child.ID), map[string]interface{}{"parent": child.ID.Hex()})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, handler.ErrUpdateFailed.Code, env.Code)
	})

	t.Run("missing node", func(t *testing.T) {
		status, env := a.do(http.MethodPut, nodePath(primitive.NewObjectID()), map[string]interface{}{"name": "x"})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, handler.ErrNodeNotFound.Code, env.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, nodePath(child.ID), bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		a.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDelete(t *testing.T) {
	a := newAPI(t, nil)
	root := a.create("root", nil)
	child := a.create("child", &root.ID)
	grandchild := a.create("grandchild", &child.ID)

	status, env := a.do(http.MethodDelete, nodePath(root.ID), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, handler.ErrDeleteRejected.Code, env.Code)

	status, env = a.do(http.MethodDelete, nodePath(child.ID), nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var res pkgmodel.DeleteResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, int64(1), res.DeleteCount)

	status, _ = a.do(http.MethodGet, nodePath(grandchild.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 1, a.db.Coll(model.CollectionName).Len())

	status, env = a.do(http.MethodDelete, nodePath(child.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, handler.ErrNodeNotFound.Code, env.Code)
}

func TestHealth(t *testing.T) {
	healthy := stubHealth{"mongodb": {Name: "mongodb", Healthy: true}}
	status, env := newAPI(t, healthy).do(http.MethodGet, router.HealthPath, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)

	failing := stubHealth{"mongodb": {Name: "mongodb", Error: fmt.Errorf("no reachable servers")}}
	status, env = newAPI(t, failing).do(http.MethodGet, router.HealthPath, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, handler.ErrUnhealthy.Code, env.Code)

	var clients []handler.ClientHealth
	require.NoError(t, json.Unmarshal(env.Data, &clients))
	require.Len(t, clients, 1)
	assert.Equal(t, "no reachable servers", clients[0].Error)
}

func TestUnknownRoute(t *testing.T) {
	status, env := newAPI(t, nil).do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotZero(t, env.Code)
}
