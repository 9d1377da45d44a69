// Package router registers the routes of the tree-node application.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/internal/tree/handler"
	"github.com/kart-io/mongokit/internal/tree/store"
	"github.com/kart-io/mongokit/pkg/errors"
	"github.com/kart-io/mongokit/pkg/infra/middleware"
	"github.com/kart-io/mongokit/pkg/utils/response"
)

// APIPrefix is the prefix of every versioned route.
const APIPrefix = "/api/v1"

// HealthPath is the path of the health endpoint.
const HealthPath = "/healthz"

// NewEngine creates the gin engine with the standard middleware chain.
func NewEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(HealthPath),
		middleware.Logger(HealthPath),
		middleware.Recovery(),
	)
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, errors.ErrRouteNotFound.WithMessagef("Route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		response.FailWithStatus(c, http.StatusMethodNotAllowed, errors.ErrRouteNotFound)
	})
	return engine
}

// Register adds the tree-node API and the health endpoint to engine.
func Register(engine *gin.Engine, svc *store.TreeNodeService, health handler.HealthChecker) {
	logger.Info("Registering tree node routes...")

	engine.GET(HealthPath, handler.NewHealthHandler(health, 5*time.Second).Check)

	nodes := handler.NewTreeNodeHandler(svc)
	v1 := engine.Group(APIPrefix)
	{
		group := v1.Group("/tree-node")
		group.GET("/", nodes.List)
		group.POST("/", nodes.Create)
		group.GET("/:id", nodes.Get)
		group.PUT("/:id", nodes.Update)
		group.DELETE("/:id", nodes.Delete)
	}
}
