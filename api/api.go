// Package api implements the HTTP surface: starting a workflow,
// listing instances, reading one instance's full history, and signaling
// a waiting instance. It is a thin adapter over engine.Engine and
// store.Store — the only errors it produces itself are request
// validation errors (400), an unknown workflow id (404), and a signal
// to a workflow that is not waiting (409); everything downstream of startWorkflow is recorded
// and made visible through GetWorkflowHistory rather than returned
// synchronously.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/store"
)

// API wires the HTTP surface to an Engine and its backing Store.
type API struct {
	eng   *engine.Engine
	store store.Store
}

// New creates an API from an Engine and the Store it shares with the
// compensator.
func New(eng *engine.Engine, st store.Store) *API {
	return &API{eng: eng, store: st}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	a.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers every route of the HTTP surface onto router.
func (a *API) RegisterRoutes(router gin.IRouter) {
	router.POST("/workflows/start", a.startWorkflow)
	router.GET("/workflows", a.listWorkflows)
	router.GET("/workflows/:id", a.getWorkflow)
	router.POST("/workflows/:id/signal", a.signalWorkflow)
}
