package rpc

import (
	"net/http"

	"github.com/HorseArcher567/octopus/pkg/rpc/breaker"
	"github.com/gin-gonic/gin"
)

// BreakerHandler exposes a Server's per-path breaker state as JSON,
// implementing api.RouterRegistrar so it can be mounted on the same
// process's debug HTTP server alongside pprof.
type BreakerHandler struct {
	breakers *breaker.Map
}

// DebugHandler returns s's BreakerHandler, for registering on an api.Server.
func (s *Server) DebugHandler() *BreakerHandler {
	return &BreakerHandler{breakers: s.breakers}
}

// RegisterRoutes mounts GET /debug/breakers, returning a JSON array of every
// path's current request/accept counters and rejection probability.
func (h *BreakerHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/debug/breakers", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.breakers.Snapshot())
	})
}
