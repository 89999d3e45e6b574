package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// registerRoutes sets up all API routes on the Gin router. Reads are open;
// writes sit behind the API key check.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/controls", s.handleControls())
	api.GET("/state", s.handleState())
	api.GET("/telemetry", s.handleTelemetry())

	authed := api.Group("", s.requireAPIKey())
	authed.POST("/state", s.handleUpdateState())
	authed.POST("/reset", s.handleReset())
	authed.POST("/assistant", s.handleAssistant())
}

func (s *Server) handleControls() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.registry)
	}
}

func (s *Server) handleState() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.store.State())
	}
}

func (s *Server) handleTelemetry() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := s.now()
		speed := s.store.SpeedKPH()
		s.sim.Advance(now, speed)
		c.JSON(http.StatusOK, s.sim.Snapshot(now, speed))
	}
}

func (s *Server) handleUpdateState() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Anything that is not a JSON object is treated as an empty patch.
		var patch statepath.Document
		if err := c.ShouldBindJSON(&patch); err != nil || patch == nil {
			patch = statepath.Document{}
		}
		c.JSON(http.StatusOK, s.store.ApplyUpdate(patch))
	}
}

func (s *Server) handleReset() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.store.Reset()
		s.sim.Reset(s.now())
		c.JSON(http.StatusOK, s.store.State())
	}
}
