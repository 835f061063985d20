// Package api is the HTTP surface over the document pipeline: uploads into
// the intake area and read-only status/info queries. All pipeline progress
// is derived from storage by the status resolver; the server keeps no state
// of its own.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/services"
	"github.com/acastillo/docpipeline/internal/storage"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	store     storage.ObjectStore
	publisher bus.Publisher
	resolver  *services.StatusResolver
	config    Config
}

// NewServer creates a Server with its collaborators injected.
func NewServer(store storage.ObjectStore, publisher bus.Publisher, resolver *services.StatusResolver, config Config) *Server {
	return &Server{
		store:     store,
		publisher: publisher,
		resolver:  resolver,
		config:    config,
	}
}

// Router builds the Gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/health", s.Health)
	router.POST("/upload", s.UploadDocument)
	router.GET("/status/:name", s.GetStatus)
	router.GET("/info/:name", s.GetInfo)
	router.GET("/documents", s.ListDocuments)
	router.DELETE("/documents/:name", s.DeleteDocument)

	return router
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	// Listing with an empty prefix doubles as a storage connectivity probe.
	if _, err := s.store.List(c.Request.Context(), s.config.IntakeBucket, ""); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "storage not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage_bucket": s.config.IntakeBucket})
}
