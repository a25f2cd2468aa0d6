package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/kode4food/paisley"
)

// HealthResponse provides service health information
type HealthResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Service: app.Name,
		Version: app.Version,
		Status:  "ok",
	})
}
