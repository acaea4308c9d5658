package server

import (
	"net/http"

	"sheetgenie/internal/chart"

	"github.com/gin-gonic/gin"
)

// handleChartRender turns a declarative chart spec into widget config.
// Unknown kinds render as bars; axis keys missing from the data are a 400.
func (s *Server) handleChartRender(c *gin.Context) {
	var spec chart.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		s.fail(c, invalidRequest(err))
		return
	}
	if err := spec.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chart": chart.Render(spec)})
}
