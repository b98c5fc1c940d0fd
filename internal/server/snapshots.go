package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) getFinancialSnapshot(c *gin.Context) {
	snapshot, err := s.snapshotSvc.GetFinancialSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}
