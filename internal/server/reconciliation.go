package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) runReconciliation(c *gin.Context) {
	result, err := s.reconciliationSvc.RunPass(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
