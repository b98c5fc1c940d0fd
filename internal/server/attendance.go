package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
)

func (s *Server) checkIn(c *gin.Context) {
	var req attendancedomain.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.attendanceSvc.CheckIn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) checkOut(c *gin.Context) {
	var req attendancedomain.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.attendanceSvc.CheckOut(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) getUsageCharge(c *gin.Context) {
	period := strings.TrimSpace(c.Query("month"))
	if period == "" {
		AbortWithError(c, attendancedomain.ErrInvalidPeriod)
		return
	}

	charge, err := s.attendanceSvc.ComputeUsageCharge(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": charge})
}
