package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
)

func (s *Server) recordPayment(c *gin.Context) {
	var req paymentdomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) completePayment(c *gin.Context) {
	if err := s.paymentSvc.Complete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (s *Server) issueReceipt(c *gin.Context) {
	receiptNo, err := s.paymentSvc.IssueReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"receipt_no": receiptNo}})
}

func (s *Server) backfillReceipts(c *gin.Context) {
	result, err := s.paymentSvc.BackfillMissingReceipts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
