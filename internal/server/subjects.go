package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
)

func (s *Server) createSubject(c *gin.Context) {
	var req subjectdomain.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.subjectSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listSubjects(c *gin.Context) {
	var req subjectdomain.ListSubjectsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.subjectSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Subjects, "page_info": resp.PageInfo})
}

func (s *Server) getSubject(c *gin.Context) {
	subject, err := s.subjectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subject})
}

func (s *Server) deleteSubject(c *gin.Context) {
	if err := s.subjectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
