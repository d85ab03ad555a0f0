package devserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"terapiahub/internal/models"
)

func (s *Server) listChildren(c *gin.Context) {
	s.mu.Lock()
	out := append([]models.Child{}, s.children...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createChild(c *gin.Context) {
	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Nombre == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nombre is required"})
		return
	}

	s.mu.Lock()
	child := childFromRequest(s.allocIDLocked(), &req)
	s.children = append([]models.Child{child}, s.children...)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, child)
}

func (s *Server) updateChild(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}
	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.children {
		if s.children[i].ID == id {
			s.children[i] = childFromRequest(id, &req)
			c.JSON(http.StatusOK, s.children[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
}

func (s *Server) deleteChild(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.children {
		if s.children[i].ID == id {
			s.children = append(s.children[:i:i], s.children[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
}

func childFromRequest(id int64, req *models.ChildRequest) models.Child {
	return models.Child{
		ID:              id,
		Nombre:          req.Nombre,
		Edad:            req.Edad,
		FechaNacimiento: req.FechaNacimiento,
		Avatar:          req.Avatar,
		Diagnostico:     req.Diagnostico,
	}
}
