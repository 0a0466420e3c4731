package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"artfolio/internal/models"
	"artfolio/internal/processor"
	"artfolio/internal/storage"
)

func (s *Server) handleListPaintings(c *gin.Context) {
	const op = "server.handleListPaintings"

	var categoryID *int64
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categoryId"})
			return
		}
		categoryID = &id
	}

	paintings, err := s.db.ListPaintings(c.Request.Context(), categoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, paintings)
}

func (s *Server) handleGetPainting(c *gin.Context) {
	const op = "server.handleGetPainting"

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	painting, err := s.db.GetPainting(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "painting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, painting)
}

// paintingFromForm collects the metadata fields shared by create and update.
func paintingFromForm(c *gin.Context) (*models.Painting, bool) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: name"})
		return nil, false
	}

	categoryID, err := strconv.ParseInt(c.PostForm("categoryId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid categoryId"})
		return nil, false
	}

	price, _ := strconv.ParseFloat(c.PostForm("price"), 64)
	medium := c.PostForm("medium")
	if medium == "" {
		medium = "oil"
	}

	return &models.Painting{
		Name:       name,
		Price:      price,
		Medium:     medium,
		Size:       c.PostForm("size"),
		IsFramed:   c.PostForm("isFramed") == "true",
		CategoryID: categoryID,
	}, true
}

func (s *Server) handleCreatePainting(c *gin.Context) {
	const op = "server.handleCreatePainting"

	painting, ok := paintingFromForm(c)
	if !ok {
		return
	}

	data, originalName, ok := s.imageFromForm(c, true)
	if !ok {
		return
	}

	manifest, err := s.pipe.ProcessAndStore(c.Request.Context(), data, originalName)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, processor.ErrDecode) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	painting.Image = manifest

	if err := s.db.CreatePainting(c.Request.Context(), painting); err != nil {
		// Record was never written; renditions are orphans.
		s.pipe.DiscardManifest(c.Request.Context(), manifest)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusCreated, painting)
}

func (s *Server) handleUpdatePainting(c *gin.Context) {
	const op = "server.handleUpdatePainting"

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	existing, err := s.db.GetPainting(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "painting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	painting, ok := paintingFromForm(c)
	if !ok {
		return
	}
	painting.ID = id

	data, originalName, ok := s.imageFromForm(c, false)
	if !ok {
		return
	}

	replaceImage := data != nil
	if replaceImage {
		manifest, err := s.pipe.ProcessAndStore(c.Request.Context(), data, originalName)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, processor.ErrDecode) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
			return
		}
		painting.Image = manifest
	}

	if err := s.db.UpdatePainting(c.Request.Context(), painting, replaceImage); err != nil {
		if replaceImage {
			s.pipe.DiscardManifest(c.Request.Context(), painting.Image)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	// The new manifest supersedes the old one; its objects are unreachable.
	if replaceImage && existing.Image != nil {
		s.pipe.DiscardManifest(c.Request.Context(), existing.Image)
	}

	c.JSON(http.StatusOK, painting)
}

func (s *Server) handleDeletePainting(c *gin.Context) {
	const op = "server.handleDeletePainting"

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	existing, err := s.db.GetPainting(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "painting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	if err := s.db.DeletePainting(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	s.pipe.DiscardManifest(c.Request.Context(), existing.Image)

	c.Status(http.StatusNoContent)
}
