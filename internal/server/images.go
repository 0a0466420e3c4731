package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"artfolio/internal/blobstore"
	"artfolio/internal/processor"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var allowedMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// imageFromForm reads and validates the multipart "image" field. All
// validation happens here, before any transcoder or storage call. On
// failure it writes the error response and returns ok=false.
func (s *Server) imageFromForm(c *gin.Context, required bool) (data []byte, originalName string, ok bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		if !required {
			return nil, "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": `missing image file: form field key should be "image"`})
		return nil, "", false
	}

	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file exceeds maximum allowed size"})
		return nil, "", false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, "", false
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, "", false
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file exceeds maximum allowed size"})
		return nil, "", false
	}

	mime := mimetype.Detect(data)
	if _, allowed := allowedMIMEs[mime.String()]; !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type: %s", mime.String())})
		return nil, "", false
	}

	return data, fh.Filename, true
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

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

	c.JSON(http.StatusCreated, manifest)
}

func (s *Server) handleGetImage(c *gin.Context) {
	const op = "server.handleGetImage"

	tier, err := processor.ParseTier(c.Param("tier"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	file := c.Param("file")
	if file == "" || strings.ContainsAny(file, "/\\") || strings.Contains(file, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	data, err := s.cache.Fetch(c.Request.Context(), tier.String()+"/"+file)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, "image/jpeg", data)
}
