package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/zylo/internal/filestore"
)

type FileHandler struct {
	files         *filestore.Store
	maxUploadSize int64
}

func NewFileHandler(files *filestore.Store, maxUploadSize int) *FileHandler {
	return &FileHandler{files: files, maxUploadSize: int64(maxUploadSize)}
}

// Upload stores the multipart "file" field and returns its URL.
func (h *FileHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	blob, err := h.files.Put(f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"url":      blob.URL,
		"fileName": header.Filename,
		"fileType": blob.MimeType,
		"size":     blob.Size,
	})
}

func (h *FileHandler) Serve(c *gin.Context) {
	path, err := h.files.Path(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.File(path)
}
