package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
	"github.com/MichelMeloG/JurChat/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
	config    *config.Config
}

func NewDocumentHandler(documents *service.DocumentService, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{documents: documents, config: cfg}
}

// DocumentItem is a history entry with its route segment
type DocumentItem struct {
	model.DocumentRecord
	Path string `json:"path"`
}

// List returns the current user's upload history
func (h *DocumentHandler) List(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	records, err := h.documents.History(c.Request.Context(), session.UserHash)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load history", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load document history"})
		return
	}

	items := make([]DocumentItem, 0, len(records))
	for _, r := range records {
		items = append(items, DocumentItem{DocumentRecord: r, Path: r.Path()})
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": items,
		"total":     len(items),
	})
}

// Get returns a parsed document; ?q= highlights a search term
func (h *DocumentHandler) Get(c *gin.Context) {
	name := c.Param("name")

	doc, err := h.documents.Document(c.Request.Context(), name, c.Query("q"))
	if err != nil {
		logger.Error(logger.WithDocument(c.Request.Context(), name), "failed to load document", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     name,
		"document": doc,
	})
}

// Status returns the tracked analysis status of a document
func (h *DocumentHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.documents.Status(c.Param("name")))
}

// Upload validates a document and forwards it to the backend
func (h *DocumentHandler) Upload(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	maxBytes := h.config.Upload.MaxBytes()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	// reject on declared size before reading anything
	if _, err := service.ValidateUpload(header.Filename, contentType, header.Size, maxBytes); err != nil {
		h.rejectUpload(c, err)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	result, err := h.documents.Upload(c.Request.Context(), session.UserHash, header.Filename, contentType, content)
	if err != nil {
		h.rejectUpload(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded successfully",
		"upload":  result,
	})
}

func (h *DocumentHandler) rejectUpload(c *gin.Context, err error) {
	msg := service.UploadErrorMessage(err)
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msg})
	case errors.Is(err, service.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"error": msg,
			"kind":  service.ClassifyUploadError(err),
		})
	}
}
