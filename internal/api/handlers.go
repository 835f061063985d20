package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/services"
	"github.com/acastillo/docpipeline/internal/storage"
)

// allowedExtensions is the intake allow-list. Anything else is rejected
// before it reaches the pipeline.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".bmp":  true,
}

// UploadDocument handles POST /upload. The stored object name prefixes the
// upload time, which makes the document id unique for its lifetime and never
// reused.
func (s *Server) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file name is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	if ext == ".pdf" {
		if err := validatePDF(content); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid PDF: %v", err)})
			return
		}
	}

	uploadedAt := time.Now().UTC()
	documentID := fmt.Sprintf("%s_%s", uploadedAt.Format(models.ArchiveTimeFormat), fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")

	if err := s.store.Put(c.Request.Context(), s.config.IntakeBucket, documentID, content, contentType); err != nil {
		slog.Error("Failed to store uploaded document", "document", documentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	notice := bus.ArrivalNotice{
		DocumentID:  documentID,
		ContentType: contentType,
		Timestamp:   uploadedAt,
	}
	if err := s.publisher.Publish(c.Request.Context(), notice); err != nil {
		// The object is already in intake; the storage notification will
		// still drive the pipeline even if this announcement fails.
		slog.Error("Failed to publish arrival notice", "document", documentID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "document uploaded, processing started",
		"file_name":   documentID,
		"upload_path": fmt.Sprintf("gs://%s/%s", s.config.IntakeBucket, documentID),
		"status":      "uploaded",
	})
}

// GetStatus handles GET /status/:name.
func (s *Server) GetStatus(c *gin.Context) {
	status, err := s.resolver.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		slog.Error("Failed to resolve document status", "document", c.Param("name"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve status"})
		return
	}
	if status.State == models.StateNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetInfo handles GET /info/:name.
func (s *Server) GetInfo(c *gin.Context) {
	info, err := s.resolver.Info(c.Request.Context(), c.Param("name"))
	if errors.Is(err, services.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		slog.Error("Failed to assemble document info", "document", c.Param("name"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch document info"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(c *gin.Context) {
	infos, err := s.store.List(c.Request.Context(), s.config.IntakeBucket, "")
	if err != nil {
		slog.Error("Failed to list documents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	documents := make([]gin.H, 0, len(infos))
	for _, info := range infos {
		status, err := s.resolver.Resolve(c.Request.Context(), info.Path)
		if err != nil {
			slog.Error("Failed to resolve document status", "document", info.Path, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
			return
		}
		documents = append(documents, gin.H{
			"file_name":    info.Path,
			"size":         info.Size,
			"created":      info.Created,
			"content_type": info.ContentType,
			"status":       status.State,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total_documents": len(documents), "documents": documents})
}

// DeleteDocument handles DELETE /documents/:name, removing the original and
// every artifact derived from it, archive copies included.
func (s *Server) DeleteDocument(c *gin.Context) {
	documentID := c.Param("name")
	ctx := c.Request.Context()

	exists, err := s.store.Exists(ctx, s.config.IntakeBucket, documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	if err := s.store.Delete(ctx, s.config.IntakeBucket, documentID); err != nil {
		slog.Error("Failed to delete original document", "document", documentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}
	s.deleteIfPresent(c, s.config.ResultsBucket, models.OCRResultPath(documentID))
	s.deleteIfPresent(c, s.config.ResultsBucket, models.ExtractionResultPath(documentID))

	for _, docType := range models.DocumentTypes() {
		infos, err := s.store.List(ctx, s.config.ArchiveBucket, string(docType)+"/")
		if err != nil {
			slog.Error("Failed to list archive prefix", "prefix", docType, "error", err)
			continue
		}
		for _, info := range infos {
			if strings.Contains(info.Path, documentID) {
				s.deleteIfPresent(c, s.config.ArchiveBucket, info.Path)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("document %s deleted", documentID)})
}

func (s *Server) deleteIfPresent(c *gin.Context, area, path string) {
	err := s.store.Delete(c.Request.Context(), area, path)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		slog.Warn("Failed to delete artifact", "area", area, "path", path, "error", err)
	}
}

func validatePDF(content []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if _, err := api.PageCount(bytes.NewReader(content), conf); err != nil {
		return err
	}
	return nil
}
