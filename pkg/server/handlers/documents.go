package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/server/dto"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// DocumentsHandler handles document upload and processing requests
type DocumentsHandler struct {
	service *graphmind.Service
}

// NewDocumentsHandler creates a new documents handler
func NewDocumentsHandler(service *graphmind.Service) *DocumentsHandler {
	return &DocumentsHandler{service: service}
}

// Upload handles POST /documents/upload. The document is queued and the
// response returns immediately with the document id to poll.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	graphID := c.PostForm("graph_id")
	if graphID == "" {
		badRequest(c, fmt.Errorf("graph_id is required"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("file is required: %w", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, fmt.Errorf("open uploaded file: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, fmt.Errorf("read uploaded file: %w", err))
		return
	}

	opts := types.IngestOptions{
		ExtractFacts: parseBoolDefault(c.PostForm("extract_entities"), true),
	}
	if raw := c.PostForm("entity_types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.EntityTypes = append(opts.EntityTypes, t)
			}
		}
	}
	if raw := c.PostForm("max_chunks"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.MaxChunks = n
		}
	}

	contentType := header.Header.Get("Content-Type")
	file := types.UploadedFile{
		Name:        header.Filename,
		ContentType: contentTypeForUpload(contentType, header.Filename),
		Size:        header.Size,
		Data:        data,
	}

	documentID, err := h.service.UploadDocument(c.Request.Context(), graphID, file, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.UploadResponse{
		DocumentID: documentID,
		GraphID:    graphID,
		Filename:   header.Filename,
		Status:     string(types.StateQueued),
		Message:    "document queued for processing",
	})
}

// Status handles GET /documents/status/:document_id
func (h *DocumentsHandler) Status(c *gin.Context) {
	status, err := h.service.GetProcessingStatus(c.Param("document_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// List handles GET /documents. An optional graph_id query filters by
// graph.
func (h *DocumentsHandler) List(c *gin.Context) {
	statuses, err := h.service.ListProcessingStatuses(c.Query("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": statuses, "total": len(statuses)})
}

// Delete handles DELETE /documents/:document_id
func (h *DocumentsHandler) Delete(c *gin.Context) {
	documentID := c.Param("document_id")
	if err := h.service.DeleteDocument(documentID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("document %s deleted", documentID)})
}

// ExtractFacts handles POST /documents/extract-entities
func (h *DocumentsHandler) ExtractFacts(c *gin.Context) {
	var req dto.ExtractFactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.ExtractFacts(c.Request.Context(), req.Text, req.EntityTypes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseBoolDefault(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// contentTypeForUpload falls back to the filename extension when the
// multipart part carries no usable content type.
func contentTypeForUpload(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(strings.ToLower(filename), ".md"):
		return "text/markdown"
	case strings.HasSuffix(strings.ToLower(filename), ".txt"):
		return "text/plain"
	}
	return declared
}
