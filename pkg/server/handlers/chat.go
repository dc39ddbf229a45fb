package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/server/dto"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// ChatHandler handles chat and session requests
type ChatHandler struct {
	service *graphmind.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *graphmind.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// Message handles POST /chat/message
func (h *ChatHandler) Message(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	answer, err := h.service.SendMessage(c.Request.Context(), req.GraphID, req.SessionID, req.Message, req.SearchLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Search handles POST /chat/search
func (h *ChatHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	timeRange, err := parseTimeRange(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	results, err := h.service.Search(c.Request.Context(), req.GraphID, req.Query, req.Limit, timeRange)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Sessions handles GET /chat/sessions. An optional graph_id query
// filters by graph.
func (h *ChatHandler) Sessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Query("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}

// Session handles GET /chat/sessions/:session_id
func (h *ChatHandler) Session(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ClearSession handles POST /chat/sessions/:session_id/clear
func (h *ChatHandler) ClearSession(c *gin.Context) {
	if err := h.service.ClearSession(c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true})
}

// DeleteSession handles DELETE /chat/sessions/:session_id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true})
}

// ExportSession handles GET /chat/sessions/:session_id/export
func (h *ChatHandler) ExportSession(c *gin.Context) {
	transcript, err := h.service.ExportSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transcript)
}

func parseTimeRange(start, end string) (*types.TimeRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}

	var tr types.TimeRange
	var err error
	if start != "" {
		if tr.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("invalid start_date: %w", err)
		}
	}
	if end != "" {
		if tr.End, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("invalid end_date: %w", err)
		}
	}
	return &tr, nil
}
