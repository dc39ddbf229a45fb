package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/server/dto"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// GraphsHandler handles graph instance lifecycle requests
type GraphsHandler struct {
	service *graphmind.Service
}

// NewGraphsHandler creates a new graphs handler
func NewGraphsHandler(service *graphmind.Service) *GraphsHandler {
	return &GraphsHandler{service: service}
}

// Create handles POST /graphs/create
func (h *GraphsHandler) Create(c *gin.Context) {
	var req dto.CreateGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	info, err := h.service.CreateGraph(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toGraphResponse(info))
}

// List handles GET /graphs
func (h *GraphsHandler) List(c *gin.Context) {
	infos, err := h.service.ListGraphs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	graphs := make([]dto.GraphResponse, 0, len(infos))
	for i := range infos {
		graphs = append(graphs, toGraphResponse(&infos[i]))
	}
	c.JSON(http.StatusOK, dto.GraphListResponse{Graphs: graphs, Total: len(graphs)})
}

// Get handles GET /graphs/:graph_id
func (h *GraphsHandler) Get(c *gin.Context) {
	info, err := h.service.GetGraph(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGraphResponse(info))
}

// Delete handles DELETE /graphs/:graph_id
func (h *GraphsHandler) Delete(c *gin.Context) {
	graphID := c.Param("graph_id")
	if err := h.service.DeleteGraph(c.Request.Context(), graphID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true})
}

// Stats handles GET /graphs/:graph_id/stats
func (h *GraphsHandler) Stats(c *gin.Context) {
	stats, err := h.service.GraphStats(c.Request.Context(), c.Param("graph_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func toGraphResponse(info *types.GraphInfo) dto.GraphResponse {
	return dto.GraphResponse{
		GraphID:   info.ID,
		Name:      info.Name,
		CreatedAt: info.CreatedAt.Format(time.RFC3339),
		NodeCount: info.NodeCount,
		EdgeCount: info.EdgeCount,
	}
}
