package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// VisualizationsHandler handles graph snapshot, timeline and subgraph
// requests
type VisualizationsHandler struct {
	service *graphmind.Service
}

// NewVisualizationsHandler creates a new visualizations handler
func NewVisualizationsHandler(service *graphmind.Service) *VisualizationsHandler {
	return &VisualizationsHandler{service: service}
}

// GraphData handles GET /visualizations/:graph_id/graph-data
func (h *VisualizationsHandler) GraphData(c *gin.Context) {
	timeRange, err := parseTimeRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		badRequest(c, err)
		return
	}

	filters := types.SnapshotFilters{TimeRange: timeRange}
	for _, t := range splitQueryList(c.Query("node_types")) {
		filters.NodeTypes = append(filters.NodeTypes, types.NodeType(t))
	}
	filters.EntityTypes = splitQueryList(c.Query("entity_types"))

	snapshot, err := h.service.Visualize(c.Request.Context(), c.Param("graph_id"), filters, intQuery(c, "limit", 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Timeline handles GET /visualizations/:graph_id/timeline
func (h *VisualizationsHandler) Timeline(c *gin.Context) {
	timeRange, err := parseTimeRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		badRequest(c, err)
		return
	}

	granularity := types.Granularity(c.DefaultQuery("granularity", string(types.GranularityDay)))
	buckets, err := h.service.Timeline(c.Request.Context(), c.Param("graph_id"), granularity, timeRange)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": buckets, "granularity": granularity})
}

// Subgraph handles GET /visualizations/:graph_id/subgraph/:node_id
func (h *VisualizationsHandler) Subgraph(c *gin.Context) {
	snapshot, err := h.service.Subgraph(
		c.Request.Context(),
		c.Param("graph_id"),
		c.Param("node_id"),
		intQuery(c, "depth", 2),
		intQuery(c, "limit", 50),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func splitQueryList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
