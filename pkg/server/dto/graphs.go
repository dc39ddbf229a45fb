package dto

// CreateGraphRequest represents a request to provision a graph instance
type CreateGraphRequest struct {
	Name string `json:"name" binding:"required"`
}

// GraphResponse represents one graph instance descriptor
type GraphResponse struct {
	GraphID   string `json:"graph_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	NodeCount int64  `json:"node_count"`
	EdgeCount int64  `json:"edge_count"`
}

// GraphListResponse represents the list of graph instances
type GraphListResponse struct {
	Graphs []GraphResponse `json:"graphs"`
	Total  int             `json:"total"`
}
