package dto

// ChatRequest represents a chat message request
type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	GraphID     string `json:"graph_id" binding:"required"`
	SessionID   string `json:"session_id,omitempty"`
	SearchLimit int    `json:"search_limit,omitempty"`
}

// SearchRequest represents a relevance query request
type SearchRequest struct {
	Query     string `json:"query" binding:"required"`
	GraphID   string `json:"graph_id" binding:"required"`
	Limit     int    `json:"limit,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}
