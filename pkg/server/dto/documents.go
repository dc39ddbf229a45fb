package dto

// UploadResponse represents the response to a document upload
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	GraphID    string `json:"graph_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// ExtractFactsRequest represents a direct fact extraction request
type ExtractFactsRequest struct {
	Text        string   `json:"text" binding:"required"`
	EntityTypes []string `json:"entity_types,omitempty"`
}
