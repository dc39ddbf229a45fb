package types

import (
	"time"
)

// NodeType represents the type of a node stored in a graph instance.
type NodeType string

const (
	// DocumentNodeType represents a whole ingested document.
	DocumentNodeType NodeType = "document"
	// ChunkNodeType represents a bounded text segment of a document.
	ChunkNodeType NodeType = "chunk"
	// EntityNodeType represents an entity extracted from content.
	EntityNodeType NodeType = "entity"
)

// Node represents a node in a graph instance.
type Node struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    NodeType `json:"type"`
	GraphID string   `json:"graph_id"`

	// Content carries the text of document and chunk nodes.
	Content string `json:"content,omitempty"`

	// Entity-specific fields
	EntityType string `json:"entity_type,omitempty"`
	Summary    string `json:"summary,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge represents a typed relationship between two nodes in a graph instance.
type Edge struct {
	ID       string `json:"id"`
	GraphID  string `json:"graph_id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`

	// Name is the relation label, e.g. "works_at".
	Name    string `json:"name,omitempty"`
	Summary string `json:"summary,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GraphInfo describes one isolated graph instance.
type GraphInfo struct {
	ID        string    `json:"graph_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	NodeCount int64     `json:"node_count"`
	EdgeCount int64     `json:"edge_count"`
}

// GraphStats holds statistics about one graph instance.
type GraphStats struct {
	GraphID       string           `json:"graph_id"`
	NodeCount     int64            `json:"node_count"`
	EdgeCount     int64            `json:"edge_count"`
	NodesByType   map[string]int64 `json:"nodes_by_type"`
	EdgesByType   map[string]int64 `json:"edges_by_type"`
	TemporalRange *TimeRange       `json:"temporal_range,omitempty"`
}

// Document represents one ingested source file before chunking.
type Document struct {
	ID         string    `json:"document_id"`
	GraphID    string    `json:"graph_id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadedFile is a transport-agnostic file payload handed to the core.
type UploadedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// ProcessingState is the lifecycle state of one ingestion run.
type ProcessingState string

const (
	StateQueued     ProcessingState = "queued"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateFailed     ProcessingState = "failed"
)

// Terminal reports whether the state is final.
func (s ProcessingState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ProcessingStatus is the progress record for one ingestion run.
// Progress is monotonically non-decreasing and reaches exactly 1.0
// only when State is StateCompleted.
type ProcessingStatus struct {
	DocumentID             string          `json:"document_id"`
	GraphID                string          `json:"graph_id"`
	State                  ProcessingState `json:"status"`
	Progress               float64         `json:"progress"`
	Message                string          `json:"message"`
	EntitiesExtracted      int             `json:"entities_extracted"`
	RelationshipsExtracted int             `json:"relationships_extracted"`
	Errors                 []string        `json:"errors,omitempty"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// IngestOptions holds per-run options for the ingestion pipeline.
type IngestOptions struct {
	// ExtractFacts enables entity/relationship extraction per chunk.
	ExtractFacts bool `json:"extract_facts"`
	// EntityTypes overrides the default entity type vocabulary.
	EntityTypes []string `json:"entity_types,omitempty"`
	// MaxChunks caps the number of chunks processed per document.
	// Zero means the configured default.
	MaxChunks int `json:"max_chunks,omitempty"`
}

// IngestResult holds aggregate counts for one completed ingestion run.
type IngestResult struct {
	EntitiesCount      int `json:"entities_count"`
	RelationshipsCount int `json:"relationships_count"`
	ChunksProcessed    int `json:"chunks_processed"`
	TextLength         int `json:"text_length"`
}

// SearchResult is one ranked record returned by a relevance query.
type SearchResult struct {
	ID        string                 `json:"node_id"`
	Content   string                 `json:"content"`
	Type      NodeType               `json:"type"`
	Score     float64                `json:"score"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SearchResults holds the ranked results of a relevance query.
type SearchResults struct {
	Results []SearchResult `json:"results"`
	Query   string         `json:"query"`
	Total   int            `json:"total_results"`
}

// TimeRange represents a half-open time range for temporal filtering.
type TimeRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Contains reports whether t falls within the range. Zero bounds are open.
func (r *TimeRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// SnapshotFilters constrains visualization snapshots. Categories compose
// with AND; values within a category compose with OR.
type SnapshotFilters struct {
	TimeRange   *TimeRange `json:"time_range,omitempty"`
	NodeTypes   []NodeType `json:"node_types,omitempty"`
	EntityTypes []string   `json:"entity_types,omitempty"`
}

// GraphSnapshot is a bounded node/edge view of one graph instance.
// Edges reference only nodes present in the snapshot.
type GraphSnapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Granularity is a timeline bucketing granularity.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// TimelineBucket holds per-period counts and representative records.
type TimelineBucket struct {
	Period    time.Time `json:"time_period"`
	NodeCount int       `json:"node_count"`
	NodeTypes []string  `json:"node_types"`
	Samples   []*Node   `json:"events"`
}

// ExtractedEntity represents an entity recognized in a text chunk.
type ExtractedEntity struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// ExtractedRelationship represents a typed relation between two extracted
// entities, referenced by name.
type ExtractedRelationship struct {
	Source      string            `json:"source"`
	Target      string            `json:"target"`
	Relation    string            `json:"relationship"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// ExtractionStrategy identifies which fact extraction strategy produced a
// result.
type ExtractionStrategy string

const (
	// StrategyModel is the language-model-backed strategy.
	StrategyModel ExtractionStrategy = "model"
	// StrategyHeuristic is the deterministic lexical strategy.
	StrategyHeuristic ExtractionStrategy = "heuristic"
)

// ExtractionMetadata records how an extraction result was produced.
type ExtractionMetadata struct {
	Strategy    ExtractionStrategy `json:"strategy"`
	Model       string             `json:"model_used,omitempty"`
	TextLength  int                `json:"text_length"`
	ExtractedAt time.Time          `json:"extraction_time"`
}

// ExtractionResult holds the typed facts extracted from one text chunk.
type ExtractionResult struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
	Metadata      ExtractionMetadata      `json:"metadata"`
}

// ChatMessage is one turn in a chat session.
type ChatMessage struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ChatSession is a conversation scoped to one graph instance.
type ChatSession struct {
	ID        string        `json:"session_id"`
	GraphID   string        `json:"graph_id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionTranscript is the exportable form of a chat session.
type SessionTranscript struct {
	SessionID string        `json:"session_id"`
	GraphID   string        `json:"graph_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []ChatMessage `json:"messages"`
	Summary   string        `json:"summary,omitempty"`
}

// Source is one cited search result backing a generated answer.
type Source struct {
	ID       string                 `json:"node_id"`
	Type     NodeType               `json:"type"`
	Content  string                 `json:"content"`
	Score    float64                `json:"relevance_score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Answer is a grounded response produced by the RAG orchestrator.
type Answer struct {
	Response  string                 `json:"response"`
	Sources   []Source               `json:"sources"`
	Reasoning string                 `json:"reasoning"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultEntityTypes is the default open entity type vocabulary used when
// a caller does not request specific types.
var DefaultEntityTypes = []string{
	"Person", "Organization", "Location", "Event",
	"Concept", "Date", "Product", "Technology",
}
