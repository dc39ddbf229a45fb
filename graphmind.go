// Package graphmind is a multi-tenant knowledge graph engine. It ingests
// documents into isolated graph instances, extracts entities and
// relationships with a language model, and answers questions grounded in
// graph search results.
package graphmind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graphmind-ai/graphmind/pkg/chunk"
	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/extract"
	"github.com/graphmind-ai/graphmind/pkg/extraction"
	"github.com/graphmind-ai/graphmind/pkg/ingest"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/rag"
	"github.com/graphmind-ai/graphmind/pkg/registry"
	"github.com/graphmind-ai/graphmind/pkg/search"
	"github.com/graphmind-ai/graphmind/pkg/session"
	"github.com/graphmind-ai/graphmind/pkg/store"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// Options configures a Service.
type Options struct {
	// Model is the model name recorded in extraction and answer
	// metadata.
	Model string
	// ExtractionTimeout bounds one model extraction call.
	ExtractionTimeout time.Duration
	// GenerationTimeout bounds one model answer or summary call.
	GenerationTimeout time.Duration
	// MaxChunks caps chunks processed per document. Zero means the
	// default.
	MaxChunks int
	// Workers is the ingestion worker count.
	Workers int
	// QueueBuffer is the ingestion queue capacity.
	QueueBuffer int
	// MaxUploadBytes caps uploaded file size. Zero disables the check.
	MaxUploadBytes int64
	// AllowedContentTypes restricts uploads. Empty means the built-in
	// supported set.
	AllowedContentTypes []string
}

// Service is the engine facade. It composes the graph registry, the
// ingestion pipeline, search and the RAG orchestrator behind one API.
type Service struct {
	graphs    *registry.Registry
	store     driver.GraphStore
	kv        store.KV
	queue     *ingest.Queue
	tracker   *ingest.StatusTracker
	extractor extraction.Extractor
	engine    *search.Engine
	rag       *rag.Orchestrator
	sessions  *session.Store
	llm       llm.Client
	logger    *slog.Logger
	opts      Options
}

// NewService wires a Service from its backends. splitter configuration
// lives with the caller so tests can use small chunk sizes.
func NewService(graphStore driver.GraphStore, kv store.KV, llmClient llm.Client, splitter SplitterConfig, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sp, err := splitter.build()
	if err != nil {
		return nil, err
	}

	graphs := registry.NewRegistry(graphStore, logger)
	tracker := ingest.NewStatusTracker(kv, logger)
	texts := extract.NewTextExtractor(logger)

	var extractor extraction.Extractor
	if llmClient != nil {
		extractor = extraction.NewLLMExtractor(llmClient, opts.Model, logger,
			extraction.WithTimeout(opts.ExtractionTimeout))
	} else {
		extractor = extraction.NewHeuristicExtractor()
	}

	pipeline := ingest.NewPipeline(graphs, graphStore, texts, extractor, sp, tracker, logger, opts.MaxChunks)
	queue := ingest.NewQueue(pipeline, tracker, opts.Workers, opts.QueueBuffer, logger)
	engine := search.NewEngine(graphStore, logger)

	return &Service{
		graphs:    graphs,
		store:     graphStore,
		kv:        kv,
		queue:     queue,
		tracker:   tracker,
		extractor: extractor,
		engine:    engine,
		rag: rag.NewOrchestrator(engine, llmClient, opts.Model, logger,
			rag.WithGenerationTimeout(opts.GenerationTimeout)),
		sessions:  session.NewStore(kv, logger),
		llm:       llmClient,
		logger:    logger,
		opts:      opts,
	}, nil
}

// SplitterConfig holds chunking parameters for the ingestion pipeline.
type SplitterConfig struct {
	ChunkSize int
	Overlap   int
}

func (c SplitterConfig) build() (*chunk.Splitter, error) {
	size, overlap := c.ChunkSize, c.Overlap
	if size <= 0 {
		size = 4000
	}
	if overlap <= 0 {
		overlap = 200
	}
	return chunk.NewSplitter(size, overlap)
}

// CreateGraph provisions a new graph instance.
func (s *Service) CreateGraph(ctx context.Context, name string) (*types.GraphInfo, error) {
	return s.graphs.Create(ctx, name)
}

// GetGraph returns the descriptor for graphID with live counts.
func (s *Service) GetGraph(ctx context.Context, graphID string) (*types.GraphInfo, error) {
	info, err := s.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.Stats(ctx, graphID)
	if err != nil {
		return info, nil
	}

	out := *info
	out.NodeCount = stats.NodeCount
	out.EdgeCount = stats.EdgeCount
	return &out, nil
}

// ListGraphs returns descriptors for all graph instances.
func (s *Service) ListGraphs(ctx context.Context) ([]types.GraphInfo, error) {
	return s.graphs.List(ctx)
}

// DeleteGraph drops the graph and its dependent data: chat sessions and
// processing statuses bound to it.
func (s *Service) DeleteGraph(ctx context.Context, graphID string) error {
	if err := s.graphs.Delete(ctx, graphID); err != nil {
		return err
	}

	if err := s.sessions.DeleteByGraph(graphID); err != nil {
		s.logger.Warn("failed to delete sessions for dropped graph", "graph_id", graphID, "error", err)
	}

	statuses, err := s.tracker.List(graphID)
	if err != nil {
		s.logger.Warn("failed to list statuses for dropped graph", "graph_id", graphID, "error", err)
		return nil
	}
	for _, status := range statuses {
		if err := s.tracker.Delete(status.DocumentID); err != nil {
			s.logger.Warn("failed to delete status for dropped graph",
				"graph_id", graphID, "document_id", status.DocumentID, "error", err)
		}
	}
	return nil
}

// GraphStats returns statistics for graphID.
func (s *Service) GraphStats(ctx context.Context, graphID string) (*types.GraphStats, error) {
	if _, err := s.graphs.Get(ctx, graphID); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx, graphID)
}

// UploadDocument validates the file and queues it for ingestion into
// graphID. It returns the generated document id immediately; progress is
// observed through GetProcessingStatus.
func (s *Service) UploadDocument(ctx context.Context, graphID string, file types.UploadedFile, opts types.IngestOptions) (string, error) {
	if _, err := s.graphs.Get(ctx, graphID); err != nil {
		return "", err
	}
	if err := s.validateUpload(file); err != nil {
		return "", err
	}

	documentID := uuid.New().String()
	err := s.queue.Enqueue(ingest.Job{
		GraphID:    graphID,
		DocumentID: documentID,
		File:       file,
		Options:    opts,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("queued document for ingest",
		"graph_id", graphID, "document_id", documentID, "file", file.Name, "size", file.Size)
	return documentID, nil
}

// GetProcessingStatus returns the ingestion status for documentID.
func (s *Service) GetProcessingStatus(documentID string) (*types.ProcessingStatus, error) {
	status, err := s.tracker.Get(documentID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStatusNotFound, documentID)
		}
		return nil, err
	}
	return status, nil
}

// ListProcessingStatuses returns statuses, optionally filtered by graph.
func (s *Service) ListProcessingStatuses(graphID string) ([]*types.ProcessingStatus, error) {
	return s.tracker.List(graphID)
}

// DeleteDocument removes the processing record for documentID. Graph
// data written by the run stays in place.
func (s *Service) DeleteDocument(documentID string) error {
	if _, err := s.GetProcessingStatus(documentID); err != nil {
		return err
	}
	return s.tracker.Delete(documentID)
}

// ExtractFacts runs fact extraction directly on text, outside any
// ingestion run.
func (s *Service) ExtractFacts(ctx context.Context, text string, entityTypes []string) (*types.ExtractionResult, error) {
	return s.extractor.Extract(ctx, text, entityTypes)
}

// Search runs a relevance query against graphID.
func (s *Service) Search(ctx context.Context, graphID, query string, limit int, timeRange *types.TimeRange) (*types.SearchResults, error) {
	return s.engine.Search(ctx, graphID, query, limit, timeRange)
}

// SendMessage appends the user turn to the session, generates a grounded
// answer and appends it as the assistant turn. searchLimit caps the
// graph records retrieved for grounding; <= 0 selects the default. When
// generation fails the user turn stays recorded but no assistant turn is
// written.
func (s *Service) SendMessage(ctx context.Context, graphID, sessionID, message string, searchLimit int) (*types.Answer, error) {
	if _, err := s.graphs.Get(ctx, graphID); err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	sess, err := s.sessions.GetOrCreate(sessionID, graphID)
	if err != nil {
		return nil, err
	}
	if sess.GraphID != graphID {
		return nil, fmt.Errorf("%w: session %s belongs to another graph", ErrSessionNotFound, sessionID)
	}

	history := sess.Messages
	userTurn := types.ChatMessage{
		Role:      "user",
		Content:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := s.sessions.Append(sessionID, userTurn); err != nil {
		return nil, err
	}

	answer, err := s.rag.Answer(ctx, graphID, message, history, searchLimit)
	if err != nil {
		return nil, err
	}

	assistantTurn := types.ChatMessage{
		Role:      "assistant",
		Content:   answer.Response,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"sources":   len(answer.Sources),
			"reasoning": answer.Reasoning,
		},
	}
	if err := s.sessions.Append(sessionID, assistantTurn); err != nil {
		s.logger.Warn("failed to record assistant turn", "session_id", sessionID, "error", err)
	}

	if answer.Metadata == nil {
		answer.Metadata = map[string]interface{}{}
	}
	answer.Metadata["session_id"] = sessionID
	return answer, nil
}

// GetSession returns the session with sessionID.
func (s *Service) GetSession(sessionID string) (*types.ChatSession, error) {
	return s.sessions.Get(sessionID)
}

// ListSessions returns sessions, optionally filtered by graph.
func (s *Service) ListSessions(graphID string) ([]*types.ChatSession, error) {
	return s.sessions.List(graphID)
}

// ClearSession removes all messages from the session.
func (s *Service) ClearSession(sessionID string) error {
	return s.sessions.Clear(sessionID)
}

// DeleteSession removes the session entirely.
func (s *Service) DeleteSession(sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// ExportSession returns the session transcript with a best-effort
// model-generated summary.
func (s *Service) ExportSession(ctx context.Context, sessionID string) (*types.SessionTranscript, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	summary := s.rag.SummarizeConversation(ctx, sess.Messages)
	return s.sessions.Export(sessionID, summary)
}

// Visualize returns a bounded snapshot of graphID.
func (s *Service) Visualize(ctx context.Context, graphID string, filters types.SnapshotFilters, limit int) (*types.GraphSnapshot, error) {
	return s.engine.Visualize(ctx, graphID, filters, limit)
}

// Timeline buckets graphID's records by creation time.
func (s *Service) Timeline(ctx context.Context, graphID string, granularity types.Granularity, timeRange *types.TimeRange) ([]types.TimelineBucket, error) {
	return s.engine.Timeline(ctx, graphID, granularity, timeRange)
}

// Subgraph expands the neighborhood around nodeID.
func (s *Service) Subgraph(ctx context.Context, graphID, nodeID string, depth, limit int) (*types.GraphSnapshot, error) {
	return s.engine.Subgraph(ctx, graphID, nodeID, depth, limit)
}

// Close drains the ingestion queue and closes all backends.
func (s *Service) Close(ctx context.Context) error {
	s.queue.Close()

	var errs []error
	if s.llm != nil {
		if err := s.llm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close llm client: %w", err))
		}
	}
	if err := s.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close kv store: %w", err))
	}
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close graph store: %w", err))
	}
	return errors.Join(errs...)
}

// validateUpload checks size and content type before work is queued.
func (s *Service) validateUpload(file types.UploadedFile) error {
	if len(file.Data) == 0 {
		return fmt.Errorf("%w: empty file %q", ErrInvalidUpload, file.Name)
	}
	if s.opts.MaxUploadBytes > 0 && file.Size > s.opts.MaxUploadBytes {
		return fmt.Errorf("%w: file %q exceeds %d bytes", ErrInvalidUpload, file.Name, s.opts.MaxUploadBytes)
	}

	allowed := s.opts.AllowedContentTypes
	if len(allowed) == 0 {
		allowed = []string{"text/plain", "text/markdown", "application/pdf"}
	}
	ct := strings.ToLower(strings.TrimSpace(file.ContentType))
	if i := strings.Index(ct, ";"); i != -1 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, t := range allowed {
		if ct == t {
			return nil
		}
	}
	return fmt.Errorf("%w: content type %q not allowed", ErrInvalidUpload, file.ContentType)
}
