// Package ingest implements the document ingestion pipeline: text
// extraction, chunking, per-chunk fact extraction and graph writes, with
// persistent progress tracking and a bounded background queue.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/chunk"
	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/extract"
	"github.com/graphmind-ai/graphmind/pkg/extraction"
	"github.com/graphmind-ai/graphmind/pkg/registry"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

const (
	// defaultMaxChunks caps per-document chunk processing when the
	// request does not say otherwise.
	defaultMaxChunks = 3
	// documentPreviewLimit bounds the content stored on the whole
	// document node.
	documentPreviewLimit = 1000
)

// Pipeline runs one document through extraction, chunking and graph
// writes.
type Pipeline struct {
	registry  *registry.Registry
	store     driver.GraphStore
	texts     *extract.TextExtractor
	extractor extraction.Extractor
	splitter  *chunk.Splitter
	tracker   *StatusTracker
	logger    *slog.Logger
	maxChunks int
}

// NewPipeline creates an ingestion pipeline. maxChunks <= 0 selects the
// default cap.
func NewPipeline(reg *registry.Registry, store driver.GraphStore, texts *extract.TextExtractor, extractor extraction.Extractor, splitter *chunk.Splitter, tracker *StatusTracker, logger *slog.Logger, maxChunks int) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}
	return &Pipeline{
		registry:  reg,
		store:     store,
		texts:     texts,
		extractor: extractor,
		splitter:  splitter,
		tracker:   tracker,
		logger:    logger,
		maxChunks: maxChunks,
	}
}

// Run processes one uploaded file into graphID. Only text extraction
// failure and a missing graph are fatal; per-chunk fact extraction
// failures are logged and skipped so one bad chunk cannot sink the run.
// Progress is reported through the status tracker at every stage.
func (p *Pipeline) Run(ctx context.Context, graphID, documentID string, file types.UploadedFile, opts types.IngestOptions) (*types.IngestResult, error) {
	release := p.registry.AcquireWrite(graphID)
	defer release()

	// Checked under the write guard so a concurrent delete cannot slip
	// between the check and the first write.
	if _, err := p.registry.Get(ctx, graphID); err != nil {
		return nil, err
	}

	p.tracker.Progress(documentID, 0.1, "extracting text from document")
	text, err := p.texts.Extract(file.Data, file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", file.Name, err)
	}

	p.tracker.Progress(documentID, 0.3, "splitting document into chunks")
	chunks := p.splitter.Split(text)
	splitTotal := len(chunks)

	maxChunks := opts.MaxChunks
	if maxChunks <= 0 {
		maxChunks = p.maxChunks
	}
	if len(chunks) > maxChunks {
		p.logger.Info("capping chunks for ingest run",
			"document_id", documentID, "total", splitTotal, "cap", maxChunks)
		chunks = chunks[:maxChunks]
		// Restamp totals so chunk provenance reflects what this run
		// actually processes, not the uncapped split.
		for i := range chunks {
			chunks[i].Total = len(chunks)
		}
	}

	result := &types.IngestResult{
		ChunksProcessed: len(chunks),
		TextLength:      len(text),
	}

	p.tracker.Progress(documentID, 0.4, "processing chunks")
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := p.processChunk(ctx, graphID, documentID, file.Name, c, splitTotal, opts, result); err != nil {
			p.logger.Warn("skipping chunk after processing failure",
				"document_id", documentID, "chunk", c.Index, "error", err)
		}

		fraction := 0.4 + 0.5*float64(i+1)/float64(len(chunks))
		p.tracker.Progress(documentID, fraction, fmt.Sprintf("processed chunk %d/%d", i+1, len(chunks)))
	}

	p.tracker.Progress(documentID, 0.9, "storing document record")
	if err := p.writeDocumentNode(ctx, graphID, documentID, file.Name, text); err != nil {
		p.logger.Warn("failed to store document node", "document_id", documentID, "error", err)
	}

	return result, nil
}

// processChunk writes the chunk node and, when fact extraction is
// enabled, the entity nodes and relationship edges derived from it.
func (p *Pipeline) processChunk(ctx context.Context, graphID, documentID, source string, c chunk.Chunk, splitTotal int, opts types.IngestOptions, result *types.IngestResult) error {
	now := time.Now().UTC()
	chunkNode := &types.Node{
		ID:      fmt.Sprintf("%s-chunk-%d", documentID, c.Index),
		Name:    fmt.Sprintf("%s [chunk %d/%d]", source, c.Index+1, c.Total),
		Type:    types.ChunkNodeType,
		GraphID: graphID,
		Content: c.Text,
		Metadata: map[string]interface{}{
			"document_id": documentID,
			"source":      source,
			"chunk_index": c.Index,
			"chunk_total": c.Total,
			"split_total": splitTotal,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.UpsertNode(ctx, chunkNode); err != nil {
		return fmt.Errorf("store chunk node: %w", err)
	}

	if !opts.ExtractFacts {
		return nil
	}

	facts, err := p.extractor.Extract(ctx, c.Text, opts.EntityTypes)
	if err != nil {
		return fmt.Errorf("extract facts: %w", err)
	}

	for _, ent := range facts.Entities {
		node := entityNode(graphID, ent, facts.Metadata, now)
		if err := p.store.UpsertNode(ctx, node); err != nil {
			return fmt.Errorf("store entity %q: %w", ent.Name, err)
		}
		result.EntitiesCount++

		// Link the chunk to each entity it mentions.
		mention := &types.Edge{
			ID:        fmt.Sprintf("%s-mentions-%s", chunkNode.ID, node.ID),
			GraphID:   graphID,
			SourceID:  chunkNode.ID,
			TargetID:  node.ID,
			Name:      "mentions",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := p.store.UpsertEdge(ctx, mention); err != nil {
			return fmt.Errorf("store mention edge: %w", err)
		}
	}

	for _, rel := range facts.Relationships {
		edge := relationshipEdge(graphID, rel, now)
		if err := p.store.UpsertEdge(ctx, edge); err != nil {
			return fmt.Errorf("store relationship %s: %w", edge.Name, err)
		}
		result.RelationshipsCount++
	}

	return nil
}

func (p *Pipeline) writeDocumentNode(ctx context.Context, graphID, documentID, source, text string) error {
	preview := text
	if len(preview) > documentPreviewLimit {
		preview = preview[:documentPreviewLimit]
	}

	now := time.Now().UTC()
	return p.store.UpsertNode(ctx, &types.Node{
		ID:      documentID,
		Name:    source,
		Type:    types.DocumentNodeType,
		GraphID: graphID,
		Content: preview,
		Metadata: map[string]interface{}{
			"source":      source,
			"text_length": len(text),
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// entityNode builds a graph node for an extracted entity. Entity node
// identifiers derive from the lowercased name so repeated mentions of
// the same name merge into one node.
func entityNode(graphID string, ent types.ExtractedEntity, meta types.ExtractionMetadata, now time.Time) *types.Node {
	metadata := map[string]interface{}{
		"extraction_strategy": string(meta.Strategy),
	}
	if meta.Model != "" {
		metadata["model_used"] = meta.Model
	}
	for k, v := range ent.Properties {
		metadata[k] = v
	}

	return &types.Node{
		ID:         entityID(ent.Name),
		Name:       ent.Name,
		Type:       types.EntityNodeType,
		GraphID:    graphID,
		EntityType: ent.Type,
		Summary:    ent.Description,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// relationshipEdge builds a graph edge between two entities referenced
// by name. Identifiers are deterministic so repeated extractions merge.
func relationshipEdge(graphID string, rel types.ExtractedRelationship, now time.Time) *types.Edge {
	source := entityID(rel.Source)
	target := entityID(rel.Target)

	metadata := map[string]interface{}{}
	for k, v := range rel.Properties {
		metadata[k] = v
	}

	return &types.Edge{
		ID:        fmt.Sprintf("%s-%s-%s", source, slug(rel.Relation), target),
		GraphID:   graphID,
		SourceID:  source,
		TargetID:  target,
		Name:      rel.Relation,
		Summary:   rel.Description,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func entityID(name string) string {
	return "entity-" + slug(name)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var out strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && out.Len() > 0 {
				out.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(out.String(), "-")
}
