package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/prompts"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

const (
	// defaultMaxInputChars bounds the text sent to the model per call.
	defaultMaxInputChars = 8000
	// defaultTimeout bounds one extraction call.
	defaultTimeout = 60 * time.Second
)

// LLMExtractor extracts facts with a language model and falls back to
// the heuristic extractor on any model, timeout or parse failure.
type LLMExtractor struct {
	client        llm.Client
	fallback      *HeuristicExtractor
	model         string
	maxInputChars int
	timeout       time.Duration
	logger        *slog.Logger
}

// LLMExtractorOption configures an LLMExtractor.
type LLMExtractorOption func(*LLMExtractor)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) LLMExtractorOption {
	return func(e *LLMExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxInputChars overrides the input truncation limit.
func WithMaxInputChars(n int) LLMExtractorOption {
	return func(e *LLMExtractor) {
		if n > 0 {
			e.maxInputChars = n
		}
	}
}

// NewLLMExtractor creates a model-backed extractor. model is recorded in
// result metadata only; the client decides what model actually serves
// the call.
func NewLLMExtractor(client llm.Client, model string, logger *slog.Logger, opts ...LLMExtractorOption) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &LLMExtractor{
		client:        client,
		fallback:      NewHeuristicExtractor(),
		model:         model,
		maxInputChars: defaultMaxInputChars,
		timeout:       defaultTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for structured facts. Any failure degrades to
// the heuristic strategy rather than surfacing an error; the chosen
// strategy is recorded in the result metadata.
func (e *LLMExtractor) Extract(ctx context.Context, text string, entityTypes []string) (*types.ExtractionResult, error) {
	result, err := e.extractWithModel(ctx, text, entityTypes)
	if err != nil {
		e.logger.Warn("model extraction failed, degrading to heuristic strategy", "error", err)
		return e.fallback.Extract(ctx, text, entityTypes)
	}
	return result, nil
}

func (e *LLMExtractor) extractWithModel(ctx context.Context, text string, entityTypes []string) (*types.ExtractionResult, error) {
	input := text
	if len(input) > e.maxInputChars {
		input = input[:e.maxInputChars]
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := prompts.ExtractFacts(input, vocabulary(entityTypes))
	resp, err := e.client.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("extraction chat call: %w", err)
	}

	var parsed struct {
		Entities      []types.ExtractedEntity       `json:"entities"`
		Relationships []types.ExtractedRelationship `json:"relationships"`
	}
	if err := llm.UnmarshalFlexible(resp.Content, &parsed); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	entities := sanitizeEntities(parsed.Entities, vocabulary(entityTypes))
	return &types.ExtractionResult{
		Entities:      entities,
		Relationships: sanitizeRelationships(parsed.Relationships, entities),
		Metadata: types.ExtractionMetadata{
			Strategy:    types.StrategyModel,
			Model:       e.model,
			TextLength:  len(text),
			ExtractedAt: time.Now().UTC(),
		},
	}, nil
}

// sanitizeEntities drops unnamed entities and maps unknown types to the
// first vocabulary entry so downstream filters stay within the requested
// type set.
func sanitizeEntities(entities []types.ExtractedEntity, vocab []string) []types.ExtractedEntity {
	known := make(map[string]struct{}, len(vocab))
	for _, t := range vocab {
		known[t] = struct{}{}
	}

	out := make([]types.ExtractedEntity, 0, len(entities))
	for _, ent := range entities {
		if ent.Name == "" {
			continue
		}
		if _, ok := known[ent.Type]; !ok && len(vocab) > 0 {
			ent.Type = vocab[0]
		}
		out = append(out, ent)
	}
	return out
}

// sanitizeRelationships drops relationships whose endpoints are not in
// the extracted entity set.
func sanitizeRelationships(rels []types.ExtractedRelationship, entities []types.ExtractedEntity) []types.ExtractedRelationship {
	names := make(map[string]struct{}, len(entities))
	for _, ent := range entities {
		names[ent.Name] = struct{}{}
	}

	out := make([]types.ExtractedRelationship, 0, len(rels))
	for _, rel := range rels {
		if _, ok := names[rel.Source]; !ok {
			continue
		}
		if _, ok := names[rel.Target]; !ok {
			continue
		}
		out = append(out, rel)
	}
	return out
}
