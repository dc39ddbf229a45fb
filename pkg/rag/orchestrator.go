// Package rag implements the retrieval-augmented generation orchestrator
// that grounds model answers in graph search results.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/prompts"
	"github.com/graphmind-ai/graphmind/pkg/search"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// ErrGenerationFailed is returned when the model cannot produce an
// answer. Unlike fact extraction there is no degraded strategy for
// generation, so this failure surfaces to the caller.
var ErrGenerationFailed = errors.New("answer generation failed")

const (
	// defaultSearchLimit is the number of graph records retrieved per
	// question when the caller does not say otherwise.
	defaultSearchLimit = 5
	// historyWindow is how many trailing conversation turns are included
	// in the prompt.
	historyWindow = 6
	// defaultGenerationTimeout bounds one model generation call.
	defaultGenerationTimeout = 60 * time.Second
)

// Orchestrator answers questions against a graph instance.
type Orchestrator struct {
	engine  *search.Engine
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithGenerationTimeout bounds each model call. Zero keeps the default.
func WithGenerationTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOrchestrator creates a RAG orchestrator. model is recorded in
// answer metadata.
func NewOrchestrator(engine *search.Engine, client llm.Client, model string, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		engine:  engine,
		client:  client,
		model:   model,
		timeout: defaultGenerationTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer retrieves up to searchLimit relevant graph records for the
// question, grounds a model completion in them and returns the answer
// with cited sources and reasoning. searchLimit <= 0 selects the
// default. Search failures and generation failures are fatal; an empty
// result set is not, the model is told there was nothing relevant.
func (o *Orchestrator) Answer(ctx context.Context, graphID, question string, history []types.ChatMessage, searchLimit int) (*types.Answer, error) {
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}

	results, err := o.engine.Search(ctx, graphID, question, searchLimit, nil)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := prompts.Answer(question, formatHistory(history), formatResults(results.Results))
	resp, err := o.client.Chat(callCtx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	o.logger.Info("generated grounded answer",
		"graph_id", graphID, "sources", len(results.Results))

	return &types.Answer{
		Response:  resp.Content,
		Sources:   formatSources(results.Results),
		Reasoning: reasoning(results.Results),
		Metadata: map[string]interface{}{
			"search_results_count": len(results.Results),
			"model_used":           o.model,
			"graph_id":             graphID,
			"generated_at":         time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// SummarizeConversation condenses a transcript into a short summary.
// It is best-effort: on any failure it returns a fixed fallback string
// rather than an error.
func (o *Orchestrator) SummarizeConversation(ctx context.Context, messages []types.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", titleRole(msg.Role), msg.Content))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat(callCtx, prompts.Summarize(strings.Join(lines, "\n")))
	if err != nil {
		o.logger.Warn("conversation summary failed", "error", err)
		return "Unable to generate conversation summary."
	}
	return resp.Content
}

// formatHistory renders the trailing conversation turns with role
// labels.
func formatHistory(history []types.ChatMessage) string {
	if len(history) == 0 {
		return "No previous conversation."
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Assistant"
		if msg.Role == "user" {
			role = "Human"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// formatResults renders search results as a numbered context block. An
// empty result set yields an explicit notice so the model does not
// invent sources.
func formatResults(results []types.SearchResult) string {
	if len(results) == 0 {
		return "No directly relevant information found in the knowledge graph for this query."
	}

	var b strings.Builder
	for i, result := range results {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, result.Type, result.Content)
		if meta := formatMetadata(result.Metadata); meta != "" {
			fmt.Fprintf(&b, "   Metadata: %s\n", meta)
		}
		fmt.Fprintf(&b, "   Relevance: %.2f\n", result.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if metadata[k] != nil && metadata[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, metadata[k]))
	}
	return strings.Join(parts, ", ")
}

func formatSources(results []types.SearchResult) []types.Source {
	sources := make([]types.Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, types.Source{
			ID:       result.ID,
			Type:     result.Type,
			Content:  result.Content,
			Score:    result.Score,
			Metadata: result.Metadata,
		})
	}
	return sources
}

// reasoning describes how the answer was grounded, deterministically.
func reasoning(results []types.SearchResult) string {
	if len(results) == 0 {
		return "Response generated without specific graph context due to no relevant search results."
	}

	seen := make(map[string]struct{})
	var kinds []string
	for _, result := range results {
		if _, ok := seen[string(result.Type)]; ok {
			continue
		}
		seen[string(result.Type)] = struct{}{}
		kinds = append(kinds, string(result.Type))
	}
	sort.Strings(kinds)

	return fmt.Sprintf("Response generated using %d relevant graph nodes of types: %s",
		len(results), strings.Join(kinds, ", "))
}

func titleRole(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
