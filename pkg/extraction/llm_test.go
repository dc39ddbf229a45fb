package extraction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/extraction"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// stubClient returns a fixed response or error.
type stubClient struct {
	response string
	err      error
	delay    time.Duration
}

func (c *stubClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.response}, nil
}

func (c *stubClient) Close() error { return nil }

func TestLLMExtractorParsesModelResponse(t *testing.T) {
	client := &stubClient{response: "```json\n" + `{
		"entities": [
			{"name": "Alice", "type": "Person", "description": "an engineer"},
			{"name": "Acme", "type": "Organization"}
		],
		"relationships": [
			{"source": "Alice", "target": "Acme", "relationship": "works_at"}
		]
	}` + "\n```"}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil)
	result, err := e.Extract(context.Background(), "Alice works at Acme.", nil)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyModel, result.Metadata.Strategy)
	assert.Equal(t, "gpt-4o", result.Metadata.Model)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Alice", result.Entities[0].Name)
	assert.Equal(t, "Person", result.Entities[0].Type)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "works_at", result.Relationships[0].Relation)
}

func TestLLMExtractorDegradesOnClientError(t *testing.T) {
	client := &stubClient{err: errors.New("backend unavailable")}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil)
	result, err := e.Extract(context.Background(), "Alice works at Acme.", nil)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyHeuristic, result.Metadata.Strategy)
	assert.Empty(t, result.Metadata.Model)
}

func TestLLMExtractorDegradesOnTimeout(t *testing.T) {
	client := &stubClient{response: `{"entities": [], "relationships": []}`, delay: time.Second}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil,
		extraction.WithTimeout(10*time.Millisecond))
	result, err := e.Extract(context.Background(), "Alice works at Acme.", nil)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyHeuristic, result.Metadata.Strategy)
}

func TestLLMExtractorDegradesOnUnparseableResponse(t *testing.T) {
	client := &stubClient{response: "I could not find any structure in that text, sorry."}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil)
	result, err := e.Extract(context.Background(), "Alice works at Acme.", nil)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyHeuristic, result.Metadata.Strategy)
}

func TestLLMExtractorDropsDanglingRelationships(t *testing.T) {
	client := &stubClient{response: `{
		"entities": [{"name": "Alice", "type": "Person"}],
		"relationships": [
			{"source": "Alice", "target": "Ghost", "relationship": "knows"}
		]
	}`}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil)
	result, err := e.Extract(context.Background(), "Alice.", nil)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyModel, result.Metadata.Strategy)
	assert.Empty(t, result.Relationships)
}

func TestLLMExtractorMapsUnknownEntityTypes(t *testing.T) {
	client := &stubClient{response: `{
		"entities": [{"name": "Alice", "type": "Wizard"}],
		"relationships": []
	}`}

	e := extraction.NewLLMExtractor(client, "gpt-4o", nil)
	result, err := e.Extract(context.Background(), "Alice.", []string{"Person", "Organization"})
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Person", result.Entities[0].Type)
}
