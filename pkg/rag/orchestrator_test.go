package rag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/rag"
	"github.com/graphmind-ai/graphmind/pkg/search"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// recordingClient captures the messages it receives. A non-zero delay
// stalls the call, honoring context cancellation.
type recordingClient struct {
	response string
	err      error
	delay    time.Duration
	messages []llm.Message
}

func (c *recordingClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	c.messages = messages
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

func (c *recordingClient) Close() error { return nil }

func newOrchestrator(t *testing.T, client llm.Client, opts ...rag.OrchestratorOption) (*rag.Orchestrator, *driver.MemoryStore) {
	t.Helper()
	store := driver.NewMemoryStore()
	require.NoError(t, store.CreateGraph(context.Background(), types.GraphInfo{
		ID: "g1", Name: "test", CreatedAt: time.Now().UTC(),
	}))
	engine := search.NewEngine(store, nil)
	return rag.NewOrchestrator(engine, client, "gpt-4o", nil, opts...), store
}

func addChunk(t *testing.T, store *driver.MemoryStore, id, content string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.UpsertNode(context.Background(), &types.Node{
		ID: id, GraphID: "g1", Type: types.ChunkNodeType,
		Content: content, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestAnswerGroundsInSearchResults(t *testing.T) {
	client := &recordingClient{response: "Rust was announced in 2010."}
	o, store := newOrchestrator(t, client)
	addChunk(t, store, "c1", "Rust is a systems programming language announced in 2010.")

	answer, err := o.Answer(context.Background(), "g1", "when was Rust announced", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "Rust was announced in 2010.", answer.Response)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "c1", answer.Sources[0].ID)
	assert.Contains(t, answer.Reasoning, "1 relevant graph nodes")
	assert.Contains(t, answer.Reasoning, "chunk")
	assert.Equal(t, 1, answer.Metadata["search_results_count"])

	// The retrieved content must reach the model, under the fixed system
	// instruction including its temporal-reasoning directive.
	require.Len(t, client.messages, 2)
	assert.Contains(t, client.messages[0].Content, "evolved over time")
	assert.Contains(t, client.messages[1].Content, "systems programming language")
}

func TestAnswerWithNoResults(t *testing.T) {
	client := &recordingClient{response: "I have no information about that."}
	o, _ := newOrchestrator(t, client)

	answer, err := o.Answer(context.Background(), "g1", "anything at all", nil, 0)
	require.NoError(t, err)

	assert.Empty(t, answer.Sources)
	assert.Equal(t,
		"Response generated without specific graph context due to no relevant search results.",
		answer.Reasoning)
	assert.Contains(t, client.messages[1].Content,
		"No directly relevant information found in the knowledge graph")
}

func TestAnswerIncludesTrailingHistory(t *testing.T) {
	client := &recordingClient{response: "ok"}
	o, store := newOrchestrator(t, client)
	addChunk(t, store, "c1", "context about databases")

	history := make([]types.ChatMessage, 0, 10)
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, types.ChatMessage{Role: role, Content: string(rune('a' + i))})
	}

	_, err := o.Answer(context.Background(), "g1", "databases", history, 0)
	require.NoError(t, err)

	prompt := client.messages[1].Content
	assert.NotContains(t, prompt, "Human: a", "turns beyond the window should be dropped")
	assert.Contains(t, prompt, "Human: e")
	assert.Contains(t, prompt, "Assistant: j")
}

func TestAnswerGenerationFailure(t *testing.T) {
	client := &recordingClient{err: errors.New("backend down")}
	o, store := newOrchestrator(t, client)
	addChunk(t, store, "c1", "some content")

	_, err := o.Answer(context.Background(), "g1", "content", nil, 0)
	assert.ErrorIs(t, err, rag.ErrGenerationFailed)
}

func TestAnswerHonorsSearchLimit(t *testing.T) {
	client := &recordingClient{response: "ok"}
	o, store := newOrchestrator(t, client)
	addChunk(t, store, "c1", "database replication basics")
	addChunk(t, store, "c2", "database replication tradeoffs")
	addChunk(t, store, "c3", "database replication pitfalls")

	answer, err := o.Answer(context.Background(), "g1", "database replication", nil, 2)
	require.NoError(t, err)

	assert.Len(t, answer.Sources, 2)
	assert.Equal(t, 2, answer.Metadata["search_results_count"])
}

func TestAnswerTimesOutOnStalledBackend(t *testing.T) {
	client := &recordingClient{response: "too late", delay: time.Second}
	o, store := newOrchestrator(t, client, rag.WithGenerationTimeout(10*time.Millisecond))
	addChunk(t, store, "c1", "some content")

	start := time.Now()
	_, err := o.Answer(context.Background(), "g1", "content", nil, 0)
	assert.ErrorIs(t, err, rag.ErrGenerationFailed)
	assert.Less(t, time.Since(start), time.Second, "a stalled backend should not hold the call")
}

func TestAnswerMissingGraph(t *testing.T) {
	client := &recordingClient{response: "ok"}
	o, _ := newOrchestrator(t, client)

	_, err := o.Answer(context.Background(), "missing", "anything", nil, 0)
	assert.ErrorIs(t, err, driver.ErrGraphNotFound)
}

func TestSummarizeConversationFallsBack(t *testing.T) {
	client := &recordingClient{err: errors.New("backend down")}
	o, _ := newOrchestrator(t, client)

	summary := o.SummarizeConversation(context.Background(), []types.ChatMessage{
		{Role: "user", Content: "hello"},
	})
	assert.Equal(t, "Unable to generate conversation summary.", summary)
}

func TestSummarizeEmptyConversation(t *testing.T) {
	client := &recordingClient{response: "should not be called"}
	o, _ := newOrchestrator(t, client)

	assert.Empty(t, o.SummarizeConversation(context.Background(), nil))
}
