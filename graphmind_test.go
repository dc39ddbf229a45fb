package graphmind_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/store"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// echoClient answers every chat call with a fixed string.
type echoClient struct {
	response string
}

func (c *echoClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return &llm.Response{Content: c.response}, nil
}

func (c *echoClient) Close() error { return nil }

func newService(t *testing.T, client llm.Client) *graphmind.Service {
	t.Helper()

	kv, err := store.NewBadgerStore("")
	require.NoError(t, err)

	service, err := graphmind.NewService(
		driver.NewMemoryStore(), kv, client,
		graphmind.SplitterConfig{ChunkSize: 200, Overlap: 40},
		graphmind.Options{Model: "gpt-4o", Workers: 1, QueueBuffer: 8},
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close(context.Background()) })
	return service
}

func waitForDocument(t *testing.T, service *graphmind.Service, documentID string) *types.ProcessingStatus {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := service.GetProcessingStatus(documentID)
		if err == nil && status.State.Terminal() {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never reached a terminal state", documentID)
	return nil
}

func TestGraphLifecycle(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "research")
	require.NoError(t, err)

	got, err := service.GetGraph(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "research", got.Name)

	infos, err := service.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	require.NoError(t, service.DeleteGraph(ctx, info.ID))
	_, err = service.GetGraph(ctx, info.ID)
	assert.ErrorIs(t, err, graphmind.ErrGraphNotFound)
}

func TestUploadAndProcessDocument(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "docs")
	require.NoError(t, err)

	content := strings.Repeat("Alice met Bob in Berlin. ", 40)
	documentID, err := service.UploadDocument(ctx, info.ID, types.UploadedFile{
		Name:        "meeting.txt",
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Data:        []byte(content),
	}, types.IngestOptions{ExtractFacts: false})
	require.NoError(t, err)
	require.NotEmpty(t, documentID)

	status := waitForDocument(t, service, documentID)
	assert.Equal(t, types.StateCompleted, status.State)
	assert.Equal(t, 1.0, status.Progress)

	// The completed document must be findable.
	results, err := service.Search(ctx, info.ID, "Berlin", 10, nil)
	require.NoError(t, err)
	assert.Greater(t, results.Total, 0)
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "docs")
	require.NoError(t, err)

	_, err = service.UploadDocument(ctx, info.ID, types.UploadedFile{
		Name: "empty.txt", ContentType: "text/plain",
	}, types.IngestOptions{})
	assert.ErrorIs(t, err, graphmind.ErrInvalidUpload)

	_, err = service.UploadDocument(ctx, info.ID, types.UploadedFile{
		Name: "script.exe", ContentType: "application/x-msdownload",
		Size: 3, Data: []byte("abc"),
	}, types.IngestOptions{})
	assert.ErrorIs(t, err, graphmind.ErrInvalidUpload)
}

func TestUploadToMissingGraph(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})

	_, err := service.UploadDocument(context.Background(), "missing", types.UploadedFile{
		Name: "a.txt", ContentType: "text/plain", Size: 2, Data: []byte("hi"),
	}, types.IngestOptions{})
	assert.ErrorIs(t, err, graphmind.ErrGraphNotFound)
}

func TestSendMessageRecordsBothTurns(t *testing.T) {
	service := newService(t, &echoClient{response: "grounded answer"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "chat")
	require.NoError(t, err)

	answer, err := service.SendMessage(ctx, info.ID, "s1", "what do you know?", 0)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer.Response)
	assert.Equal(t, "s1", answer.Metadata["session_id"])

	sess, err := service.GetSession("s1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Role)
	assert.Equal(t, "assistant", sess.Messages[1].Role)
}

func TestSendMessageToMissingGraphCreatesNoSession(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})

	_, err := service.SendMessage(context.Background(), "missing", "s1", "hello", 0)
	assert.ErrorIs(t, err, graphmind.ErrGraphNotFound)

	_, err = service.GetSession("s1")
	assert.ErrorIs(t, err, graphmind.ErrSessionNotFound)
}

func TestDeleteGraphRemovesSessions(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "chat")
	require.NoError(t, err)

	_, err = service.SendMessage(ctx, info.ID, "s1", "hello", 0)
	require.NoError(t, err)

	require.NoError(t, service.DeleteGraph(ctx, info.ID))

	_, err = service.GetSession("s1")
	assert.ErrorIs(t, err, graphmind.ErrSessionNotFound)
}

func TestDeleteDocumentRemovesStatus(t *testing.T) {
	service := newService(t, &echoClient{response: "ok"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "docs")
	require.NoError(t, err)

	documentID, err := service.UploadDocument(ctx, info.ID, types.UploadedFile{
		Name: "a.txt", ContentType: "text/plain", Size: 5, Data: []byte("hello"),
	}, types.IngestOptions{ExtractFacts: false})
	require.NoError(t, err)
	waitForDocument(t, service, documentID)

	require.NoError(t, service.DeleteDocument(documentID))
	_, err = service.GetProcessingStatus(documentID)
	assert.ErrorIs(t, err, graphmind.ErrStatusNotFound)

	assert.ErrorIs(t, service.DeleteDocument("missing"), graphmind.ErrStatusNotFound)
}

func TestExtractFactsDirect(t *testing.T) {
	client := &echoClient{response: `{
		"entities": [{"name": "Alice", "type": "Person"}],
		"relationships": []
	}`}
	service := newService(t, client)

	result, err := service.ExtractFacts(context.Background(), "Alice.", nil)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyModel, result.Metadata.Strategy)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Alice", result.Entities[0].Name)
}

func TestExportSessionIncludesSummary(t *testing.T) {
	service := newService(t, &echoClient{response: "a fine summary"})
	ctx := context.Background()

	info, err := service.CreateGraph(ctx, "chat")
	require.NoError(t, err)

	_, err = service.SendMessage(ctx, info.ID, "s1", "hello", 0)
	require.NoError(t, err)

	transcript, err := service.ExportSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a fine summary", transcript.Summary)
	assert.Len(t, transcript.Messages, 2)
}
