package ingest_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/extraction"
	"github.com/graphmind-ai/graphmind/pkg/ingest"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

func waitForTerminal(t *testing.T, tracker *ingest.StatusTracker, documentID string) *types.ProcessingStatus {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := tracker.Get(documentID)
		if err == nil && status.State.Terminal() {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never reached a terminal state", documentID)
	return nil
}

func TestQueueProcessesJobToCompletion(t *testing.T) {
	f := newFixture(t, extraction.NewHeuristicExtractor(), 4000, 200, 0)
	q := ingest.NewQueue(f.pipeline, f.tracker, 1, 4, nil)
	defer q.Close()

	info, err := f.registry.Create(context.Background(), "docs")
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ingest.Job{
		GraphID:    info.ID,
		DocumentID: "doc-1",
		File:       textFile("big.txt", strings.Repeat("a", 9000)),
		Options:    types.IngestOptions{ExtractFacts: false},
	}))

	status := waitForTerminal(t, f.tracker, "doc-1")
	assert.Equal(t, types.StateCompleted, status.State)
	assert.Equal(t, 1.0, status.Progress)
}

func TestQueueMarksFailedRuns(t *testing.T) {
	f := newFixture(t, extraction.NewHeuristicExtractor(), 100, 20, 0)
	q := ingest.NewQueue(f.pipeline, f.tracker, 1, 4, nil)
	defer q.Close()

	info, err := f.registry.Create(context.Background(), "docs")
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ingest.Job{
		GraphID:    info.ID,
		DocumentID: "doc-bad",
		File: types.UploadedFile{
			Name:        "image.png",
			ContentType: "image/png",
			Data:        []byte{0x89},
		},
	}))

	status := waitForTerminal(t, f.tracker, "doc-bad")
	assert.Equal(t, types.StateFailed, status.State)
	assert.Less(t, status.Progress, 1.0)
	assert.NotEmpty(t, status.Errors)
}

func TestQueueProgressIsMonotonic(t *testing.T) {
	f := newFixture(t, extraction.NewHeuristicExtractor(), 100, 20, 5)
	q := ingest.NewQueue(f.pipeline, f.tracker, 1, 4, nil)
	defer q.Close()

	info, err := f.registry.Create(context.Background(), "docs")
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ingest.Job{
		GraphID:    info.ID,
		DocumentID: "doc-1",
		File:       textFile("doc.txt", strings.Repeat("Alice met Bob. ", 100)),
		Options:    types.IngestOptions{ExtractFacts: true},
	}))

	status := waitForTerminal(t, f.tracker, "doc-1")
	require.Equal(t, types.StateCompleted, status.State)
	assert.Equal(t, 1.0, status.Progress)

	// Replay every persisted status and check progress never went
	// backwards.
	last := -1.0
	for _, raw := range f.kv.snapshots() {
		var snap types.ProcessingStatus
		require.NoError(t, json.Unmarshal(raw, &snap))
		if snap.DocumentID != "doc-1" {
			continue
		}
		assert.GreaterOrEqual(t, snap.Progress, last)
		last = snap.Progress
	}
	assert.Equal(t, 1.0, last)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	// A slow model keeps the single worker busy so the buffer fills.
	extractor := extraction.NewLLMExtractor(slowClient{delay: 500 * time.Millisecond}, "gpt-4o", nil)
	f := newFixture(t, extractor, 4000, 200, 0)
	q := ingest.NewQueue(f.pipeline, f.tracker, 1, 1, nil)
	defer q.Close()

	info, err := f.registry.Create(context.Background(), "docs")
	require.NoError(t, err)

	doc := textFile("doc.txt", "Alice met Bob.")
	opts := types.IngestOptions{ExtractFacts: true}

	var sawFull bool
	for _, id := range []string{"doc-1", "doc-2", "doc-3", "doc-4"} {
		err := q.Enqueue(ingest.Job{GraphID: info.ID, DocumentID: id, File: doc, Options: opts})
		if err != nil {
			assert.ErrorIs(t, err, ingest.ErrQueueFull)
			sawFull = true

			status, getErr := f.tracker.Get(id)
			require.NoError(t, getErr)
			assert.Equal(t, types.StateFailed, status.State)
			break
		}
	}
	assert.True(t, sawFull, "expected the bounded queue to reject work")
}
