package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

// ErrQueueFull is returned when the ingestion queue cannot accept more
// work.
var ErrQueueFull = errors.New("ingestion queue is full")

// Job is one queued ingestion run.
type Job struct {
	GraphID    string
	DocumentID string
	File       types.UploadedFile
	Options    types.IngestOptions
}

// Queue runs ingestion jobs on a bounded worker pool. Uploads return
// immediately; callers observe outcomes through the status tracker.
type Queue struct {
	pipeline *Pipeline
	tracker  *StatusTracker
	logger   *slog.Logger

	jobs   chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewQueue creates a queue with the given worker count and buffer size
// and starts its workers.
func NewQueue(pipeline *Pipeline, tracker *StatusTracker, workers, buffer int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 32
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		pipeline: pipeline,
		tracker:  tracker,
		logger:   logger,
		jobs:     make(chan Job, buffer),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue registers the job's queued status and hands it to the pool
// without blocking. A full queue marks the run failed so pollers are not
// left watching a status that will never advance.
func (q *Queue) Enqueue(job Job) error {
	if err := q.tracker.Start(job.DocumentID, job.GraphID); err != nil {
		return fmt.Errorf("register ingest status: %w", err)
	}

	select {
	case q.jobs <- job:
	default:
		err := fmt.Errorf("%w: document %s", ErrQueueFull, job.DocumentID)
		q.tracker.Fail(job.DocumentID, err)
		return err
	}
	return nil
}

// Close stops accepting work, cancels running jobs and waits for the
// workers to drain.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
		q.cancel()
	})
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(job)
	}
}

func (q *Queue) run(job Job) {
	q.logger.Info("starting ingest run",
		"graph_id", job.GraphID, "document_id", job.DocumentID, "file", job.File.Name)

	result, err := q.pipeline.Run(q.ctx, job.GraphID, job.DocumentID, job.File, job.Options)
	if err != nil {
		q.logger.Error("ingest run failed",
			"graph_id", job.GraphID, "document_id", job.DocumentID, "error", err)
		q.tracker.Fail(job.DocumentID, err)
		return
	}

	q.tracker.Complete(job.DocumentID, result, fmt.Sprintf(
		"processing completed: %d chunks, %d entities, %d relationships",
		result.ChunksProcessed, result.EntitiesCount, result.RelationshipsCount))

	q.logger.Info("ingest run completed",
		"graph_id", job.GraphID, "document_id", job.DocumentID,
		"chunks", result.ChunksProcessed, "entities", result.EntitiesCount)
}
