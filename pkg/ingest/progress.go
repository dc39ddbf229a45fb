package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/store"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

const statusKeyPrefix = "status/"

// StatusTracker persists per-document processing statuses. Progress is
// clamped to be monotonically non-decreasing for a given document, so a
// late progress report from a slow stage never makes the bar move
// backwards.
type StatusTracker struct {
	kv     store.KV
	logger *slog.Logger
}

// NewStatusTracker creates a tracker backed by kv.
func NewStatusTracker(kv store.KV, logger *slog.Logger) *StatusTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusTracker{kv: kv, logger: logger}
}

// Start records the queued status for a new ingestion run.
func (t *StatusTracker) Start(documentID, graphID string) error {
	status := &types.ProcessingStatus{
		DocumentID: documentID,
		GraphID:    graphID,
		State:      types.StateQueued,
		Progress:   0,
		Message:    "queued for processing",
		UpdatedAt:  time.Now().UTC(),
	}
	return t.put(status)
}

// Update applies fn to the current status and persists the result.
// Terminal states are frozen; progress never decreases.
func (t *StatusTracker) Update(documentID string, fn func(*types.ProcessingStatus)) error {
	status, err := t.Get(documentID)
	if err != nil {
		return err
	}
	if status.State.Terminal() {
		return nil
	}

	before := status.Progress
	fn(status)
	if status.Progress < before {
		status.Progress = before
	}
	status.UpdatedAt = time.Now().UTC()

	return t.put(status)
}

// Progress records a non-terminal progress report.
func (t *StatusTracker) Progress(documentID string, fraction float64, message string) {
	err := t.Update(documentID, func(s *types.ProcessingStatus) {
		s.State = types.StateProcessing
		s.Progress = fraction
		s.Message = message
	})
	if err != nil {
		t.logger.Warn("failed to record progress", "document_id", documentID, "error", err)
	}
}

// Complete marks the run completed with final counts. Progress becomes
// exactly 1.0 only here.
func (t *StatusTracker) Complete(documentID string, result *types.IngestResult, message string) {
	err := t.Update(documentID, func(s *types.ProcessingStatus) {
		s.State = types.StateCompleted
		s.Progress = 1.0
		s.Message = message
		s.EntitiesExtracted = result.EntitiesCount
		s.RelationshipsExtracted = result.RelationshipsCount
	})
	if err != nil {
		t.logger.Warn("failed to record completion", "document_id", documentID, "error", err)
	}
}

// Fail marks the run failed, keeping the last reported progress.
func (t *StatusTracker) Fail(documentID string, cause error) {
	err := t.Update(documentID, func(s *types.ProcessingStatus) {
		s.State = types.StateFailed
		s.Message = "processing failed"
		s.Errors = append(s.Errors, cause.Error())
	})
	if err != nil {
		t.logger.Warn("failed to record failure", "document_id", documentID, "error", err)
	}
}

// Get returns the status for documentID.
func (t *StatusTracker) Get(documentID string) (*types.ProcessingStatus, error) {
	data, err := t.kv.Get(statusKeyPrefix + documentID)
	if err != nil {
		return nil, err
	}

	var status types.ProcessingStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", documentID, err)
	}
	return &status, nil
}

// List returns statuses for all tracked documents, optionally filtered
// by graph.
func (t *StatusTracker) List(graphID string) ([]*types.ProcessingStatus, error) {
	values, err := t.kv.List(statusKeyPrefix)
	if err != nil {
		return nil, err
	}

	statuses := make([]*types.ProcessingStatus, 0, len(values))
	for _, data := range values {
		var status types.ProcessingStatus
		if err := json.Unmarshal(data, &status); err != nil {
			t.logger.Warn("skipping undecodable status record", "error", err)
			continue
		}
		if graphID != "" && status.GraphID != graphID {
			continue
		}
		statuses = append(statuses, &status)
	}
	return statuses, nil
}

// Delete removes the status record for documentID.
func (t *StatusTracker) Delete(documentID string) error {
	return t.kv.Delete(statusKeyPrefix + documentID)
}

func (t *StatusTracker) put(status *types.ProcessingStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", status.DocumentID, err)
	}
	return t.kv.Set(statusKeyPrefix+status.DocumentID, data)
}
