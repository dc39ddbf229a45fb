package graphmind

import (
	"errors"

	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/extract"
	"github.com/graphmind-ai/graphmind/pkg/rag"
	"github.com/graphmind-ai/graphmind/pkg/session"
)

// Sentinel errors re-exported from the packages that produce them, so
// callers can match without importing internals.
var (
	// ErrGraphNotFound is returned when a graph instance does not exist.
	ErrGraphNotFound = driver.ErrGraphNotFound
	// ErrNodeNotFound is returned when a node does not exist in a graph.
	ErrNodeNotFound = driver.ErrNodeNotFound
	// ErrSessionNotFound is returned when a chat session does not exist.
	ErrSessionNotFound = session.ErrSessionNotFound
	// ErrStatusNotFound is returned when no processing status exists for
	// a document.
	ErrStatusNotFound = errors.New("processing status not found")
	// ErrUnsupportedFormat is returned for document formats the text
	// extractor does not handle.
	ErrUnsupportedFormat = extract.ErrUnsupportedFormat
	// ErrGenerationFailed is returned when the model cannot produce a
	// grounded answer.
	ErrGenerationFailed = rag.ErrGenerationFailed
	// ErrInvalidUpload is returned when an uploaded file fails
	// validation.
	ErrInvalidUpload = errors.New("invalid upload")
)
