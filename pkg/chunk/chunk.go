package chunk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is returned for degenerate splitter configurations.
	ErrInvalidConfig = errors.New("invalid chunking config")
)

// sentence terminators considered when snapping a window boundary.
const sentenceTerminators = ".!?"

// Chunk is a bounded text segment of a document. Index and Total are
// carried into extraction output as provenance.
type Chunk struct {
	Index int
	Total int
	Text  string
}

// Splitter splits text into overlapping, sentence-boundary-aware
// segments bounded by a target size.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. Degenerate configurations (non-positive
// size, negative overlap, overlap >= size) are rejected here so Split
// always terminates.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split walks the text in windows of the chunk size. When a window's
// right edge falls mid-text, the boundary snaps backward to the nearest
// sentence terminator within overlap distance to avoid mid-sentence cuts.
// Consecutive chunks share up to overlap characters of context. Chunks
// that are empty after trimming are dropped.
func (s *Splitter) Split(text string) []Chunk {
	if len(text) == 0 {
		return []Chunk{}
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end < len(text) {
			if snap := lastTerminator(text, start+s.chunkSize-s.overlap, end); snap > start {
				end = snap + 1
			}
		} else {
			end = len(text)
		}

		if trimmed := strings.TrimSpace(text[start:end]); trimmed != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: trimmed})
		}

		// The clamped final window already covers the rest of the text;
		// advancing past it would emit a tail contained in this chunk.
		if end == len(text) {
			break
		}

		next := end - s.overlap
		if next <= start {
			// Aggressive snapping can stall the window; force progress.
			next = end
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// lastTerminator returns the index of the last sentence terminator in
// text[from:to), or -1.
func lastTerminator(text string, from, to int) int {
	if from < 0 {
		from = 0
	}
	if to > len(text) {
		to = len(text)
	}
	for i := to - 1; i >= from; i-- {
		if strings.IndexByte(sentenceTerminators, text[i]) != -1 {
			return i
		}
	}
	return -1
}
