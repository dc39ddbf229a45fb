// Package extraction implements the two fact extraction strategies used
// by the ingestion pipeline. The model-backed extractor is preferred and
// degrades to the deterministic heuristic extractor on any failure, so
// extraction itself never fails an ingestion run.
package extraction

import (
	"context"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

// Extractor extracts typed entities and relationships from a text
// fragment. entityTypes constrains the classification vocabulary; an
// empty slice means the default vocabulary.
type Extractor interface {
	Extract(ctx context.Context, text string, entityTypes []string) (*types.ExtractionResult, error)
}

// vocabulary returns the effective entity type vocabulary.
func vocabulary(entityTypes []string) []string {
	if len(entityTypes) == 0 {
		return types.DefaultEntityTypes
	}
	return entityTypes
}
