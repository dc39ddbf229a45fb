package extraction_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/extraction"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

func TestHeuristicExtractorNeverFails(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	inputs := []string{
		"",
		"no capitals here at all",
		"Alice met Bob in Paris. Charlie joined later.",
		strings.Repeat("Word ", 10000),
		"!!! ??? ...",
	}
	for _, input := range inputs {
		result, err := e.Extract(context.Background(), input, nil)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, types.StrategyHeuristic, result.Metadata.Strategy)
		assert.Equal(t, len(input), result.Metadata.TextLength)
	}
}

func TestHeuristicExtractorFindsCapitalizedRuns(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	result, err := e.Extract(context.Background(),
		"Alice Johnson works at Acme Corp in Berlin.", nil)
	require.NoError(t, err)

	names := make([]string, 0, len(result.Entities))
	for _, ent := range result.Entities {
		names = append(names, ent.Name)
	}
	assert.Contains(t, names, "Alice Johnson")
	assert.Contains(t, names, "Acme Corp")
	assert.Contains(t, names, "Berlin")
}

func TestHeuristicExtractorBoundsEntityCount(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Entity")
		b.WriteByte(byte('A' + i%26))
		b.WriteString(" lives somewhere. ")
	}

	result, err := e.Extract(context.Background(), b.String(), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Entities), 10)
}

func TestHeuristicExtractorRelationshipsReferenceOwnEntities(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	result, err := e.Extract(context.Background(),
		"Alice met Bob. Bob knows Carol. Carol visited Dave.", nil)
	require.NoError(t, err)

	names := make(map[string]struct{}, len(result.Entities))
	for _, ent := range result.Entities {
		names[ent.Name] = struct{}{}
	}
	for _, rel := range result.Relationships {
		assert.Contains(t, names, rel.Source)
		assert.Contains(t, names, rel.Target)
	}
}

func TestHeuristicExtractorUsesRequestedVocabulary(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	result, err := e.Extract(context.Background(),
		"Alice works with Bob.", []string{"Character"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Entities)
	for _, ent := range result.Entities {
		assert.Equal(t, "Character", ent.Type)
	}
}

func TestHeuristicExtractorSkipsSentenceLeadingStopwords(t *testing.T) {
	e := extraction.NewHeuristicExtractor()

	result, err := e.Extract(context.Background(),
		"The weather is nice. This is a test about Paris.", nil)
	require.NoError(t, err)

	for _, ent := range result.Entities {
		assert.NotEqual(t, "The", ent.Name)
		assert.NotEqual(t, "This", ent.Name)
	}
}
