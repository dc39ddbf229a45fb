package extraction

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

// maxHeuristicEntities bounds the entity count per fragment so degraded
// runs stay cheap to store and render.
const maxHeuristicEntities = 10

// stopwords that start sentences but never name anything.
var heuristicStopwords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"A": {}, "An": {}, "It": {}, "In": {}, "On": {}, "At": {},
	"For": {}, "And": {}, "But": {}, "Or": {}, "If": {}, "As": {},
	"When": {}, "While": {}, "With": {}, "From": {}, "To": {},
	"He": {}, "She": {}, "They": {}, "We": {}, "You": {}, "I": {},
}

// HeuristicExtractor is the deterministic lexical fallback strategy. It
// treats runs of capitalized words as entity mentions and links
// consecutive mentions as co-occurrence relationships. It never fails.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract scans for capitalized token runs and emits them as entities in
// order of first appearance, bounded to a small fixed count. Every
// relationship references only entities from the same result.
func (e *HeuristicExtractor) Extract(_ context.Context, text string, entityTypes []string) (*types.ExtractionResult, error) {
	vocab := vocabulary(entityTypes)
	entityType := pickHeuristicType(vocab)

	entities := make([]types.ExtractedEntity, 0, maxHeuristicEntities)
	seen := make(map[string]struct{})
	for _, name := range capitalizedRuns(text) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entities = append(entities, types.ExtractedEntity{
			Name:        name,
			Type:        entityType,
			Description: "mentioned in document text",
		})
		if len(entities) >= maxHeuristicEntities {
			break
		}
	}

	relationships := make([]types.ExtractedRelationship, 0)
	for i := 0; i+1 < len(entities); i++ {
		relationships = append(relationships, types.ExtractedRelationship{
			Source:      entities[i].Name,
			Target:      entities[i+1].Name,
			Relation:    "co_occurs_with",
			Description: "mentioned in the same passage",
		})
	}

	return &types.ExtractionResult{
		Entities:      entities,
		Relationships: relationships,
		Metadata: types.ExtractionMetadata{
			Strategy:    types.StrategyHeuristic,
			TextLength:  len(text),
			ExtractedAt: time.Now().UTC(),
		},
	}, nil
}

// pickHeuristicType prefers the generic Concept type when the vocabulary
// allows it, since lexical matching cannot classify mentions.
func pickHeuristicType(vocab []string) string {
	for _, t := range vocab {
		if t == "Concept" {
			return t
		}
	}
	if len(vocab) > 0 {
		return vocab[0]
	}
	return "Concept"
}

// capitalizedRuns returns maximal runs of adjacent capitalized words,
// in order of appearance. Single-word stopword runs are dropped.
func capitalizedRuns(text string) []string {
	var runs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		name := strings.Join(current, " ")
		current = nil
		if len(name) < 3 {
			return
		}
		if _, stop := heuristicStopwords[name]; stop {
			return
		}
		runs = append(runs, name)
	}

	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if isCapitalizedWord(word) {
			current = append(current, word)
		} else {
			flush()
		}
		// Punctuation after the word ends the run even if the next word
		// is capitalized.
		if word != "" && strings.ContainsAny(field, ".,;:!?") {
			flush()
		}
	}
	flush()

	return runs
}

func isCapitalizedWord(word string) bool {
	if word == "" {
		return false
	}
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
