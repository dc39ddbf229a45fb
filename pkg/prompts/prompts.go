// Package prompts holds the prompt builders used for fact extraction,
// retrieval-augmented answering and conversation summarization. Each
// builder returns ready-to-send chat messages so callers never assemble
// prompt text themselves.
package prompts

import (
	"fmt"
	"strings"

	"github.com/graphmind-ai/graphmind/pkg/llm"
)

// ExtractFacts builds the messages for structured entity and
// relationship extraction from a text fragment. entityTypes constrains
// the classification vocabulary.
func ExtractFacts(text string, entityTypes []string) []llm.Message {
	sysPrompt := `You are an AI assistant that extracts entities and relationships from text.
You always respond with a single JSON object and nothing else.`

	userPrompt := fmt.Sprintf(`<ENTITY TYPES>
%s
</ENTITY TYPES>

<TEXT>
%s
</TEXT>

Instructions:

Extract the significant entities mentioned in TEXT and the relationships between them.

1. Classify every entity with one of the types listed in ENTITY TYPES.
2. Be explicit and unambiguous in naming entities (use full names when available).
3. Only report relationships whose source and target both appear in your entity list.
4. Do not extract pronouns as entities.

Respond with JSON in exactly this shape:

{
  "entities": [{"name": "...", "type": "...", "description": "..."}],
  "relationships": [{"source": "...", "target": "...", "relationship": "...", "description": "..."}]
}`, strings.Join(entityTypes, ", "), text)

	return []llm.Message{
		llm.NewSystemMessage(sysPrompt),
		llm.NewUserMessage(userPrompt),
	}
}

// AnswerSystemPrompt is the fixed system prompt for graph-grounded
// question answering.
const AnswerSystemPrompt = `You are a knowledgeable assistant that answers questions using a temporal knowledge graph.
Ground every claim in the provided search results and conversation history.
When the search results do not contain relevant information, say so plainly instead of guessing.
Consider temporal relationships and how the information has evolved over time when that is relevant to the question.`

// Answer builds the messages for answering a question against retrieved
// graph context. history and context are preformatted blocks produced by
// the caller.
func Answer(question, history, context string) []llm.Message {
	userPrompt := fmt.Sprintf(`<CONVERSATION HISTORY>
%s
</CONVERSATION HISTORY>

<SEARCH RESULTS>
%s
</SEARCH RESULTS>

<QUESTION>
%s
</QUESTION>

Answer the QUESTION using the SEARCH RESULTS and, where relevant, the CONVERSATION HISTORY.`, history, context, question)

	return []llm.Message{
		llm.NewSystemMessage(AnswerSystemPrompt),
		llm.NewUserMessage(userPrompt),
	}
}

// Summarize builds the messages for condensing a conversation transcript
// into a short summary.
func Summarize(transcript string) []llm.Message {
	sysPrompt := `You are an AI assistant that summarizes conversations.
Write a concise summary covering the topics discussed and any conclusions reached.`

	userPrompt := fmt.Sprintf(`<CONVERSATION>
%s
</CONVERSATION>

Summarize the conversation above in at most five sentences.`, transcript)

	return []llm.Message{
		llm.NewSystemMessage(sysPrompt),
		llm.NewUserMessage(userPrompt),
	}
}
