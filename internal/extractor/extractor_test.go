package extractor_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/extractor"
	"github.com/Elizarfish/infinite-context/internal/store"
	"github.com/Elizarfish/infinite-context/internal/transcript"
)

func turnWithToolCalls(userText string, calls ...transcript.ToolCall) transcript.Turn {
	return transcript.Turn{
		UserMessage:  transcript.Message{Role: "user", Text: userText},
		AllToolCalls: calls,
	}
}

func toolCall(name string, input map[string]string) transcript.ToolCall {
	raw, _ := json.Marshal(input)
	return transcript.ToolCall{Name: name, Input: raw}
}

func newExtractor() *extractor.RuleBased {
	return extractor.New(config.DefaultConfig())
}

func TestExtractFileChangeWriteProducesMemory(t *testing.T) {
	ex := newExtractor()
	turn := turnWithToolCalls("", toolCall("Write", map[string]string{"file_path": "main.go"}))

	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, store.CategoryFileChange, memories[0].Category)
	assert.Contains(t, memories[0].Content, "main.go")
}

func TestExtractFileChangeRepeatedEditsCollapseBySourceHash(t *testing.T) {
	ex := newExtractor()
	turn := turnWithToolCalls("",
		toolCall("Edit", map[string]string{"file_path": "a.go", "old_string": "foo", "new_string": "bar"}),
		toolCall("Edit", map[string]string{"file_path": "a.go", "old_string": "bar", "new_string": "baz"}),
	)

	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 2)
	// Same path -> same source hash regardless of which strings changed, so a
	// downstream InsertMany dedup collapses repeated edits to one row.
	require.NotNil(t, memories[0].SourceHash)
	require.NotNil(t, memories[1].SourceHash)
	assert.Equal(t, *memories[0].SourceHash, *memories[1].SourceHash)
}

func TestExtractFileChangeIgnoresOtherTools(t *testing.T) {
	ex := newExtractor()
	turn := turnWithToolCalls("", toolCall("Read", map[string]string{"file_path": "a.go"}))
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestExtractNotableCommandMatchesKnownPrefixes(t *testing.T) {
	ex := newExtractor()
	turn := turnWithToolCalls("", toolCall("Bash", map[string]string{"command": "npm install express"}))
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, store.CategoryNote, memories[0].Category)
}

func TestExtractNotableCommandIgnoresUnlistedCommands(t *testing.T) {
	ex := newExtractor()
	turn := turnWithToolCalls("", toolCall("Bash", map[string]string{"command": "ls -la"}))
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestExtractErrorsOnlyFromFailedToolResults(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		UserMessage: transcript.Message{Role: "user", Text: ""},
		AllToolResults: []transcript.ToolResult{
			{Content: "all good", IsError: false},
			{Content: "boom: nil pointer dereference", IsError: true},
		},
	}
	memories, err := extractor.New(config.DefaultConfig()).Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, store.CategoryError, memories[0].Category)
	assert.Contains(t, memories[0].Content, "nil pointer dereference")
}

func TestExtractDecisionsMatchesPhrasingAndCapsAtThree(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		UserMessage: transcript.Message{Role: "user"},
		AssistantMessages: []transcript.Message{{
			Role: "assistant",
			Text: strings.Join([]string{
				"I'll use a worker pool instead of spawning one goroutine per request",
				"Let's go with the cobra-based CLI structure for this command",
				"We should cache the computed scores to avoid recomputation",
				"Going with sqlite for local storage since it needs no server process",
			}, "\n"),
		}},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Len(t, memories, 3, "at most 3 decisions per assistant message")
	for _, m := range memories {
		assert.Equal(t, store.CategoryDecision, m.Category)
	}
}

func TestExtractDecisionsSuppressesPureIntentToRead(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		AssistantMessages: []transcript.Message{{
			Role: "assistant",
			Text: "Let me read the config file to understand current defaults first",
		}},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestExtractDecisionsRejectsOutOfLengthBounds(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		AssistantMessages: []transcript.Message{{
			Role: "assistant",
			Text: "I'll do it", // 10 chars, below the 20 floor
		}},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestExtractArchitectureFromThinkingCapsAtTwo(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		AssistantMessages: []transcript.Message{{
			Role: "assistant",
			Thinking: strings.Join([]string{
				"The module boundary here separates storage from extraction logic cleanly",
				"This interface abstraction keeps the dependency direction pointing inward",
				"Another layer of indirection would add more coupling than it removes here",
			}, "\n"),
		}},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Len(t, memories, 2, "at most 2 architecture notes per thinking block")
	for _, m := range memories {
		assert.Equal(t, store.CategoryArchitecture, m.Category)
	}
}

func TestExtractArchitectureIgnoresNonVocabularyLines(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		AssistantMessages: []transcript.Message{{
			Role:     "assistant",
			Thinking: "The user probably wants the tests to pass before merging this branch",
		}},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestExtractUserRequestBoundaryCases(t *testing.T) {
	ex := newExtractor()

	exactly20 := strings.Repeat("x", 20) // len == 20, must be excluded (strict >)
	turn20 := transcript.Turn{UserMessage: transcript.Message{Role: "user", Text: exactly20}}
	memories, err := ex.Extract([]transcript.Turn{turn20}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories, "length exactly 20 must be excluded")

	exactly21 := strings.Repeat("x", 21)
	turn21 := transcript.Turn{UserMessage: transcript.Message{Role: "user", Text: exactly21}}
	memories, err = ex.Extract([]transcript.Turn{turn21}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1, "length 21 must be included")

	exactly500 := strings.Repeat("x", 500)
	turn500 := transcript.Turn{UserMessage: transcript.Message{Role: "user", Text: exactly500}}
	memories, err = ex.Extract([]transcript.Turn{turn500}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1, "length exactly 500 must be included")

	exactly501 := strings.Repeat("x", 501)
	turn501 := transcript.Turn{UserMessage: transcript.Message{Role: "user", Text: exactly501}}
	memories, err = ex.Extract([]transcript.Turn{turn501}, "proj", "sess")
	require.NoError(t, err)
	assert.Empty(t, memories, "length 501 must be excluded")
}

func TestExtractPopulatesKeywordsAndScore(t *testing.T) {
	ex := newExtractor()
	turn := transcript.Turn{
		UserMessage: transcript.Message{Role: "user", Text: strings.Repeat("a distinctive keyword phrase ", 3)},
	}
	memories, err := ex.Extract([]transcript.Turn{turn}, "proj", "sess")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.NotEmpty(t, memories[0].Keywords)
	assert.Greater(t, memories[0].Score, 0.0)
	assert.Equal(t, "proj", memories[0].Project)
	assert.Equal(t, "sess", memories[0].SessionID)
}
