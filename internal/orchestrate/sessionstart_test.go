//go:build sqlite_fts5

package orchestrate_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizarfish/infinite-context/internal/orchestrate"
	"github.com/Elizarfish/infinite-context/internal/scoring"
	"github.com/Elizarfish/infinite-context/internal/store"
)

func TestSessionStartIgnoresUnrecognizedSource(t *testing.T) {
	d := newDeps(t)
	input, _ := json.Marshal(map[string]string{"session_id": "s1", "cwd": "proj", "source": "bogus"})
	out, err := orchestrate.SessionStart(d, input)
	require.NoError(t, err)
	assert.Empty(t, out.AdditionalContext)
}

func TestSessionStartRestoresTopMemoriesAndTouchesThem(t *testing.T) {
	d := newDeps(t)
	id, err := d.Store.InsertMemory(store.Memory{Project: "proj", SessionID: "s0", Category: store.CategoryDecision, Content: "chose sqlite for storage", Score: 0.8})
	require.NoError(t, err)
	require.NotNil(t, id)

	input, _ := json.Marshal(map[string]string{"session_id": "s1", "cwd": "proj", "source": "startup"})
	out, err := orchestrate.SessionStart(d, input)
	require.NoError(t, err)
	assert.Contains(t, out.AdditionalContext, "chose sqlite for storage")

	m, err := d.Store.GetMemory(*id)
	require.NoError(t, err)
	assert.Equal(t, 1, m.AccessCount, "restored memories must be touched")
}

func TestSessionStartReducesBudgetAfterCompact(t *testing.T) {
	d := newDeps(t)
	d.Config.MaxRestoreTokens = 100000

	// 20 notes of ~460 chars cost ~133 tokens each, well over 2000 in total.
	for i := 0; i < 20; i++ {
		content := fmt.Sprintf("note %02d %s", i, strings.Repeat("x", 450))
		_, err := d.Store.InsertMemory(store.Memory{Project: "proj", SessionID: "s0", Category: store.CategoryNote, Content: content, Score: 0.9})
		require.NoError(t, err)
	}

	input, _ := json.Marshal(map[string]string{"session_id": "s1", "cwd": "proj", "source": "compact"})
	out, err := orchestrate.SessionStart(d, input)
	require.NoError(t, err)
	// Regardless of the huge configured ceiling, a "compact" source caps at
	// the reduced 2000-token budget while still restoring something.
	assert.NotEmpty(t, out.AdditionalContext)
	assert.LessOrEqual(t, scoring.EstimateTokens(out.AdditionalContext), 2000)
}

func TestSubagentStopTagsExtractedMemoriesWithAgentMetadata(t *testing.T) {
	d := newDeps(t)
	dir := t.TempDir()
	path := dir + "/agent-transcript.jsonl"
	writeLines(t, path, []string{
		userTurn("investigate why the build fails on the release branch today"),
		assistantTurn("I'll add a targeted regression test for the release build failure."),
	})

	input, _ := json.Marshal(map[string]string{
		"session_id":            "sess-1",
		"cwd":                   "proj",
		"agent_id":              "agent-42",
		"agent_type":            "general-purpose",
		"agent_transcript_path": path,
	})
	_, err := orchestrate.SubagentStop(d, input)
	require.NoError(t, err)

	memories, err := d.Store.List(store.ListQuery{Project: "proj"})
	require.NoError(t, err)
	require.NotEmpty(t, memories)

	for _, m := range memories {
		require.NotEmpty(t, m.Metadata)
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(m.Metadata, &fields))
		if diff := cmp.Diff("agent-42", fields["agentId"]); diff != "" {
			t.Errorf("agentId mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("general-purpose", fields["agentType"]); diff != "" {
			t.Errorf("agentType mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSubagentStopNoopOnMissingTranscriptPath(t *testing.T) {
	d := newDeps(t)
	input, _ := json.Marshal(map[string]string{"session_id": "sess-1", "cwd": "proj"})
	out, err := orchestrate.SubagentStop(d, input)
	require.NoError(t, err)
	assert.Empty(t, out.AdditionalContext)
}
