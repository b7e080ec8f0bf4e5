//go:build sqlite_fts5

package orchestrate_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/orchestrate"
	"github.com/Elizarfish/infinite-context/internal/store"
)

func newDeps(t *testing.T) orchestrate.Deps {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return orchestrate.Deps{Store: st, Config: config.DefaultConfig()}
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func userTurn(text string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{"role": "user", "content": text},
	})
	return string(raw)
}

func assistantTurn(text string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{"role": "assistant", "content": text},
	})
	return string(raw)
}

// tenTurnTranscript builds 10 lines (5 user/assistant pairs), each user
// request long enough (21-500 chars) to be extracted by rule 6.
func tenTurnTranscript() []string {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines,
			userTurn("please implement a fairly detailed feature number "+string(rune('A'+i))+" with enough length to pass the extractor bounds"),
			assistantTurn("Done."),
		)
	}
	return lines
}

func TestPreCompactThenSessionEndDoesNotDuplicateOnRollback(t *testing.T) {
	d := newDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")

	lines := tenTurnTranscript()
	writeLines(t, path, lines)

	preCompactInput, _ := json.Marshal(map[string]string{
		"session_id":      "sess-1",
		"transcript_path": path,
		"cwd":             "proj",
		"trigger":         "auto",
	})
	_, err := orchestrate.PreCompact(d, preCompactInput)
	require.NoError(t, err)

	cp, err := d.Store.GetCheckpoint("sess-1", path)
	require.NoError(t, err)
	require.NotNil(t, cp)
	require.Equal(t, 10, cp.LastLineNumber)

	stats, err := d.Store.GetStats("proj")
	require.NoError(t, err)
	firstPassTotal := stats.Total
	require.Greater(t, firstPassTotal, int64(0))

	// The host rewrites the transcript shorter than the checkpoint: truncate to the first 4 lines.
	writeLines(t, path, lines[:4])

	sessionEndInput, _ := json.Marshal(map[string]string{
		"session_id":      "sess-1",
		"transcript_path": path,
		"cwd":             "proj",
	})
	_, err = orchestrate.SessionEnd(d, sessionEndInput)
	require.NoError(t, err)

	cpAfter, err := d.Store.GetCheckpoint("sess-1", path)
	require.NoError(t, err)
	require.NotNil(t, cpAfter)
	require.Equal(t, 4, cpAfter.LastLineNumber, "rollback must re-parse from 0 and the checkpoint must reflect the shorter transcript")

	statsAfter, err := d.Store.GetStats("proj")
	require.NoError(t, err)
	require.Equal(t, firstPassTotal, statsAfter.Total, "re-parsing from 0 after a rollback must not duplicate already-inserted memories (dedup by source_hash / no new user-request rows beyond the shrunk transcript)")
}

func TestPreCompactRetryWithSameTranscriptInsertsNothingNew(t *testing.T) {
	d := newDeps(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")
	writeLines(t, path, []string{
		userTurn("please investigate the flaky integration test in the nightly CI run"),
		assistantTurn("I'll add a retry wrapper around the flaky assertion."),
	})

	input, _ := json.Marshal(map[string]string{
		"session_id":      "sess-1",
		"transcript_path": path,
		"cwd":             "proj",
		"trigger":         "auto",
	})

	_, err := orchestrate.PreCompact(d, input)
	require.NoError(t, err)
	stats, err := d.Store.GetStats("proj")
	require.NoError(t, err)
	firstTotal := stats.Total
	require.Greater(t, firstTotal, int64(0))

	// A retried PreCompact call against the identical, unmodified transcript
	// (checkpoint already at EOF) must not re-insert the same memories.
	_, err = orchestrate.PreCompact(d, input)
	require.NoError(t, err)
	statsAfter, err := d.Store.GetStats("proj")
	require.NoError(t, err)
	require.Equal(t, firstTotal, statsAfter.Total)
}

func TestPreCompactNoopOnMissingSessionOrTranscript(t *testing.T) {
	d := newDeps(t)
	input, _ := json.Marshal(map[string]string{"cwd": "proj"})
	out, err := orchestrate.PreCompact(d, input)
	require.NoError(t, err)
	require.Empty(t, out.PlainText)
}

func TestSessionEndMarksSessionEnded(t *testing.T) {
	d := newDeps(t)
	require.NoError(t, d.Store.UpsertSession("sess-1", "proj"))

	input, _ := json.Marshal(map[string]string{"session_id": "sess-1", "cwd": "proj"})
	_, err := orchestrate.SessionEnd(d, input)
	require.NoError(t, err)

	sessions, err := d.Store.AllSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].EndedAt)
}
