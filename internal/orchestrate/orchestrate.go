// Package orchestrate wires the config/store/transcript/extractor/restorer
// layers into the six lifecycle hook pipelines. Each pipeline is a pure
// function of (store, config, input) returning a hookrun.Output, so the
// cmd/hooks binaries stay thin wrappers around hookrun.Run.
package orchestrate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/extractor"
	"github.com/Elizarfish/infinite-context/internal/logging"
	"github.com/Elizarfish/infinite-context/internal/store"
	"github.com/Elizarfish/infinite-context/internal/transcript"
)

// Deps bundles what every pipeline needs. Hook binaries construct one Deps
// value per invocation (opening the store fresh, per "every
// opened store is released on all exit paths").
type Deps struct {
	Store  *store.Store
	Config *config.Config
	Now    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// archiveTranscript parses path from the saved checkpoint (rolling back to
// line 0 if the host rewrote a shorter transcript), groups turns, extracts
// memories, inserts them, advances the checkpoint, and bumps session
// counters. It is shared by PreCompact, SubagentStop, and SessionEnd.
// checkpointKey lets SubagentStop use "{session_id}:{agent_id}"
// while the others use the bare session id. tagMetadata, if non-nil, is
// applied to every extracted memory before insert (SubagentStop's agent
// tagging). It returns every memory this pass extracted (regardless of
// whether insert ultimately deduped it away) so callers can build summaries
// from this pass alone, plus the count actually inserted.
func archiveTranscript(d Deps, checkpointKey, transcriptPath, project, sessionID string, tagMetadata func(*store.Memory)) (extracted []store.Memory, inserted int, err error) {
	log := logging.Get(logging.CategoryOrchestrate)

	cp, err := d.Store.GetCheckpoint(checkpointKey, transcriptPath)
	if err != nil {
		return nil, 0, fmt.Errorf("get checkpoint: %w", err)
	}
	startLine := 0
	if cp != nil {
		startLine = cp.LastLineNumber
	}

	messages, lastLine, err := transcript.Parse(transcriptPath, startLine)
	if err != nil {
		return nil, 0, fmt.Errorf("parse transcript: %w", err)
	}

	if len(messages) == 0 && cp != nil && lastLine < cp.LastLineNumber {
		log.Warn("rollback detected for %s (lastLine=%d < checkpoint=%d), re-parsing from 0", transcriptPath, lastLine, cp.LastLineNumber)
		messages, lastLine, err = transcript.Parse(transcriptPath, 0)
		if err != nil {
			return nil, 0, fmt.Errorf("re-parse transcript from 0: %w", err)
		}
	}

	turns := transcript.GroupTurns(messages)
	memories, err := extractor.New(d.Config).Extract(turns, project, sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("extract memories: %w", err)
	}
	if tagMetadata != nil {
		for i := range memories {
			tagMetadata(&memories[i])
		}
	}

	inserted, err = d.Store.InsertMany(memories)
	if err != nil {
		return memories, 0, fmt.Errorf("insert memories: %w", err)
	}

	if err := d.Store.SaveCheckpoint(checkpointKey, transcriptPath, lastLine); err != nil {
		return memories, inserted, fmt.Errorf("save checkpoint: %w", err)
	}
	if inserted > 0 {
		if err := d.Store.IncrSessionMemories(sessionID, inserted); err != nil {
			return memories, inserted, fmt.Errorf("incr session memories: %w", err)
		}
	}

	return memories, inserted, nil
}

// filePathCapture extracts the PATH out of an extractFileChanges content
// string ("Created/wrote file: PATH" or "Edited file: PATH\n..."). The
// delimiter is the literal marker text, not the first colon, since a
// Windows-style path contains one too.
var filePathCapture = regexp.MustCompile(`^(?:Created/wrote file|Edited file): (.+)$`)

func extractFilePath(content string) (string, bool) {
	lines := splitFirstLine(content)
	m := filePathCapture.FindStringSubmatch(lines)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func splitFirstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func budget(n int) *int {
	return &n
}
