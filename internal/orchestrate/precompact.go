package orchestrate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/store"
)

// PreCompactInput is the PreCompact payload.
type PreCompactInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	Trigger        string `json:"trigger"`
}

const maxSummaryItems = 5

// PreCompact implements the PreCompact pipeline: archive the
// transcript since the last checkpoint, enforce the project cap, and emit a
// plain-text compaction summary.
func PreCompact(d Deps, raw json.RawMessage) (hookrun.Output, error) {
	var in PreCompactInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode PreCompact input: %w", err)
	}
	if in.SessionID == "" || in.TranscriptPath == "" {
		return hookrun.Output{}, nil
	}
	project := in.Cwd

	if err := d.Store.UpsertSession(in.SessionID, project); err != nil {
		return hookrun.Output{}, fmt.Errorf("upsert session: %w", err)
	}

	extracted, inserted, err := archiveTranscript(d, in.SessionID, in.TranscriptPath, project, in.SessionID, nil)
	if err != nil {
		return hookrun.Output{}, err
	}

	if err := d.Store.IncrSessionCompactions(in.SessionID); err != nil {
		return hookrun.Output{}, fmt.Errorf("incr session compactions: %w", err)
	}

	if _, err := d.Store.EnforceProjectLimit(project, d.Config.MaxMemoriesPerProject); err != nil {
		return hookrun.Output{}, fmt.Errorf("enforce project limit: %w", err)
	}

	summary := compactionSummary(project, inserted, extracted)
	return hookrun.Output{PlainText: summary}, nil
}

// compactionSummary builds the plain-text output, headed with
// "CONTEXT ARCHIVE (from infinite-context):", listing top decisions, files
// changed, and top errors from this archival pass.
func compactionSummary(project string, archivedCount int, memories []store.Memory) string {
	var decisions, errs []string
	files := map[string]bool{}
	var orderedFiles []string

	for _, m := range memories {
		switch m.Category {
		case store.CategoryDecision:
			if len(decisions) < maxSummaryItems {
				decisions = append(decisions, m.Content)
			}
		case store.CategoryError:
			if len(errs) < maxSummaryItems {
				errs = append(errs, m.Content)
			}
		case store.CategoryFileChange:
			if path, ok := extractFilePath(m.Content); ok && !files[path] {
				files[path] = true
				orderedFiles = append(orderedFiles, path)
			}
		}
	}
	if len(orderedFiles) > maxSummaryItems {
		orderedFiles = orderedFiles[:maxSummaryItems]
	}

	var b strings.Builder
	b.WriteString("CONTEXT ARCHIVE (from infinite-context):\n")
	fmt.Fprintf(&b, "project: %s\n", project)
	fmt.Fprintf(&b, "archived: %d\n", archivedCount)

	if len(decisions) > 0 {
		b.WriteString("top decisions:\n")
		for _, d := range decisions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if len(orderedFiles) > 0 {
		b.WriteString("files changed:\n")
		for _, f := range orderedFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(errs) > 0 {
		b.WriteString("top errors:\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}
