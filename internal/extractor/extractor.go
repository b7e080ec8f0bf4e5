// Package extractor implements the rule-based turn-to-memory classifier.
// It is built behind the Extractor interface so an alternative
// (e.g. LLM-driven) implementation can be substituted without touching
// orchestration.
package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/scoring"
	"github.com/Elizarfish/infinite-context/internal/store"
	"github.com/Elizarfish/infinite-context/internal/transcript"
)

// Extractor turns a sequence of turns into typed memory records.
type Extractor interface {
	Extract(turns []transcript.Turn, project, sessionID string) ([]store.Memory, error)
}

// RuleBased is the default, spec-mandated extractor.
type RuleBased struct {
	Config *config.Config
}

// New returns the default rule-based extractor.
func New(cfg *config.Config) *RuleBased {
	return &RuleBased{Config: cfg}
}

const maxContentBytes = 500

// Extract implements six rules, in order, per turn.
func (r *RuleBased) Extract(turns []transcript.Turn, project, sessionID string) ([]store.Memory, error) {
	var out []store.Memory

	for _, t := range turns {
		out = append(out, r.extractFileChanges(t, project, sessionID)...)
		out = append(out, r.extractNotableCommands(t, project, sessionID)...)
		out = append(out, r.extractErrors(t, project, sessionID)...)
		for _, am := range t.AssistantMessages {
			out = append(out, r.extractDecisions(am, project, sessionID)...)
			out = append(out, r.extractArchitecture(am, project, sessionID)...)
		}
		out = append(out, r.extractUserRequest(t, project, sessionID)...)
	}

	return out, nil
}

// toolInput is the subset of a tool_use's Input payload this extractor reads.
type toolInput struct {
	FilePath  string `json:"file_path"`
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
	Command   string `json:"command"`
}

func parseInput(raw json.RawMessage) toolInput {
	var in toolInput
	_ = json.Unmarshal(raw, &in)
	return in
}

func (in toolInput) filePath() string {
	if in.FilePath != "" {
		return in.FilePath
	}
	return in.Path
}

// extractFileChanges implements rule 1. source_hash covers the
// prefix + path (not the content), which is a deliberate dedup choice: a
// later Write/Edit of the same path will not re-insert once a row with that
// hash already exists.
func (r *RuleBased) extractFileChanges(t transcript.Turn, project, sessionID string) []store.Memory {
	var out []store.Memory
	for _, call := range t.AllToolCalls {
		switch call.Name {
		case "Write":
			in := parseInput(call.Input)
			path := in.filePath()
			if path == "" {
				continue
			}
			content := fmt.Sprintf("Created/wrote file: %s", path)
			hash := hashPrefix("file_change:write:" + path)
			out = append(out, r.newMemory(project, sessionID, store.CategoryFileChange, content, nil, &hash))
		case "Edit", "MultiEdit":
			in := parseInput(call.Input)
			path := in.filePath()
			if path == "" {
				continue
			}
			var content string
			if in.OldString != "" {
				content = fmt.Sprintf("Edited file: %s\n  Changed: %q → %q", path, truncate(in.OldString, 60), truncate(in.NewString, 60))
			} else {
				content = fmt.Sprintf("Edited file: %s", path)
			}
			hash := hashPrefix("file_change:edit:" + path)
			out = append(out, r.newMemory(project, sessionID, store.CategoryFileChange, content, nil, &hash))
		}
	}
	return out
}

// extractNotableCommands implements rule 2.
func (r *RuleBased) extractNotableCommands(t transcript.Turn, project, sessionID string) []store.Memory {
	var out []store.Memory
	for _, call := range t.AllToolCalls {
		if call.Name != "Bash" {
			continue
		}
		in := parseInput(call.Input)
		if in.Command == "" || !notableCommand.MatchString(in.Command) {
			continue
		}
		content := fmt.Sprintf("Ran command: %s", truncate(in.Command, 200))
		out = append(out, r.newMemory(project, sessionID, store.CategoryNote, content, nil, nil))
	}
	return out
}

// extractErrors implements rule 3.
func (r *RuleBased) extractErrors(t transcript.Turn, project, sessionID string) []store.Memory {
	var out []store.Memory
	for _, res := range t.AllToolResults {
		if !res.IsError || res.Content == "" {
			continue
		}
		content := fmt.Sprintf("Error encountered: %s", truncate(res.Content, 300))
		out = append(out, r.newMemory(project, sessionID, store.CategoryError, content, nil, nil))
	}
	return out
}

// extractDecisions implements rule 4: at most 3 decisions per
// assistant message.
func (r *RuleBased) extractDecisions(am transcript.Message, project, sessionID string) []store.Memory {
	var out []store.Memory
	for _, line := range strings.Split(am.Text, "\n") {
		if len(out) >= 3 {
			break
		}
		trimmed := strings.TrimSpace(line)
		n := len(trimmed)
		if n < 20 || n > 300 {
			continue
		}
		if !decisionPhrasing.MatchString(trimmed) || decisionSuppress.MatchString(trimmed) {
			continue
		}
		out = append(out, r.newMemory(project, sessionID, store.CategoryDecision, trimmed, nil, nil))
	}
	return out
}

// extractArchitecture implements rule 5: at most 2 per thinking
// block.
func (r *RuleBased) extractArchitecture(am transcript.Message, project, sessionID string) []store.Memory {
	var out []store.Memory
	for _, line := range strings.Split(am.Thinking, "\n") {
		if len(out) >= 2 {
			break
		}
		trimmed := strings.TrimSpace(line)
		n := len(trimmed)
		if n < 30 || n > 400 {
			continue
		}
		if !architectureVocabulary.MatchString(trimmed) {
			continue
		}
		out = append(out, r.newMemory(project, sessionID, store.CategoryArchitecture, trimmed, nil, nil))
	}
	return out
}

// extractUserRequest implements rule 6: strict bounds (20, 500].
func (r *RuleBased) extractUserRequest(t transcript.Turn, project, sessionID string) []store.Memory {
	text := t.UserMessage.Text
	n := len(text)
	if n <= 20 || n > 500 {
		return nil
	}
	content := fmt.Sprintf("User request: %s", text)
	override := 0.35
	return []store.Memory{r.newMemory(project, sessionID, store.CategoryNote, content, &override, nil)}
}

// newMemory builds a memory row with scoring, keywords, and a dedup hash
// already filled in. overrideScore, if non-nil, replaces scoreMemory's
// result (used by rule 6). overrideHash, if non-nil, replaces the default
// sha256(content)[:16] hash (used by rule 1).
func (r *RuleBased) newMemory(project, sessionID, category, content string, overrideScore *float64, overrideHash *string) store.Memory {
	content = truncateBytes(content, maxContentBytes)

	score := scoring.ScoreMemory(r.Config, category, content)
	if overrideScore != nil {
		score = *overrideScore
	}

	hash := hashPrefix(content)
	if overrideHash != nil {
		hash = *overrideHash
	}

	return store.Memory{
		Project:   project,
		SessionID: sessionID,
		Category:  category,
		Content:   content,
		Keywords:  scoring.ExtractKeywords(r.Config, content),
		Score:     score,
		SourceHash: &hash,
	}
}

func hashPrefix(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
