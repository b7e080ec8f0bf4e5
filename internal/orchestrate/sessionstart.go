package orchestrate

import (
	"encoding/json"
	"fmt"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/restorer"
)

// SessionStartInput is the SessionStart payload.
type SessionStartInput struct {
	SessionID string `json:"session_id"`
	Cwd       string `json:"cwd"`
	Source    string `json:"source"`
}

// compactRestoreBudget is the reduced ceiling applied when source == compact.
const compactRestoreBudget = 2000

var recognizedSources = map[string]bool{
	"compact": true, "clear": true, "resume": true, "startup": true,
}

// SessionStart implements the SessionStart pipeline: fetch top
// memories and restore within budget (reduced after a compaction), then
// touch whatever was admitted.
func SessionStart(d Deps, raw json.RawMessage) (hookrun.Output, error) {
	var in SessionStartInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode SessionStart input: %w", err)
	}
	if !recognizedSources[in.Source] {
		return hookrun.Output{}, nil
	}
	project := in.Cwd

	if err := d.Store.UpsertSession(in.SessionID, project); err != nil {
		return hookrun.Output{}, fmt.Errorf("upsert session: %w", err)
	}

	memories, err := d.Store.GetTopMemories(project, d.Config.MaxMemoriesPerRestore)
	if err != nil {
		return hookrun.Output{}, fmt.Errorf("get top memories: %w", err)
	}

	restoreBudget := d.Config.MaxRestoreTokens
	if in.Source == "compact" && restoreBudget > compactRestoreBudget {
		restoreBudget = compactRestoreBudget
	}

	result := restorer.RestoreContext(d.Config, memories, budget(restoreBudget), d.now())
	if len(result.IDs) > 0 {
		if err := d.Store.TouchMemories(result.IDs); err != nil {
			return hookrun.Output{}, fmt.Errorf("touch memories: %w", err)
		}
	}

	return hookrun.Output{EventName: "SessionStart", AdditionalContext: result.Text}, nil
}
