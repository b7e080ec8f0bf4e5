package orchestrate

import (
	"encoding/json"
	"fmt"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/restorer"
)

// SubagentStartInput is the SubagentStart payload.
type SubagentStartInput struct {
	Cwd       string `json:"cwd"`
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
}

// subagentBudgetFactor scales down both the restore budget and the memory
// count for subagents).
const subagentBudgetFactor = 0.6

// SubagentStart implements the SubagentStart pipeline: identical to
// SessionStart but with a reduced budget and memory count, and no session
// upsert (a subagent is not itself a session).
func SubagentStart(d Deps, raw json.RawMessage) (hookrun.Output, error) {
	var in SubagentStartInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode SubagentStart input: %w", err)
	}
	project := in.Cwd

	reducedCount := int(float64(d.Config.MaxMemoriesPerRestore) * subagentBudgetFactor)
	if reducedCount < 1 {
		reducedCount = 1
	}
	reducedBudget := int(float64(d.Config.MaxRestoreTokens) * subagentBudgetFactor)

	memories, err := d.Store.GetTopMemories(project, reducedCount)
	if err != nil {
		return hookrun.Output{}, fmt.Errorf("get top memories: %w", err)
	}

	result := restorer.RestoreContext(d.Config, memories, budget(reducedBudget), d.now())
	if len(result.IDs) > 0 {
		if err := d.Store.TouchMemories(result.IDs); err != nil {
			return hookrun.Output{}, fmt.Errorf("touch memories: %w", err)
		}
	}

	return hookrun.Output{EventName: "SubagentStart", AdditionalContext: result.Text}, nil
}
