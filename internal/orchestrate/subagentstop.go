package orchestrate

import (
	"encoding/json"
	"fmt"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/store"
)

// SubagentStopInput is the SubagentStop payload.
type SubagentStopInput struct {
	SessionID           string `json:"session_id"`
	Cwd                 string `json:"cwd"`
	AgentID             string `json:"agent_id"`
	AgentType           string `json:"agent_type"`
	AgentTranscriptPath string `json:"agent_transcript_path"`
}

// SubagentStop implements the SubagentStop pipeline: archives the
// agent's private transcript under a composite checkpoint key and tags
// every extracted memory with agent identity metadata. Output is always
// empty.
func SubagentStop(d Deps, raw json.RawMessage) (hookrun.Output, error) {
	var in SubagentStopInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode SubagentStop input: %w", err)
	}
	if in.SessionID == "" || in.AgentTranscriptPath == "" {
		return hookrun.Output{}, nil
	}
	project := in.Cwd
	checkpointKey := in.SessionID + ":" + in.AgentID

	tag := func(m *store.Memory) {
		m.Metadata = tagAgentMetadata(m.Metadata, in.AgentID, in.AgentType)
	}

	if _, _, err := archiveTranscript(d, checkpointKey, in.AgentTranscriptPath, project, in.SessionID, tag); err != nil {
		return hookrun.Output{}, err
	}

	return hookrun.Output{}, nil
}

// tagAgentMetadata merges agentId/agentType into existing (already
// structured) metadata without re-stringifying it, keeping to the
// "serialize exactly once" rule that InsertMemory relies on.
func tagAgentMetadata(existing json.RawMessage, agentID, agentType string) json.RawMessage {
	fields := map[string]interface{}{}
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &fields)
	}
	fields["agentId"] = agentID
	fields["agentType"] = agentType

	encoded, err := json.Marshal(fields)
	if err != nil {
		return existing
	}
	return json.RawMessage(encoded)
}
