package orchestrate

import (
	"encoding/json"
	"fmt"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
)

// SessionEndInput is the SessionEnd payload.
type SessionEndInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
}

// SessionEnd implements the SessionEnd pipeline: a final incremental
// archive (if a transcript is given), decay+prune, project cap enforcement,
// and marking the session ended. Output is always empty.
func SessionEnd(d Deps, raw json.RawMessage) (hookrun.Output, error) {
	var in SessionEndInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode SessionEnd input: %w", err)
	}
	if in.SessionID == "" {
		return hookrun.Output{}, nil
	}
	project := in.Cwd

	if in.TranscriptPath != "" {
		if _, _, err := archiveTranscript(d, in.SessionID, in.TranscriptPath, project, in.SessionID, nil); err != nil {
			return hookrun.Output{}, err
		}
	}

	if _, err := d.Store.DecayAndPrune(d.Config.DecayFactor, d.Config.ScoreFloor, d.Config.DecayIntervalDays, d.Config.PruneThreshold); err != nil {
		return hookrun.Output{}, fmt.Errorf("decay and prune: %w", err)
	}

	if project != "" {
		if _, err := d.Store.EnforceProjectLimit(project, d.Config.MaxMemoriesPerProject); err != nil {
			return hookrun.Output{}, fmt.Errorf("enforce project limit: %w", err)
		}
	}

	if err := d.Store.EndSession(in.SessionID, d.now()); err != nil {
		return hookrun.Output{}, fmt.Errorf("end session: %w", err)
	}

	return hookrun.Output{}, nil
}
