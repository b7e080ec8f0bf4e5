package orchestrate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/ratelimit"
	"github.com/Elizarfish/infinite-context/internal/restorer"
	"github.com/Elizarfish/infinite-context/internal/scoring"
)

// UserPromptSubmitInput is the UserPromptSubmit payload.
type UserPromptSubmitInput struct {
	Cwd    string `json:"cwd"`
	Prompt string `json:"prompt"`
}

const (
	minPromptLength      = 10
	assembledTokenCeiling = 600
	truncatedTokenTarget  = 500
)

// systemShapedPrompt matches prompts that are host-internal plumbing rather
// than a human request: slash commands and XML-ish system tags.
var systemShapedPrompt = regexp.MustCompile(`^(/\S|<[a-zA-Z][\w-]*>)`)

// UserPromptSubmit implements the UserPromptSubmit pipeline:
// keyword-extract, rate-limit, search within project, truncate if too long,
// touch, emit. The event carries no session id, so the rate limiter keys
// on the project (cwd) instead, the only stable identity available to
// this hook.
func UserPromptSubmit(d Deps, limiter *ratelimit.Limiter, raw json.RawMessage) (hookrun.Output, error) {
	var in UserPromptSubmitInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookrun.Output{}, fmt.Errorf("decode UserPromptSubmit input: %w", err)
	}

	trimmed := strings.TrimSpace(in.Prompt)
	if len(trimmed) < minPromptLength || systemShapedPrompt.MatchString(trimmed) {
		return hookrun.Output{}, nil
	}

	if limiter != nil && !limiter.Allow(in.Cwd, d.now()) {
		return hookrun.Output{}, nil
	}

	keywords := scoring.ExtractKeywords(d.Config, trimmed)
	if keywords == "" {
		return hookrun.Output{}, nil
	}

	project := in.Cwd
	results, err := d.Store.Search(keywords, project, d.Config.MaxPromptRecallResults)
	if err != nil {
		return hookrun.Output{}, fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		return hookrun.Output{}, nil
	}

	result := restorer.RecallForPrompt(results)
	result.Text = truncateByLine(result.Text, assembledTokenCeiling, truncatedTokenTarget)

	if len(result.IDs) > 0 {
		if err := d.Store.TouchMemories(result.IDs); err != nil {
			return hookrun.Output{}, fmt.Errorf("touch memories: %w", err)
		}
	}

	return hookrun.Output{EventName: "UserPromptSubmit", AdditionalContext: result.Text}, nil
}

// truncateByLine drops trailing lines from text once its estimated token
// count exceeds ceiling, until it fits within target.
func truncateByLine(text string, ceiling, target int) string {
	if scoring.EstimateTokens(text) <= ceiling {
		return text
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && scoring.EstimateTokens(strings.Join(lines, "\n")) > target {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
