// Package transcript implements the incremental JSONL parser: role
// derivation, content-block walking, and (in turns.go) turn grouping with
// synthetic tool-result folding.
package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/Elizarfish/infinite-context/internal/logging"
)

// envelope is the outer transcript entry shape. Only the fields the parser
// cares about are modeled; everything else is ignored.
type envelope struct {
	Type    string           `json:"type"`
	Message *messageEnvelope `json:"message"`
	Content json.RawMessage  `json:"content"`
}

type messageEnvelope struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// block is one element of a content-blocks array.
type block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// Parse reads path starting after startLine (lines with number <= startLine
// are treated as already processed) and returns the derived messages plus
// lastLine, the greatest non-blank line number reached. Blank/whitespace-only
// lines are skipped and do not advance the line counter; malformed JSON
// lines are skipped silently but do advance it.
func Parse(path string, startLine int) ([]Message, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, startLine, err
	}
	defer f.Close()

	var messages []Message
	lastLine := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lastLine++
		if lastLine <= startLine {
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			logging.Get(logging.CategoryTranscript).Debug("skipping malformed line %d: %v", lastLine, err)
			continue
		}

		msg, ok := deriveMessage(env)
		if !ok {
			continue
		}
		msg.Line = lastLine
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, lastLine, err
	}

	return messages, lastLine, nil
}

// deriveMessage derives a message's role (message.role wins over the
// top-level type field, with "A" aliasing to "assistant") and folds its
// content blocks.
func deriveMessage(env envelope) (Message, bool) {
	var role string
	var content json.RawMessage

	switch {
	case env.Message != nil && (env.Message.Role == "user" || env.Message.Role == "assistant"):
		role = env.Message.Role
		content = env.Message.Content
	case env.Type == "user" || env.Type == "assistant":
		role = env.Type
		content = env.Content
	case env.Type == "A":
		role = "assistant"
		content = env.Content
	default:
		return Message{}, false
	}

	msg := Message{Role: role}
	walkContent(content, &msg)
	return msg, true
}

// walkContent folds a content value (string or array of blocks) into msg:
// text/thinking blocks join by kind, tool_use becomes a ToolCall, and
// tool_result becomes a ToolResult.
func walkContent(content json.RawMessage, msg *Message) {
	if len(content) == 0 {
		return
	}

	// String content at top level is taken verbatim as text.
	var asString string
	if err := json.Unmarshal(content, &asString); err == nil {
		msg.Text = asString
		return
	}

	var blocks []block
	if err := json.Unmarshal(content, &blocks); err != nil {
		return
	}

	for _, b := range blocks {
		switch b.Type {
		case "text":
			if msg.Text != "" {
				msg.Text += "\n"
			}
			msg.Text += b.Text
		case "thinking":
			if msg.Thinking != "" {
				msg.Thinking += "\n"
			}
			msg.Thinking += b.Thinking
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{Name: b.Name, ID: b.ID, Input: b.Input})
		case "tool_result":
			msg.ToolResults = append(msg.ToolResults, ToolResult{
				ToolUseID: b.ToolUseID,
				Content:   foldToolResultContent(b.Content),
				IsError:   b.IsError,
			})
		}
	}
}

// foldToolResultContent implements tool_result content rule: a
// string is used verbatim; an array of text blocks is joined with newlines;
// anything else folds to empty.
func foldToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []block
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}
