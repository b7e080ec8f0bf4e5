package transcript

// Turn groups a user message with the assistant reply(ies) it elicited,
// plus any tool calls/results folded in along the way.
type Turn struct {
	UserMessage        Message
	AssistantMessages  []Message
	AllToolCalls       []ToolCall
	AllToolResults     []ToolResult
	StartLine, EndLine int
}

// GroupTurns walks messages in order, opening a new turn on every user
// message except a "synthetic" one: empty text with non-empty tool results,
// arriving while a turn is already open, folds into that turn instead of
// opening a new one. Assistant messages before any user
// message are discarded.
func GroupTurns(messages []Message) []Turn {
	var turns []Turn
	var current *Turn

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			isSynthetic := !msg.HasText() && msg.HasToolResults()
			if isSynthetic && current != nil {
				current.AllToolResults = append(current.AllToolResults, msg.ToolResults...)
				if msg.Line > current.EndLine {
					current.EndLine = msg.Line
				}
				continue
			}

			if current != nil {
				turns = append(turns, *current)
			}
			current = &Turn{
				UserMessage: msg,
				StartLine:   msg.Line,
				EndLine:     msg.Line,
			}

		case "assistant":
			if current == nil {
				continue
			}
			current.AssistantMessages = append(current.AssistantMessages, msg)
			current.AllToolCalls = append(current.AllToolCalls, msg.ToolCalls...)
			current.AllToolResults = append(current.AllToolResults, msg.ToolResults...)
			if msg.Line > current.EndLine {
				current.EndLine = msg.Line
			}
		}
	}

	if current != nil {
		turns = append(turns, *current)
	}
	return turns
}
