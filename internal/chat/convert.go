package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

// toModelMessages flattens UI messages into provider messages. Assistant
// messages are split at step boundaries; every finished tool part becomes an
// assistant tool call followed by a tool message carrying its result. Tool
// parts that never produced output are dropped.
func toModelMessages(msgs []UIMessage) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case ai.RoleUser:
			out = append(out, ai.Message{Role: ai.RoleUser, Content: userContent(m.Parts)})
		case ai.RoleAssistant:
			out = append(out, assistantMessages(m.Parts)...)
		}
	}
	return out
}

func userContent(parts []uistream.Part) string {
	var b strings.Builder
	for _, p := range parts {
		switch p.Type {
		case "text":
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(p.Text)
		case "file":
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "[attachment %s (%s): %s]", p.Name, p.MediaType, p.URL)
		}
	}
	return b.String()
}

func assistantMessages(parts []uistream.Part) []ai.Message {
	var (
		out     []ai.Message
		text    strings.Builder
		calls   []ai.ToolCall
		results []ai.Message
	)
	flush := func() {
		if text.Len() == 0 && len(calls) == 0 {
			return
		}
		out = append(out, ai.Message{Role: ai.RoleAssistant, Content: text.String(), ToolCalls: calls})
		out = append(out, results...)
		text.Reset()
		calls, results = nil, nil
	}

	for _, p := range parts {
		switch {
		case p.Type == uistream.PartStepStart:
			flush()
		case p.Type == "text":
			// text after a tool call belongs to the next step
			if len(calls) > 0 {
				flush()
			}
			text.WriteString(p.Text)
		case p.ToolName() != "":
			result, ok := toolResult(p)
			if !ok {
				continue
			}
			calls = append(calls, ai.ToolCall{ID: p.ToolCallID, Name: p.ToolName(), Arguments: p.Input})
			results = append(results, result)
		}
	}
	flush()
	return out
}

func toolResult(p uistream.Part) (ai.Message, bool) {
	msg := ai.Message{Role: ai.RoleTool, ToolCallID: p.ToolCallID, Name: p.ToolName()}
	switch p.State {
	case uistream.StateOutputAvailable:
		msg.Content = string(p.Output)
	case uistream.StateOutputError:
		b, _ := json.Marshal(map[string]any{"success": false, "error": p.ErrorText})
		msg.Content = string(b)
	default:
		return ai.Message{}, false
	}
	return msg, true
}
