package uistream

import (
	"encoding/json"
	"strings"
)

const (
	StateInputAvailable  = "input-available"
	StateOutputAvailable = "output-available"
	StateOutputError     = "output-error"
)

// PartStepStart separates the steps of a multi-step assistant message.
const PartStepStart = "step-start"

// Part is one element of a persisted message.
type Part struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	MediaType  string          `json:"mediaType,omitempty"`
	URL        string          `json:"url,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func TextPart(text string) Part { return Part{Type: "text", Text: text} }

// ToolName returns the tool of a "tool-<name>" part, or "".
func (p Part) ToolName() string {
	if strings.HasPrefix(p.Type, toolPartPrefix) {
		return strings.TrimPrefix(p.Type, toolPartPrefix)
	}
	return ""
}
