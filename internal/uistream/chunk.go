// Package uistream implements the UI message stream: the chunk vocabulary the
// web client understands, SSE framing, and helpers to fan chunks out and fold
// them back into message parts.
package uistream

import "encoding/json"

const (
	TypeStart           = "start"
	TypeStartStep       = "start-step"
	TypeTextStart       = "text-start"
	TypeTextDelta       = "text-delta"
	TypeTextEnd         = "text-end"
	TypeReasoningStart  = "reasoning-start"
	TypeReasoningDelta  = "reasoning-delta"
	TypeReasoningEnd    = "reasoning-end"
	TypeToolInput       = "tool-input-available"
	TypeToolOutput      = "tool-output-available"
	TypeToolOutputError = "tool-output-error"
	TypeFinishStep      = "finish-step"
	TypeFinish          = "finish"
	TypeError           = "error"
	dataPrefix          = "data-"
	toolPartPrefix      = "tool-"
)

// Chunk is one event of the stream. Only the fields relevant to Type are set.
type Chunk struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	MessageID  string          `json:"messageId,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Transient  bool            `json:"transient,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
}

func Start(messageID string) Chunk { return Chunk{Type: TypeStart, MessageID: messageID} }
func StartStep() Chunk             { return Chunk{Type: TypeStartStep} }
func FinishStep() Chunk            { return Chunk{Type: TypeFinishStep} }
func Finish() Chunk                { return Chunk{Type: TypeFinish} }

func TextStart(id string) Chunk        { return Chunk{Type: TypeTextStart, ID: id} }
func TextDelta(id, delta string) Chunk { return Chunk{Type: TypeTextDelta, ID: id, Delta: delta} }
func TextEnd(id string) Chunk          { return Chunk{Type: TypeTextEnd, ID: id} }
func ReasoningStart(id string) Chunk   { return Chunk{Type: TypeReasoningStart, ID: id} }
func ReasoningDelta(id, delta string) Chunk {
	return Chunk{Type: TypeReasoningDelta, ID: id, Delta: delta}
}
func ReasoningEnd(id string) Chunk { return Chunk{Type: TypeReasoningEnd, ID: id} }

func ToolInput(callID, name string, input json.RawMessage) Chunk {
	return Chunk{Type: TypeToolInput, ToolCallID: callID, ToolName: name, Input: input}
}

func ToolOutput(callID string, output json.RawMessage) Chunk {
	return Chunk{Type: TypeToolOutput, ToolCallID: callID, Output: output}
}

func ToolOutputError(callID, errText string) Chunk {
	return Chunk{Type: TypeToolOutputError, ToolCallID: callID, ErrorText: errText}
}

// Data builds a "data-<name>" chunk. Transient chunks reach the client but are
// not kept in the persisted message.
func Data(name string, v any, transient bool) (Chunk, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Type: dataPrefix + name, Data: b, Transient: transient}, nil
}

func Error(text string) Chunk { return Chunk{Type: TypeError, ErrorText: text} }

// IsData reports whether c is a custom data chunk.
func (c Chunk) IsData() bool {
	return len(c.Type) > len(dataPrefix) && c.Type[:len(dataPrefix)] == dataPrefix
}
