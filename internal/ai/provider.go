package ai

import (
	"context"
	"encoding/json"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is the provider neutral conversation entry. Assistant messages may
// carry tool calls; tool messages answer exactly one call by ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Param is one top level tool argument.
type Param struct {
	Name        string
	Type        string // string | integer | number | boolean
	Description string
	Required    bool
	Enum        []string
}

// ToolDef describes a tool offered to the model.
type ToolDef struct {
	Name        string
	Description string
	Params      []Param
}

// JSONSchema renders the params as an object schema for OpenAI style APIs.
func (d ToolDef) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDef
}

// Provider does a single non streaming completion. Used for titles and
// document generation.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// withSystem prepends a system message when system is not empty.
func withSystem(system string, messages []Message) []Message {
	if system == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: system})
	return append(out, messages...)
}
