package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// CompatProvider talks to any OpenAI compatible chat completions API:
// xAI, OpenRouter (the gateway) and OpenAI itself.
type CompatProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Headers map[string]string
	Client  *http.Client
}

type compatFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type compatToolCall struct {
	Index    *int           `json:"index,omitempty"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function compatFunction `json:"function"`
}

type compatMsg struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []compatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type compatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type compatChatReq struct {
	Model    string       `json:"model"`
	Messages []compatMsg  `json:"messages"`
	Tools    []compatTool `json:"tools,omitempty"`
	Stream   bool         `json:"stream"`
}

type compatError struct {
	Message string `json:"message"`
}

type compatChatResp struct {
	Choices []struct {
		Message compatMsg `json:"message"`
	} `json:"choices"`
	Error *compatError `json:"error,omitempty"`
}

type compatStreamResp struct {
	Choices []struct {
		Delta struct {
			Content          string           `json:"content"`
			Reasoning        string           `json:"reasoning"`
			ReasoningContent string           `json:"reasoning_content"`
			ToolCalls        []compatToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *compatError `json:"error,omitempty"`
}

func NewCompatProvider(name, baseURL, apiKey, model string) *CompatProvider {
	return &CompatProvider{
		Name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func toCompatMessages(messages []Message) []compatMsg {
	out := make([]compatMsg, 0, len(messages))
	for _, m := range messages {
		cm := compatMsg{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		for _, tc := range m.ToolCalls {
			args := string(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			cm.ToolCalls = append(cm.ToolCalls, compatToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: compatFunction{Name: tc.Name, Arguments: args},
			})
		}
		out = append(out, cm)
	}
	return out
}

func toCompatTools(defs []ToolDef) []compatTool {
	out := make([]compatTool, 0, len(defs))
	for _, d := range defs {
		var t compatTool
		t.Type = "function"
		t.Function.Name = d.Name
		t.Function.Description = d.Description
		t.Function.Parameters = d.JSONSchema()
		out = append(out, t)
	}
	return out
}

func (p *CompatProvider) check() (string, error) {
	if p.Client == nil {
		return "", fmt.Errorf("%s: http client is nil", p.Name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", fmt.Errorf("%s: api key is required", p.Name)
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return "", fmt.Errorf("%s: model is required", p.Name)
	}
	return model, nil
}

func (p *CompatProvider) do(ctx context.Context, client *http.Client, body compatChatReq) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	for k, v := range p.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: %s", p.Name, msg)
	}
	return resp, nil
}

func (p *CompatProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	model, err := p.check()
	if err != nil {
		return "", err
	}

	resp, err := p.do(ctx, p.Client, compatChatReq{Model: model, Messages: toCompatMessages(messages)})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded compatChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", p.Name)
	}
	return decoded.Choices[0].Message.Content, nil
}

// StreamChat streams content, reasoning and tool calls via SSE. Tool call
// fragments are assembled by index and emitted when the choice finishes.
func (p *CompatProvider) StreamChat(ctx context.Context, r Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		model, err := p.check()
		if err != nil {
			errs <- err
			return
		}

		body := compatChatReq{
			Model:    model,
			Stream:   true,
			Messages: toCompatMessages(withSystem(r.System, r.Messages)),
		}
		if len(r.Tools) > 0 {
			body.Tools = toCompatTools(r.Tools)
		}

		resp, err := p.do(ctx, streamClient(p.Client), body)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		pending := map[int]*ToolCall{}
		flush := func() bool {
			idx := make([]int, 0, len(pending))
			for i := range pending {
				idx = append(idx, i)
			}
			sort.Ints(idx)
			for _, i := range idx {
				tc := pending[i]
				if len(tc.Arguments) == 0 {
					tc.Arguments = json.RawMessage("{}")
				}
				if !send(ctx, events, toolEvent(*tc)) {
					return false
				}
			}
			pending = map[int]*ToolCall{}
			return true
		}

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				flush()
				return
			}
			var decoded compatStreamResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				errs <- err
				return
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- errors.New(decoded.Error.Message)
				return
			}
			if len(decoded.Choices) == 0 {
				continue
			}
			choice := decoded.Choices[0]
			if r := choice.Delta.Reasoning + choice.Delta.ReasoningContent; r != "" {
				if !send(ctx, events, reasoningEvent(r)) {
					return
				}
			}
			if choice.Delta.Content != "" {
				if !send(ctx, events, textEvent(choice.Delta.Content)) {
					return
				}
			}
			for n, tc := range choice.Delta.ToolCalls {
				i := n
				if tc.Index != nil {
					i = *tc.Index
				}
				cur, ok := pending[i]
				if !ok {
					cur = &ToolCall{}
					pending[i] = cur
				}
				if tc.ID != "" {
					cur.ID = tc.ID
				}
				if tc.Function.Name != "" {
					cur.Name = tc.Function.Name
				}
				cur.Arguments = append(cur.Arguments, tc.Function.Arguments...)
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				if !flush() {
					return
				}
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
			return
		}
		flush()
	}()

	return events, errs
}
