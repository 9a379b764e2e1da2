package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkProvider wraps a Volcengine Ark chat model through eino. A new
// ChatModel is built per provider, so binding tools does not leak between
// turns.
type ArkProvider struct {
	cm model.ChatModel
}

type ArkConfig struct {
	BaseURL string
	Region  string
	APIKey  string
	Model   string
}

func NewArkProvider(ctx context.Context, cfg ArkConfig) (*ArkProvider, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, errors.New("ark: ARK_API_KEY and ARK_MODEL are required")
	}
	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	return &ArkProvider{cm: cm}, nil
}

var einoTypes = map[string]schema.DataType{
	"string":  schema.String,
	"integer": schema.Integer,
	"number":  schema.Number,
	"boolean": schema.Boolean,
	"array":   schema.Array,
	"object":  schema.Object,
}

func toEinoTools(defs []ToolDef) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		params := make(map[string]*schema.ParameterInfo, len(d.Params))
		for _, p := range d.Params {
			t, ok := einoTypes[p.Type]
			if !ok {
				t = schema.String
			}
			params[p.Name] = &schema.ParameterInfo{
				Type:     t,
				Desc:     p.Description,
				Enum:     p.Enum,
				Required: p.Required,
			}
		}
		out = append(out, &schema.ToolInfo{
			Name:        d.Name,
			Desc:        d.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return out
}

func toEinoMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			var calls []schema.ToolCall
			for _, tc := range m.ToolCalls {
				calls = append(calls, schema.ToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: schema.FunctionCall{Name: tc.Name, Arguments: string(tc.Arguments)},
				})
			}
			out = append(out, schema.AssistantMessage(m.Content, calls))
		case RoleTool:
			out = append(out, &schema.Message{
				Role:       schema.Tool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func (p *ArkProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	msg, err := p.cm.Generate(ctx, toEinoMessages(messages))
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// StreamChat forwards content deltas as they arrive. Tool calls arrive in
// fragments, so they are taken from the concatenated message at the end.
func (p *ArkProvider) StreamChat(ctx context.Context, r Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		if len(r.Tools) > 0 {
			if err := p.cm.BindTools(toEinoTools(r.Tools)); err != nil {
				errs <- err
				return
			}
		}

		stream, err := p.cm.Stream(ctx, toEinoMessages(withSystem(r.System, r.Messages)))
		if err != nil {
			errs <- err
			return
		}
		defer stream.Close()

		var chunks []*schema.Message
		for {
			chunk, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if recvErr != nil {
				errs <- recvErr
				return
			}
			chunks = append(chunks, chunk)
			if chunk.Content != "" && !send(ctx, events, textEvent(chunk.Content)) {
				return
			}
		}
		if len(chunks) == 0 {
			return
		}

		merged, err := schema.ConcatMessages(chunks)
		if err != nil {
			errs <- err
			return
		}
		for _, tc := range merged.ToolCalls {
			args := json.RawMessage(tc.Function.Arguments)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			if !send(ctx, events, toolEvent(ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})) {
				return
			}
		}
	}()

	return events, errs
}
