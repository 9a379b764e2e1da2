package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// GeminiProvider uses a shared genai client; the client is owned by the
// registry and closed with it.
type GeminiProvider struct {
	client *genai.Client
	Model  string
}

func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-pro"
	}
	return &GeminiProvider{client: client, Model: model}
}

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

func toGeminiTool(defs []ToolDef) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		for _, p := range d.Params {
			t, ok := geminiTypes[p.Type]
			if !ok {
				t = genai.TypeString
			}
			schema.Properties[p.Name] = &genai.Schema{Type: t, Description: p.Description, Enum: p.Enum}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

// toGeminiContents maps the conversation onto user/model turns. System
// messages are returned separately; tool results become function responses
// sent as the user.
func toGeminiContents(messages []Message) (system string, contents []*genai.Content) {
	var sys []string
	appendPart := func(role string, part genai.Part) {
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, part)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{part}})
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, m.Content)
		case RoleAssistant:
			if m.Content != "" {
				appendPart("model", genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				_ = json.Unmarshal(tc.Arguments, &args)
				appendPart("model", genai.FunctionCall{Name: tc.Name, Args: args})
			}
		case RoleTool:
			var out any
			if err := json.Unmarshal([]byte(m.Content), &out); err != nil {
				out = m.Content
			}
			appendPart("user", genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"output": out},
			})
		default:
			appendPart("user", genai.Text(m.Content))
		}
	}
	return strings.Join(sys, "\n\n"), contents
}

func (p *GeminiProvider) session(system string, tools []ToolDef, contents []*genai.Content) (*genai.ChatSession, []genai.Part, error) {
	if p.client == nil {
		return nil, nil, errors.New("gemini: client is nil")
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini: no messages")
	}
	model := p.client.GenerativeModel(p.Model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(tools) > 0 {
		model.Tools = []*genai.Tool{toGeminiTool(tools)}
	}
	cs := model.StartChat()
	last := contents[len(contents)-1]
	cs.History = contents[:len(contents)-1]
	return cs, last.Parts, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	system, contents := toGeminiContents(messages)
	cs, parts, err := p.session(system, nil, contents)
	if err != nil {
		return "", err
	}
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String(), nil
}

func (p *GeminiProvider) StreamChat(ctx context.Context, r Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		system, contents := toGeminiContents(r.Messages)
		if r.System != "" {
			system = strings.TrimSpace(r.System + "\n\n" + system)
		}
		cs, parts, err := p.session(system, r.Tools, contents)
		if err != nil {
			errs <- err
			return
		}

		iter := cs.SendMessageStream(ctx, parts...)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				errs <- err
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					if v != "" && !send(ctx, events, textEvent(string(v))) {
						return
					}
				case genai.FunctionCall:
					args, err := json.Marshal(v.Args)
					if err != nil {
						errs <- err
						return
					}
					call := ToolCall{ID: "call_" + uuid.NewString(), Name: v.Name, Arguments: args}
					if !send(ctx, events, toolEvent(call)) {
						return
					}
				}
			}
		}
	}()

	return events, errs
}
