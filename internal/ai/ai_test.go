package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/matchday-ai/internal/config"
)

func TestSelect_Precedence(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"nothing configured", config.Config{}, BackendOllama},
		{"xai wins over everything", config.Config{XAIAPIKey: "x", GatewayAPIKey: "g", OpenAIAPIKey: "o"}, BackendXAI},
		{"gateway", config.Config{GatewayAPIKey: "g", OpenAIAPIKey: "o"}, BackendGateway},
		{"openai", config.Config{OpenAIAPIKey: "o", GeminiAPIKey: "gm"}, BackendOpenAI},
		{"gemini", config.Config{GeminiAPIKey: "gm", ArkAPIKey: "a", ArkModel: "m"}, BackendGemini},
		{"ark needs a model", config.Config{ArkAPIKey: "a"}, BackendOllama},
		{"ark", config.Config{ArkAPIKey: "a", ArkModel: "m"}, BackendArk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BackendName(Select(tc.cfg)))
		})
	}
}

type stubProvider struct{ text string }

func (s stubProvider) Chat(context.Context, []Message) (string, error) { return s.text, nil }

func (s stubProvider) StreamChat(ctx context.Context, r Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 8)
	errs := make(chan error, 1)
	for _, part := range strings.SplitAfter(s.text, ">") {
		events <- textEvent(part)
	}
	close(events)
	close(errs)
	return events, errs
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (Provider, error) {
		return stubProvider{text: "<think>hmm</think>answer"}, nil
	})

	_, err := reg.Resolve(context.Background(), "gpt-9")
	assert.ErrorIs(t, err, ErrUnknownModel)

	p, err := reg.Resolve(context.Background(), ChatModel)
	require.NoError(t, err)
	assert.IsType(t, stubProvider{}, p)

	p, err = reg.Resolve(context.Background(), ChatModelReasoning)
	require.NoError(t, err)
	text, err := p.Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	sp, ok := p.(StreamProvider)
	require.True(t, ok)
	var reasoning, out strings.Builder
	events, errs := sp.StreamChat(context.Background(), Request{})
	for ev := range events {
		switch ev.Type {
		case EventReasoning:
			reasoning.WriteString(ev.Delta)
		case EventText:
			out.WriteString(ev.Delta)
		}
	}
	require.NoError(t, <-errs)
	assert.Equal(t, "hmm", reasoning.String())
	assert.Equal(t, "answer", out.String())

	reg.Use("missing")
	_, err = reg.Resolve(context.Background(), ChatModel)
	assert.Error(t, err)
}

func TestNewFromConfig_ActivatesSelected(t *testing.T) {
	reg := NewFromConfig(config.Config{OpenAIAPIKey: "k", OpenAIModel: "gpt-4", OpenAIBaseURL: "http://x"})
	assert.Equal(t, BackendOpenAI, reg.Active())

	p, err := reg.Resolve(context.Background(), TitleModel)
	require.NoError(t, err)
	require.IsType(t, &CompatProvider{}, p)
	assert.Equal(t, "gpt-3.5-turbo", p.(*CompatProvider).Model)
	assert.NoError(t, reg.Close())
}

func TestThinkExtractor_SplitTags(t *testing.T) {
	var x thinkExtractor
	var events []Event
	for _, d := range []string{"pre <th", "ink>rea", "son</thi", "nk> post", " <"} {
		events = append(events, x.feed(d)...)
	}
	events = append(events, x.flush()...)

	var text, reasoning strings.Builder
	for _, ev := range events {
		if ev.Type == EventReasoning {
			reasoning.WriteString(ev.Delta)
		} else {
			text.WriteString(ev.Delta)
		}
	}
	assert.Equal(t, "reason", reasoning.String())
	assert.Equal(t, "pre  post <", text.String())
}

func TestToolDef_JSONSchema(t *testing.T) {
	d := ToolDef{Name: "t", Params: []Param{
		{Name: "teamId", Type: "integer", Description: "team", Required: true},
		{Name: "kind", Type: "string", Enum: []string{"a", "b"}},
	}}
	b, err := json.Marshal(d.JSONSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"object",
		"additionalProperties":false,
		"required":["teamId"],
		"properties":{
			"teamId":{"type":"integer","description":"team"},
			"kind":{"type":"string","enum":["a","b"]}
		}
	}`, string(b))
}

func TestCompatProvider_StreamChatAssemblesToolCalls(t *testing.T) {
	var got compatChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "matchday", r.Header.Get("X-Title"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		lines := []string{
			`{"choices":[{"delta":{"reasoning":"think"}}]}`,
			`{"choices":[{"delta":{"content":"Hi"}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"get_standings","arguments":"{\"season"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"Id\":5}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewCompatProvider("test", srv.URL, "key", "m")
	p.Headers = map[string]string{"X-Title": "matchday"}

	events, errs := p.StreamChat(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "q"}},
		Tools:    []ToolDef{{Name: "get_standings"}},
	})

	var types []EventType
	var call *ToolCall
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == EventToolCall {
			call = ev.ToolCall
		}
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []EventType{EventReasoning, EventText, EventToolCall}, types)
	require.NotNil(t, call)
	assert.Equal(t, "c1", call.ID)
	assert.Equal(t, "get_standings", call.Name)
	assert.JSONEq(t, `{"seasonId":5}`, string(call.Arguments))

	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	require.Len(t, got.Tools, 1)
	assert.True(t, got.Stream)
}

func TestCompatProvider_StreamOutlivesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(60 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewCompatProvider("test", srv.URL, "key", "m")
	p.Client.Timeout = 100 * time.Millisecond

	text, _, err := Collect(p.StreamChat(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "01234", text)
	assert.Equal(t, 100*time.Millisecond, p.Client.Timeout)

	// ctx still bounds the stream
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()
	_, _, err = Collect(p.StreamChat(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}))
	assert.Error(t, err)
}

func TestCompatProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewCompatProvider("xai", srv.URL, "key", "m")
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xai: bad key")

	noKey := NewCompatProvider("xai", srv.URL, "", "m")
	_, _, err = Collect(noKey.StreamChat(context.Background(), Request{}))
	assert.EqualError(t, err, "xai: api key is required")
}

func TestOllamaProvider_StreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Let me check"}}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"get_live_matches","arguments":{}}}]}}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama")
	text, calls, err := Collect(p.StreamChat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "live?"}}}))
	require.NoError(t, err)
	assert.Equal(t, "Let me check", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_live_matches", calls[0].Name)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
}

func TestOllamaProvider_ErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	_, _, err := Collect(NewOllamaProvider(srv.URL, "x").StreamChat(context.Background(), Request{}))
	assert.EqualError(t, err, "model not found")
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "standings?"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "get_standings", Arguments: json.RawMessage(`{"seasonId":5}`)}}},
		{Role: RoleTool, ToolCallID: "c1", Name: "get_standings", Content: `{"success":true}`},
	})
	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)

	fc, ok := contents[1].Parts[0].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, float64(5), fc.Args["seasonId"])

	fr, ok := contents[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "get_standings", fr.Name)
	assert.Equal(t, map[string]any{"success": true}, fr.Response["output"])
}

func TestToGeminiTool(t *testing.T) {
	tool := toGeminiTool([]ToolDef{{Name: "search_team", Params: []Param{{Name: "name", Type: "string", Required: true}}}})
	require.Len(t, tool.FunctionDeclarations, 1)
	decl := tool.FunctionDeclarations[0]
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["name"].Type)
	assert.Equal(t, []string{"name"}, decl.Parameters.Required)
}

func TestToEinoMessages(t *testing.T) {
	msgs := toEinoMessages(withSystem("sys", []Message{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "search_team", Arguments: json.RawMessage(`{"name":"x"}`)}}},
		{Role: RoleTool, ToolCallID: "c1", Content: "{}"},
	}))
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "search_team", msgs[2].ToolCalls[0].Function.Name)
	assert.Equal(t, schema.Tool, msgs[3].Role)
	assert.Equal(t, "c1", msgs[3].ToolCallID)

	infos := toEinoTools([]ToolDef{{Name: "search_team", Description: "d", Params: []Param{{Name: "name", Type: "string", Required: true}}}})
	require.Len(t, infos, 1)
	assert.Equal(t, "search_team", infos[0].Name)
}
