package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

func textMsg(id, role, text string) UIMessage {
	return UIMessage{ID: id, Role: role, Parts: []uistream.Part{uistream.TextPart(text)}}
}

func TestTruncate_DropsOldestFirst(t *testing.T) {
	msgs := []UIMessage{
		textMsg("1", "user", strings.Repeat("a", 100)),
		textMsg("2", "assistant", strings.Repeat("b", 100)),
		textMsg("3", "user", strings.Repeat("c", 100)),
	}
	size := messageSize(msgs[0])

	got := Truncate(msgs, 2*size)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	assert.Len(t, Truncate(msgs, 10*size), 3)
}

func TestTruncate_AlwaysKeepsNewest(t *testing.T) {
	msgs := []UIMessage{
		textMsg("1", "user", "short"),
		textMsg("2", "user", strings.Repeat("x", 5000)),
	}
	got := Truncate(msgs, 100)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Empty(t, Truncate(nil, 100))
}

func TestToModelMessages_SplitsStepsAndPairsToolResults(t *testing.T) {
	assistant := UIMessage{ID: "a", Role: "assistant", Parts: []uistream.Part{
		{Type: uistream.PartStepStart},
		{Type: "reasoning", Text: "hmm"},
		uistream.TextPart("Let me check."),
		{Type: "tool-get_standings", ToolCallID: "c1", State: uistream.StateOutputAvailable,
			Input: json.RawMessage(`{"seasonId":1}`), Output: json.RawMessage(`{"success":true}`)},
		{Type: "tool-get_live_matches", ToolCallID: "c2", State: uistream.StateOutputError,
			Input: json.RawMessage(`{}`), ErrorText: "boom"},
		{Type: "tool-get_fixtures", ToolCallID: "c3", State: uistream.StateInputAvailable},
		{Type: uistream.PartStepStart},
		uistream.TextPart("Here you go."),
		{Type: "data-kind", Data: json.RawMessage(`"text"`)},
	}}
	user := UIMessage{ID: "u", Role: "user", Parts: []uistream.Part{
		uistream.TextPart("Look at this"),
		{Type: "file", Name: "slip.png", MediaType: "image/png", URL: "https://img.test/slip.png"},
	}}

	got := toModelMessages([]UIMessage{user, assistant})
	require.Len(t, got, 5)

	assert.Equal(t, ai.RoleUser, got[0].Role)
	assert.Equal(t, "Look at this\n[attachment slip.png (image/png): https://img.test/slip.png]", got[0].Content)

	assert.Equal(t, ai.RoleAssistant, got[1].Role)
	assert.Equal(t, "Let me check.", got[1].Content)
	require.Len(t, got[1].ToolCalls, 2)
	assert.Equal(t, "get_standings", got[1].ToolCalls[0].Name)
	assert.JSONEq(t, `{"seasonId":1}`, string(got[1].ToolCalls[0].Arguments))

	assert.Equal(t, ai.RoleTool, got[2].Role)
	assert.Equal(t, "c1", got[2].ToolCallID)
	assert.Equal(t, "get_standings", got[2].Name)
	assert.JSONEq(t, `{"success":true}`, got[2].Content)

	assert.Equal(t, "c2", got[3].ToolCallID)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, got[3].Content)

	assert.Equal(t, ai.Message{Role: ai.RoleAssistant, Content: "Here you go."}, got[4])
}

func TestIncomingMessageCheck(t *testing.T) {
	ok := IncomingMessage{Parts: []IncomingPart{
		{Type: "text", Text: "hi"},
		{Type: "file", MediaType: "image/jpeg", Name: "a.jpg", URL: "https://x.test/a.jpg"},
	}}
	assert.NoError(t, ok.Check())

	long := IncomingMessage{Parts: []IncomingPart{{Type: "text", Text: strings.Repeat("é", 2001)}}}
	assert.Error(t, long.Check())

	empty := IncomingMessage{Parts: []IncomingPart{{Type: "text"}}}
	assert.Error(t, empty.Check())

	gif := IncomingMessage{Parts: []IncomingPart{{Type: "file", MediaType: "image/gif", Name: "a.gif", URL: "https://x.test/a.gif"}}}
	assert.Error(t, gif.Check())
}
