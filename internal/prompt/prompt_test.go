package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystem(t *testing.T) {
	hints := Hints{Latitude: "51.5", Longitude: "-0.12", City: "London", Country: "GB"}

	got := System("chat-model", hints, ModeFootball)
	assert.True(t, strings.HasPrefix(got, Football))
	assert.Contains(t, got, "- city: London\n- country: GB")
	assert.True(t, strings.HasSuffix(got, Artifacts))

	reasoning := System("chat-model-reasoning", hints, ModeFootball)
	assert.NotContains(t, reasoning, "createDocument")
	assert.Equal(t, Football+"\n\n"+hints.block(), reasoning)

	regular := System("chat-model", Hints{}, ModeRegular)
	assert.True(t, strings.HasPrefix(regular, Regular))
	assert.Contains(t, regular, "- lat: \n")
}

func TestSystem_Deterministic(t *testing.T) {
	h := Hints{City: "Madrid"}
	assert.Equal(t, System("chat-model", h, ModeFootball), System("chat-model", h, ModeFootball))
}

func TestUpdateDocument(t *testing.T) {
	assert.Equal(t, "Improve the following code snippet based on the given prompt.\n\nprint(1)\n", UpdateDocument("print(1)", KindCode))
	assert.Contains(t, UpdateDocument("a,b", KindSheet), "spreadsheet")
	assert.Contains(t, UpdateDocument("x", KindText), "contents of the document")
	assert.Empty(t, UpdateDocument("x", "image"))
}

func TestQuickActions(t *testing.T) {
	assert.Len(t, QuickActions, 8)
	for _, qa := range QuickActions {
		assert.NotEmpty(t, qa.Label)
		assert.NotEmpty(t, qa.Prompt)
	}
}
