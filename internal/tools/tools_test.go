package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

var validArgs = map[string]string{
	"get_fixtures":          `{"date":"2025-03-01"}`,
	"get_today_matches":     `{}`,
	"get_live_matches":      `{}`,
	"get_standings":         `{"seasonId":19734}`,
	"get_head_to_head":      `{"team1Id":1,"team2Id":2}`,
	"get_team_stats":        `{"teamId":8}`,
	"get_match_predictions": `{"matchId":99}`,
	"get_match_odds":        `{"matchId":99}`,
	"search_team":           `{"teamName":"Arsenal"}`,
	"get_league_info":       `{"leagueId":8}`,
}

func footballRegistry(t *testing.T, baseURL, token string) *Registry {
	t.Helper()
	c, err := sportmonks.New(baseURL, token, nil)
	require.NoError(t, err)
	reg := NewRegistry()
	reg.MustRegister(Football(c)...)
	return reg
}

func TestFootballTools_InvalidTokenIsInBand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))
	defer srv.Close()

	reg := footballRegistry(t, srv.URL, "bad-token")
	for name, args := range validArgs {
		t.Run(name, func(t *testing.T) {
			tool, ok := reg.Get(name)
			require.True(t, ok)
			env := tool.Run(context.Background(), Env{}, json.RawMessage(args))
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, "Invalid SportMonks API token")
		})
	}
}

func TestFootballTools_NoToken(t *testing.T) {
	reg := footballRegistry(t, "", "")
	for name, args := range validArgs {
		tool, _ := reg.Get(name)
		env := tool.Run(context.Background(), Env{}, json.RawMessage(args))
		assert.False(t, env.Success, name)
		assert.Equal(t, sportmonks.ErrNoToken.Error(), env.Error, name)
	}
}

func TestFootballTools_Success(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"id":8},"meta":{"plan":"free"}}`))
	}))
	defer srv.Close()

	reg := footballRegistry(t, srv.URL, "tok")
	tool, _ := reg.Get("get_team_stats")
	env := tool.Run(context.Background(), Env{}, json.RawMessage(`{"teamId":8,"includeForm":true}`))
	require.True(t, env.Success, env.Error)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"team":{"id":8},"recentForm":{"id":8}},"meta":{"plan":"free"}}`, string(b))
	assert.Len(t, paths, 2)

	live, _ := reg.Get("get_fixtures")
	env = live.Run(context.Background(), Env{}, json.RawMessage(`{"live":true}`))
	require.True(t, env.Success)
	assert.Equal(t, "/livescores/inplay", paths[len(paths)-1])
}

func TestTyped_RejectsBadInput(t *testing.T) {
	reg := footballRegistry(t, "", "tok")
	tool, _ := reg.Get("get_standings")

	env := tool.Run(context.Background(), Env{}, json.RawMessage(`{"seasonId":1,"extra":true}`))
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "unknown field")

	env = tool.Run(context.Background(), Env{}, json.RawMessage(`{}`))
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "SeasonID failed on 'required'")

	env = tool.Run(context.Background(), Env{}, json.RawMessage(`{"seasonId":"x"}`))
	assert.False(t, env.Success)

	fixtures, _ := reg.Get("get_fixtures")
	env = fixtures.Run(context.Background(), Env{}, json.RawMessage(`{"date":"01/03/2025"}`))
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "Date")
}

func TestRun_RecoversPanic(t *testing.T) {
	tool := Tool{Name: "boom", Execute: func(context.Context, Env, json.RawMessage) Envelope {
		panic("kaboom")
	}}
	env := tool.Run(context.Background(), Env{}, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "boom failed unexpectedly", env.Error)
}

func TestRegistry_Active(t *testing.T) {
	reg := footballRegistry(t, "", "")
	reg.MustRegister(Weather("", nil))
	assert.Error(t, reg.Register(Weather("", nil)))

	active := reg.Active(AllowList)
	names := make([]string, 0, len(active))
	for _, tool := range active {
		names = append(names, tool.Name)
	}
	// document tools are not registered here
	assert.Equal(t, AllowList[:10], names)
	assert.NotContains(t, names, "getWeather")

	_, ok := reg.Get("getWeather")
	assert.True(t, ok)

	defs := Defs(active)
	require.Len(t, defs, 10)
	assert.Equal(t, "get_today_matches", defs[0].Name)
}

func TestWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "51.5", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":11.2}}`))
	}))
	defer srv.Close()

	env := Weather(srv.URL, srv.Client()).Run(context.Background(), Env{}, json.RawMessage(`{"latitude":51.5,"longitude":-0.1}`))
	require.True(t, env.Success)
	b, _ := json.Marshal(env.Data)
	assert.JSONEq(t, `{"current":{"temperature_2m":11.2}}`, string(b))
}

type memDocs struct {
	mu          sync.Mutex
	docs        []models.Document
	suggestions []models.Suggestion
}

func (m *memDocs) SaveDocument(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, *d)
	return nil
}

func (m *memDocs) LatestDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.docs) - 1; i >= 0; i-- {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memDocs) SaveSuggestions(_ context.Context, s []models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions = append(m.suggestions, s...)
	return nil
}

type fixedModel struct{ text string }

func (f fixedModel) Chat(context.Context, []ai.Message) (string, error) { return f.text, nil }

type fixedResolver struct{ p ai.Provider }

func (r fixedResolver) Resolve(context.Context, string) (ai.Provider, error) { return r.p, nil }

func TestDocuments_CreateUpdateSuggest(t *testing.T) {
	store := &memDocs{}
	docs := &Documents{Store: store, Models: fixedResolver{fixedModel{"print('hi')"}}}

	var chunks []uistream.Chunk
	env := Env{UserID: 7, Writer: uistream.WriterFunc(func(c uistream.Chunk) error {
		chunks = append(chunks, c)
		return nil
	})}

	reg := NewRegistry()
	reg.MustRegister(docs.Tools()...)

	create, _ := reg.Get("createDocument")
	out := create.Run(context.Background(), env, json.RawMessage(`{"title":"Hello","kind":"code"}`))
	require.True(t, out.Success, out.Error)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "print('hi')", store.docs[0].Content)
	assert.Equal(t, uint64(7), store.docs[0].UserID)

	var types []string
	for _, c := range chunks {
		types = append(types, c.Type)
		assert.True(t, c.Transient)
	}
	assert.Equal(t, []string{"data-kind", "data-id", "data-title", "data-clear", "data-codeDelta", "data-finish"}, types)

	id := store.docs[0].ID
	update, _ := reg.Get("updateDocument")
	out = update.Run(context.Background(), env, json.RawMessage(`{"id":"`+id+`","description":"add a loop"}`))
	require.True(t, out.Success, out.Error)
	require.Len(t, store.docs, 2)
	assert.Equal(t, id, store.docs[1].ID)

	other := update.Run(context.Background(), Env{UserID: 8}, json.RawMessage(`{"id":"`+id+`","description":"x"}`))
	assert.False(t, other.Success)
	assert.Equal(t, "Document not found", other.Error)

	docs.Models = fixedResolver{fixedModel{"```json\n[{\"originalSentence\":\"a\",\"suggestedSentence\":\"b\",\"description\":\"c\"}]\n```"}}
	suggest, _ := reg.Get("requestSuggestions")
	out = suggest.Run(context.Background(), env, json.RawMessage(`{"documentId":"`+id+`"}`))
	require.True(t, out.Success, out.Error)
	require.Len(t, store.suggestions, 1)
	assert.Equal(t, "b", store.suggestions[0].SuggestedText)
	assert.Equal(t, "data-suggestion", chunks[len(chunks)-1].Type)
}
