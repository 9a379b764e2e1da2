package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/chat"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/handlers"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/middleware"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
	"github.com/suPer8Hu/matchday-ai/internal/tools"
	"gorm.io/gorm"
)

// echoProvider streams a fixed reply and names every chat "Derby preview".
type echoProvider struct{}

func (echoProvider) Chat(context.Context, []ai.Message) (string, error) {
	return "Derby preview", nil
}

func (echoProvider) StreamChat(ctx context.Context, req ai.Request) (<-chan ai.Event, <-chan error) {
	events := make(chan ai.Event, 2)
	errs := make(chan error, 1)
	events <- ai.Event{Type: ai.EventText, Delta: "Arsenal "}
	events <- ai.Event{Type: ai.EventText, Delta: "to win."}
	close(events)
	close(errs)
	return events, errs
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    config.Config
}

func newTestServer(t *testing.T, sportmonksURL string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(append(chat.Tables(), &models.User{})...))

	cfg := config.Config{JWTSecret: "test-secret", SportmonksToken: "token"}

	reg := ai.NewRegistry()
	reg.Register("fake", func(context.Context, string) (ai.Provider, error) {
		return echoProvider{}, nil
	})

	sports, err := sportmonks.New(sportmonksURL, cfg.SportmonksToken, nil)
	require.NoError(t, err)

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, reg, tools.NewRegistry(), chat.Options{})
	h := handlers.NewHandler(gdb, cfg, svc, reg, sports)
	return &testServer{router: NewRouter(cfg, h), db: gdb, cfg: cfg}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Code
}

func (s *testServer) guestToken(t *testing.T) string {
	t.Helper()
	w := s.do(http.MethodPost, "/guest", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string          `json:"token"`
		Type  models.UserType `json:"type"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	require.Equal(t, models.UserGuest, data.Type)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func chatBody(chatID, text string) map[string]any {
	return map[string]any{
		"id": chatID,
		"message": map[string]any{
			"id":    uuid.NewString(),
			"role":  "user",
			"parts": []map[string]any{{"type": "text", "text": text}},
		},
		"selectedChatModel":      ai.ChatModel,
		"selectedVisibilityType": "private",
	}
}

func TestPostChat_StreamsUntilDone(t *testing.T) {
	s := newTestServer(t, "")
	token := s.guestToken(t)
	chatID := uuid.NewString()

	w := s.do(http.MethodPost, "/chat", token, chatBody(chatID, "Who wins the north London derby?"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Stream-ID"))

	body := w.Body.String()
	assert.Contains(t, body, `"type":"start"`)
	assert.Contains(t, body, `"delta":"Arsenal "`)
	assert.Contains(t, body, `"type":"finish"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"), body)

	// the turn is persisted before the stream closes
	w = s.do(http.MethodGet, "/chat/"+chatID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Messages []chat.UIMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "user", out.Messages[0].Role)
	assert.Equal(t, "assistant", out.Messages[1].Role)
}

func TestPostChat_RejectsBadRequests(t *testing.T) {
	s := newTestServer(t, "")
	token := s.guestToken(t)

	unknown := chatBody(uuid.NewString(), "hi")
	unknown["extra"] = true
	w := s.do(http.MethodPost, "/chat", token, unknown)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request:api", errorCode(t, w))

	w = s.do(http.MethodPost, "/chat", token, chatBody("not-a-uuid", "hi"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/chat", token, chatBody(uuid.NewString(), strings.Repeat("a", 2001)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/chat", token, "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostChat_MissingMessageWritesNothing(t *testing.T) {
	s := newTestServer(t, "")
	token := s.guestToken(t)

	body := chatBody(uuid.NewString(), "hi")
	delete(body, "message")
	w := s.do(http.MethodPost, "/chat", token, body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var out struct {
		Code  string `json:"code"`
		Cause string `json:"cause"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "bad_request:api", out.Code)
	assert.Equal(t, "request body failed validation", out.Cause)
	assert.NotContains(t, w.Body.String(), "PostRequest")

	for _, table := range []any{&chat.Chat{}, &chat.Message{}, &chat.Stream{}} {
		var n int64
		require.NoError(t, s.db.Model(table).Count(&n).Error)
		assert.Zero(t, n)
	}
}

func TestPostChat_RequiresSession(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodPost, "/chat", "", chatBody(uuid.NewString(), "hi"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized:chat", errorCode(t, w))

	w = s.do(http.MethodPost, "/chat", "garbage", chatBody(uuid.NewString(), "hi"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteChat(t *testing.T) {
	s := newTestServer(t, "")
	owner := s.guestToken(t)
	stranger := s.guestToken(t)

	chatID := uuid.NewString()
	w := s.do(http.MethodPost, "/chat", owner, chatBody(chatID, "Preview Spurs vs Chelsea"))
	require.Equal(t, http.StatusOK, w.Code)

	// the id is checked before the session
	w = s.do(http.MethodDelete, "/chat", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request:api", errorCode(t, w))

	w = s.do(http.MethodDelete, "/chat?id="+chatID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodDelete, "/chat", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/chat?id="+uuid.NewString(), owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found:chat", errorCode(t, w))

	w = s.do(http.MethodDelete, "/chat?id="+chatID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden:chat", errorCode(t, w))

	w = s.do(http.MethodDelete, "/chat?id="+chatID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var deleted chat.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, chatID, deleted.ID)

	var n int64
	require.NoError(t, s.db.Model(&chat.Message{}).Where("chat_id = ?", chatID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestResumeChat_NoStoreIsNoContent(t *testing.T) {
	s := newTestServer(t, "")
	token := s.guestToken(t)
	chatID := uuid.NewString()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/chat", token, chatBody(chatID, "hi")).Code)

	w := s.do(http.MethodGet, "/chat/"+chatID+"/stream", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestVisibility(t *testing.T) {
	s := newTestServer(t, "")
	owner := s.guestToken(t)
	reader := s.guestToken(t)
	chatID := uuid.NewString()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/chat", owner, chatBody(chatID, "hi")).Code)

	w := s.do(http.MethodGet, "/chat/"+chatID+"/messages", reader, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/chat/"+chatID+"/visibility", owner, map[string]string{"visibility": "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/chat/"+chatID+"/visibility", reader, map[string]string{"visibility": "public"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/chat/"+chatID+"/visibility", owner, map[string]string{"visibility": "public"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/chat/"+chatID+"/messages", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUsers_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t, "")
	creds := map[string]string{"email": "Fan@Example.com", "password": "secret123"}

	w := s.do(http.MethodPost, "/users", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/users", "", creds)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/login", "", map[string]string{"email": "fan@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40102, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		ID    uint64 `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &login))

	w = s.do(http.MethodGet, "/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email string          `json:"email"`
		Type  models.UserType `json:"type"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &me))
	assert.Equal(t, "fan@example.com", me.Email)
	assert.Equal(t, models.UserRegular, me.Type)

	w = s.do(http.MethodGet, fmt.Sprintf("/users/%d", login.ID+1), login.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFixtures_DegradesOnUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))
	defer upstream.Close()
	s := newTestServer(t, upstream.URL)

	w := s.do(http.MethodGet, "/fixtures", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Fixtures []sportmonks.FixturePreview `json:"fixtures"`
		Count    int                         `json:"count"`
		Error    string                      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Empty(t, data.Fixtures)
	assert.Zero(t, data.Count)
	assert.Equal(t, "Unable to fetch fixtures at this time", data.Error)
}

func TestMetaEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/check-config", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg struct {
		APIKeys map[string]bool `json:"apiKeys"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cfg))
	assert.True(t, cfg.APIKeys["SPORTMONKS_API_TOKEN"])
	assert.False(t, cfg.APIKeys["XAI_API_KEY"])
	assert.NotContains(t, w.Body.String(), s.cfg.JWTSecret)

	w = s.do(http.MethodGet, "/models", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ms struct {
		Backend string `json:"backend"`
		Models  []struct {
			ID        string `json:"id"`
			Available bool   `json:"available"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &ms))
	assert.Equal(t, "fake", ms.Backend)
	require.Len(t, ms.Models, len(ai.ChatModels))
	for _, m := range ms.Models {
		assert.True(t, m.Available, m.ID)
	}

	w = s.do(http.MethodGet, "/quick-actions", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDocument(t *testing.T) {
	s := newTestServer(t, "")
	token := s.guestToken(t)

	w := s.do(http.MethodGet, "/document", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/document?id="+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/document", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/document?id="+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found:document", errorCode(t, w))
}

func TestRouter_RequestIDAndNoRoute(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decodeEnvelope(t, w).Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(middleware.RequestIDHeader))

	w = s.do(http.MethodPut, "/ping", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
