package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
	"github.com/suPer8Hu/matchday-ai/internal/resumable"
	"github.com/suPer8Hu/matchday-ai/internal/tools"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
	"gorm.io/gorm"
)

// Entitlements caps user messages per trailing 24 hours.
var Entitlements = map[models.UserType]int64{
	models.UserGuest:   20,
	models.UserRegular: 100,
}

// ErrNoStream means there is nothing to resume.
var ErrNoStream = errors.New("no resumable stream")

type Options struct {
	ContextBudget   int
	MaxSteps        int
	MaxDuration     time.Duration
	ToolConcurrency int
	Mode            prompt.Mode
}

func (o Options) withDefaults() Options {
	if o.ContextBudget <= 0 {
		o.ContextBudget = 120000
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = 5
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 300 * time.Second
	}
	if o.ToolConcurrency <= 0 {
		o.ToolConcurrency = 4
	}
	if o.Mode == "" {
		o.Mode = prompt.ModeFootball
	}
	return o
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uint64
	Type   models.UserType
}

type Service struct {
	repo    *Repo
	models  tools.ModelResolver
	tools   *tools.Registry
	streams resumable.Store
	titles  TitlePublisher
	opts    Options
	now     func() time.Time

	running sync.WaitGroup
}

func NewService(repo *Repo, resolver tools.ModelResolver, toolset *tools.Registry, opts Options) *Service {
	return &Service{
		repo:   repo,
		models: resolver,
		tools:  toolset,
		opts:   opts.withDefaults(),
		now:    time.Now,
	}
}

// WithStreams records every turn in st so clients can resume.
func (s *Service) WithStreams(st resumable.Store) *Service {
	s.streams = st
	return s
}

// WithTitlePublisher moves title generation to a background worker.
func (s *Service) WithTitlePublisher(p TitlePublisher) *Service {
	s.titles = p
	return s
}

func offline(err error) error {
	return common.NewError(common.ErrorOffline, common.SurfaceChat).Wrap(err)
}

var (
	errForbidden = common.NewError(common.ErrorForbidden, common.SurfaceChat)
	errNotFound  = common.NewError(common.ErrorNotFound, common.SurfaceChat)
	errRateLimit = common.NewError(common.ErrorRateLimit, common.SurfaceChat)

	errMessageReused = common.NewError(common.ErrorBadRequest, common.SurfaceAPI).WithCause("message id is already in use")
)

// Post validates quota and ownership, stores the user message and starts
// generation. The returned Turn streams chunks until generation ends.
func (s *Service) Post(ctx context.Context, who Identity, req PostRequest, hints prompt.Hints) (*Turn, error) {
	count, err := s.repo.CountUserMessagesSince(ctx, who.UserID, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, offline(err)
	}
	limit, ok := Entitlements[who.Type]
	if !ok {
		limit = Entitlements[models.UserGuest]
	}
	if count > limit {
		return nil, errRateLimit
	}
	retry, err := s.isRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetChat(ctx, req.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		visibility := req.SelectedVisibilityType
		if visibility == "" {
			visibility = VisibilityPrivate
		}
		c = &Chat{
			ID:         req.ID,
			UserID:     who.UserID,
			Title:      InitialTitle(req.Message.firstText()),
			Visibility: visibility,
		}
		if err := s.repo.CreateChat(ctx, c); err != nil {
			return nil, offline(err)
		}
		s.scheduleTitle(ctx, c, req.Message.firstText())
	case err != nil:
		return nil, offline(err)
	case c.UserID != who.UserID:
		return nil, errForbidden
	}

	rows, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, offline(err)
	}
	now := s.now()
	userMsg := UIMessage{ID: req.Message.ID, Role: "user", Parts: req.Message.parts(), CreatedAt: now}
	history := make([]UIMessage, 0, len(rows)+1)
	for _, m := range toUIMessages(rows) {
		// a retried request must not see its own message twice
		if m.ID != userMsg.ID {
			history = append(history, m)
		}
	}
	history = Truncate(append(history, userMsg), s.opts.ContextBudget)

	if !retry {
		row, err := newMessage(userMsg.ID, c.ID, userMsg.Role, userMsg.Parts, now)
		if err != nil {
			return nil, offline(err)
		}
		if err := s.repo.InsertMessage(ctx, row); err != nil {
			return nil, offline(err)
		}
	}

	streamID, err := common.NewULID()
	if err != nil {
		return nil, offline(err)
	}
	stream := &Stream{ID: streamID, ChatID: c.ID, CreatedAt: now}
	if err := s.repo.CreateStream(ctx, stream); err != nil {
		return nil, offline(err)
	}

	t := &Turn{
		ChatID:   c.ID,
		StreamID: stream.ID,
		pipe:     uistream.NewPipe(64),
		done:     make(chan struct{}),
	}
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.MaxDuration)
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer cancel()
		s.generate(genCtx, t, who, req.SelectedChatModel, hints, history)
	}()
	return t, nil
}

// Wait blocks until every running turn has been persisted or ctx ends.
// Turns outlive their HTTP requests, so shutdown waits here after the server
// has stopped accepting requests.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetry reports whether the request resends a stored user message. A
// message id may only be reused for the same chat with the same parts.
func (s *Service) isRetry(ctx context.Context, req PostRequest) (bool, error) {
	stored, err := s.repo.GetMessage(ctx, req.Message.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, offline(err)
	}
	want, err := json.Marshal(req.Message.parts())
	if err != nil {
		return false, offline(err)
	}
	got, err := json.Marshal(stored.DecodeParts())
	if err != nil {
		return false, offline(err)
	}
	if stored.ChatID != req.ID || stored.Role != "user" || !bytes.Equal(want, got) {
		return false, errMessageReused
	}
	return true, nil
}

// ownedChat loads a chat and checks that who may see it. Public chats are
// readable by anyone when allowPublic is set.
func (s *Service) ownedChat(ctx context.Context, who Identity, chatID string, allowPublic bool) (*Chat, error) {
	c, err := s.repo.GetChat(ctx, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, offline(err)
	}
	if c.UserID != who.UserID && !(allowPublic && c.Visibility == VisibilityPublic) {
		return nil, errForbidden
	}
	return c, nil
}

// Delete removes an owned chat and returns it as it was.
func (s *Service) Delete(ctx context.Context, who Identity, chatID string) (*Chat, error) {
	c, err := s.ownedChat(ctx, who, chatID, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteChat(ctx, c.ID); err != nil {
		return nil, offline(err)
	}
	return c, nil
}

func (s *Service) Messages(ctx context.Context, who Identity, chatID string) ([]UIMessage, error) {
	c, err := s.ownedChat(ctx, who, chatID, true)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, offline(err)
	}
	return toUIMessages(rows), nil
}

func (s *Service) SetVisibility(ctx context.Context, who Identity, chatID string, v Visibility) (*Chat, error) {
	c, err := s.ownedChat(ctx, who, chatID, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateChatVisibility(ctx, c.ID, v); err != nil {
		return nil, offline(err)
	}
	c.Visibility = v
	return c, nil
}

// Resume replays and follows the latest stream of a chat as encoded SSE
// frames. ErrNoStream is returned when there is nothing to resume.
func (s *Service) Resume(ctx context.Context, who Identity, chatID string) (<-chan []byte, error) {
	c, err := s.ownedChat(ctx, who, chatID, true)
	if err != nil {
		return nil, err
	}
	if s.streams == nil {
		return nil, ErrNoStream
	}
	st, err := s.repo.LatestStream(ctx, c.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoStream
	}
	if err != nil {
		return nil, offline(err)
	}
	frames, err := s.streams.Subscribe(ctx, st.ID)
	if errors.Is(err, resumable.ErrNotFound) {
		return nil, ErrNoStream
	}
	if err != nil {
		return nil, offline(err)
	}
	return frames, nil
}

// Document returns every version of an artifact, oldest first.
func (s *Service) Document(ctx context.Context, who Identity, id string) ([]models.Document, error) {
	docs, err := s.repo.ListDocumentVersions(ctx, id)
	if err != nil {
		return nil, offline(err)
	}
	if len(docs) == 0 {
		return nil, common.NewError(common.ErrorNotFound, common.SurfaceDocument)
	}
	if docs[0].UserID != who.UserID {
		return nil, common.NewError(common.ErrorForbidden, common.SurfaceDocument)
	}
	return docs, nil
}
