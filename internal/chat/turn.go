package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
	"github.com/suPer8Hu/matchday-ai/internal/resumable"
	"github.com/suPer8Hu/matchday-ai/internal/tools"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
	"golang.org/x/sync/errgroup"
)

// ErrorText is the only error detail a client ever sees mid-stream.
const ErrorText = "Oops, an error occurred!"

// Turn is one running generation. Chunks is closed after the assistant
// message has been stored.
type Turn struct {
	ChatID   string
	StreamID string

	pipe  *uistream.Pipe
	done  chan struct{}
	saved sync.Once
}

func (t *Turn) Chunks() <-chan uistream.Chunk { return t.pipe.Chunks() }

// Detach stops delivery to Chunks; generation carries on.
func (t *Turn) Detach() { t.pipe.Detach() }

// Done is closed when generation has finished and been persisted.
func (t *Turn) Done() <-chan struct{} { return t.done }

// recorder appends encoded frames to the resumable store.
type recorder struct {
	ctx   context.Context
	store resumable.Store
	id    string
}

func (r *recorder) Write(c uistream.Chunk) error {
	frame, err := uistream.Encode(c)
	if err != nil {
		return err
	}
	return r.store.Append(r.ctx, r.id, frame)
}

func (s *Service) generate(ctx context.Context, t *Turn, who Identity, model string, hints prompt.Hints, history []UIMessage) {
	defer close(t.done)
	defer t.pipe.Close()

	start := time.Now()
	acc := uistream.NewAccumulator()
	var rec uistream.Writer
	if s.streams != nil {
		rec = &recorder{ctx: ctx, store: s.streams, id: t.StreamID}
	}
	out := uistream.NewTee(acc, rec, t.pipe)

	messageID := uuid.NewString()
	_ = out.Write(uistream.Start(messageID))
	if err := s.runSteps(ctx, out, who, model, hints, history); err != nil {
		log.Error().Err(err).
			Str("chat_id", t.ChatID).
			Str("stream_id", t.StreamID).
			Str("model", model).
			Msg("chat turn failed")
		_ = out.Write(uistream.Error(ErrorText))
	} else {
		_ = out.Write(uistream.Finish())
	}

	// the turn context may already be past its deadline
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	t.saved.Do(func() { s.saveAssistant(bg, t, messageID, acc.Parts()) })

	if s.streams != nil {
		if err := s.streams.Close(bg, t.StreamID); err != nil {
			log.Warn().Err(err).Str("stream_id", t.StreamID).Msg("close resumable stream failed")
		}
	}

	log.Info().
		Str("chat_id", t.ChatID).
		Str("stream_id", t.StreamID).
		Str("model", model).
		Int64("ms", time.Since(start).Milliseconds()).
		Msg("chat turn finished")
}

func (s *Service) saveAssistant(ctx context.Context, t *Turn, messageID string, parts []uistream.Part) {
	row, err := newMessage(messageID, t.ChatID, ai.RoleAssistant, parts, s.now())
	if err != nil {
		log.Error().Err(err).Str("chat_id", t.ChatID).Msg("encode assistant message failed")
		return
	}
	if err := s.repo.InsertMessage(ctx, row); err != nil {
		log.Error().Err(err).Str("chat_id", t.ChatID).Msg("save assistant message failed")
	}
}

// resolve tries the requested model and then the fallback model once.
func (s *Service) resolve(ctx context.Context, model string) (ai.Provider, error) {
	p, err := s.models.Resolve(ctx, model)
	if err == nil {
		return p, nil
	}
	log.Warn().Err(err).Str("model", model).Str("fallback", ai.FallbackModel).Msg("model unavailable, falling back")
	p, ferr := s.models.Resolve(ctx, ai.FallbackModel)
	if ferr != nil {
		return nil, fmt.Errorf("resolve %s: %w; fallback: %w", model, err, ferr)
	}
	return p, nil
}

// activeTools is the allow-listed subset, offered to every chat model.
func (s *Service) activeTools() map[string]tools.Tool {
	active := map[string]tools.Tool{}
	if s.tools == nil {
		return active
	}
	for _, t := range s.tools.Active(tools.AllowList) {
		active[t.Name] = t
	}
	return active
}

func (s *Service) runSteps(ctx context.Context, out uistream.Writer, who Identity, model string, hints prompt.Hints, history []UIMessage) error {
	p, err := s.resolve(ctx, model)
	if err != nil {
		return err
	}
	sp, ok := p.(ai.StreamProvider)
	if !ok {
		return fmt.Errorf("model %s cannot stream", model)
	}

	active := s.activeTools()
	req := ai.Request{
		System:   prompt.System(model, hints, s.opts.Mode),
		Messages: toModelMessages(history),
	}
	if len(active) > 0 {
		req.Tools = tools.Defs(s.tools.Active(tools.AllowList))
	}
	env := tools.Env{UserID: who.UserID, Writer: out}

	for step := 0; step < s.opts.MaxSteps; step++ {
		_ = out.Write(uistream.StartStep())
		text, calls, err := streamStep(ctx, sp, req, out)
		if err != nil {
			return err
		}
		if len(calls) == 0 {
			_ = out.Write(uistream.FinishStep())
			return nil
		}

		results := s.runTools(ctx, env, active, calls)
		req.Messages = append(req.Messages, ai.Message{Role: ai.RoleAssistant, Content: text, ToolCalls: calls})
		for i, call := range calls {
			raw, err := json.Marshal(results[i])
			if err != nil {
				raw, _ = json.Marshal(tools.Fail("Tool result could not be encoded"))
			}
			_ = out.Write(uistream.ToolOutput(call.ID, raw))
			req.Messages = append(req.Messages, ai.Message{
				Role:       ai.RoleTool,
				Content:    string(raw),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
		_ = out.Write(uistream.FinishStep())
	}
	log.Debug().Int("max_steps", s.opts.MaxSteps).Msg("step limit reached")
	return nil
}

// streamStep forwards one model call to out and returns its text and tool calls.
func streamStep(ctx context.Context, sp ai.StreamProvider, req ai.Request, out uistream.Writer) (string, []ai.ToolCall, error) {
	events, errs := sp.StreamChat(ctx, req)

	var (
		text        strings.Builder
		calls       []ai.ToolCall
		textID      string
		reasoningID string
	)
	endReasoning := func() {
		if reasoningID != "" {
			_ = out.Write(uistream.ReasoningEnd(reasoningID))
			reasoningID = ""
		}
	}
	endText := func() {
		if textID != "" {
			_ = out.Write(uistream.TextEnd(textID))
			textID = ""
		}
	}

	for ev := range events {
		switch ev.Type {
		case ai.EventReasoning:
			if reasoningID == "" {
				endText()
				reasoningID = uuid.NewString()
				_ = out.Write(uistream.ReasoningStart(reasoningID))
			}
			_ = out.Write(uistream.ReasoningDelta(reasoningID, ev.Delta))
		case ai.EventText:
			if textID == "" {
				endReasoning()
				textID = uuid.NewString()
				_ = out.Write(uistream.TextStart(textID))
			}
			_ = out.Write(uistream.TextDelta(textID, ev.Delta))
			text.WriteString(ev.Delta)
		case ai.EventToolCall:
			if ev.ToolCall == nil {
				continue
			}
			call := *ev.ToolCall
			if call.ID == "" {
				call.ID = "call_" + uuid.NewString()
			}
			if len(call.Arguments) == 0 {
				call.Arguments = json.RawMessage("{}")
			}
			calls = append(calls, call)
			_ = out.Write(uistream.ToolInput(call.ID, call.Name, call.Arguments))
		}
	}
	endReasoning()
	endText()

	if err := <-errs; err != nil {
		return text.String(), calls, err
	}
	return text.String(), calls, nil
}

// runTools executes calls with bounded concurrency. Results line up with calls.
func (s *Service) runTools(ctx context.Context, env tools.Env, active map[string]tools.Tool, calls []ai.ToolCall) []tools.Envelope {
	results := make([]tools.Envelope, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ToolConcurrency)
	for i, call := range calls {
		g.Go(func() error {
			t, ok := active[call.Name]
			if !ok {
				results[i] = tools.Fail(fmt.Sprintf("Tool %s is not available", call.Name))
				return nil
			}
			began := time.Now()
			results[i] = t.Run(gctx, env, call.Arguments)
			log.Debug().
				Str("tool", call.Name).
				Str("call_id", call.ID).
				Bool("success", results[i].Success).
				Int64("ms", time.Since(began).Milliseconds()).
				Msg("tool finished")
			return nil
		})
	}
	_ = g.Wait()
	return results
}
