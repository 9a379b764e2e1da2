package ai

import (
	"context"
	"net/http"
	"strings"
)

type EventType int

const (
	EventText EventType = iota
	EventReasoning
	EventToolCall
)

// Event is one increment of a streamed completion. Tool calls are only
// emitted once their arguments are complete.
type Event struct {
	Type     EventType
	Delta    string
	ToolCall *ToolCall
}

func textEvent(s string) Event      { return Event{Type: EventText, Delta: s} }
func reasoningEvent(s string) Event { return Event{Type: EventReasoning, Delta: s} }
func toolEvent(tc ToolCall) Event   { return Event{Type: EventToolCall, ToolCall: &tc} }

// StreamProvider is implemented by every backend the chat turn can use.
// Both channels are closed when streaming ends; at most one error is sent.
type StreamProvider interface {
	StreamChat(ctx context.Context, req Request) (<-chan Event, <-chan error)
}

// streamClient drops the whole-request timeout so a long reply is bounded
// by ctx alone. The shared client is left untouched.
func streamClient(c *http.Client) *http.Client {
	cp := *c
	cp.Timeout = 0
	return &cp
}

// send delivers ev unless ctx is done.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a stream into its text and tool calls.
func Collect(events <-chan Event, errs <-chan error) (string, []ToolCall, error) {
	var b strings.Builder
	var calls []ToolCall
	for ev := range events {
		switch ev.Type {
		case EventText:
			b.WriteString(ev.Delta)
		case EventToolCall:
			calls = append(calls, *ev.ToolCall)
		}
	}
	if err := <-errs; err != nil {
		return b.String(), calls, err
	}
	return b.String(), calls, nil
}
