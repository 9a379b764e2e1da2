package ai

import (
	"context"
	"strings"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkExtractor splits text that embeds <think>...</think> sections into
// reasoning and text. Tags may be split across deltas.
type thinkExtractor struct {
	buf     string
	inThink bool
}

// feed returns the events that are certain given the text seen so far.
func (x *thinkExtractor) feed(delta string) []Event {
	x.buf += delta
	var out []Event
	emit := func(s string) {
		if s == "" {
			return
		}
		if x.inThink {
			out = append(out, reasoningEvent(s))
		} else {
			out = append(out, textEvent(s))
		}
	}
	for {
		tag := thinkOpen
		if x.inThink {
			tag = thinkClose
		}
		if i := strings.Index(x.buf, tag); i >= 0 {
			emit(x.buf[:i])
			x.buf = x.buf[i+len(tag):]
			x.inThink = !x.inThink
			continue
		}
		keep := partialSuffix(x.buf, tag)
		emit(x.buf[:len(x.buf)-keep])
		x.buf = x.buf[len(x.buf)-keep:]
		return out
	}
}

func (x *thinkExtractor) flush() []Event {
	if x.buf == "" {
		return nil
	}
	s := x.buf
	x.buf = ""
	if x.inThink {
		return []Event{reasoningEvent(s)}
	}
	return []Event{textEvent(s)}
}

// partialSuffix is the length of the longest suffix of s that is a proper
// prefix of tag.
func partialSuffix(s, tag string) int {
	n := len(tag) - 1
	if n > len(s) {
		n = len(s)
	}
	for ; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}

// ReasoningProvider extracts <think> sections from an inner provider's text.
type ReasoningProvider struct {
	Inner Provider
}

func (p ReasoningProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	text, err := p.Inner.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	var x thinkExtractor
	var b strings.Builder
	for _, ev := range append(x.feed(text), x.flush()...) {
		if ev.Type == EventText {
			b.WriteString(ev.Delta)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (p ReasoningProvider) StreamChat(ctx context.Context, r Request) (<-chan Event, <-chan error) {
	sp, ok := p.Inner.(StreamProvider)
	if !ok {
		events := make(chan Event)
		errs := make(chan error, 1)
		errs <- errNoStreaming
		close(events)
		close(errs)
		return events, errs
	}

	in, inErrs := sp.StreamChat(ctx, r)
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		var x thinkExtractor
		for ev := range in {
			if ev.Type != EventText {
				if !send(ctx, events, ev) {
					return
				}
				continue
			}
			for _, out := range x.feed(ev.Delta) {
				if !send(ctx, events, out) {
					return
				}
			}
		}
		for _, out := range x.flush() {
			if !send(ctx, events, out) {
				return
			}
		}
		if err := <-inErrs; err != nil {
			errs <- err
		}
	}()

	return events, errs
}
