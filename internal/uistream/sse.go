package uistream

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// DoneFrame terminates every stream.
var DoneFrame = []byte("data: [DONE]\n\n")

// Headers the client expects on a UI message stream response.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Vercel-AI-UI-Message-Stream", "v1")
}

// Encode renders c as a single SSE frame.
func Encode(c Chunk) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b)+8)
	out = append(out, "data: "...)
	out = append(out, b...)
	out = append(out, '\n', '\n')
	return out, nil
}

// SSEWriter writes frames to an HTTP response and flushes after each one.
// After the first write error it silently drops everything.
type SSEWriter struct {
	mu   sync.Mutex
	w    io.Writer
	f    http.Flusher
	gone bool
}

func NewSSEWriter(w io.Writer) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{w: w, f: f}
}

func (s *SSEWriter) Write(c Chunk) error {
	frame, err := Encode(c)
	if err != nil {
		return err
	}
	return s.WriteFrame(frame)
}

// WriteFrame writes an already encoded frame, as stored by a resumable store.
func (s *SSEWriter) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return nil
	}
	if _, err := s.w.Write(frame); err != nil {
		s.gone = true
		return err
	}
	if s.f != nil {
		s.f.Flush()
	}
	return nil
}

// Ping writes an SSE comment to keep intermediaries from closing the connection.
func (s *SSEWriter) Ping() error { return s.WriteFrame([]byte(": ping\n\n")) }

func (s *SSEWriter) Done() error { return s.WriteFrame(DoneFrame) }
