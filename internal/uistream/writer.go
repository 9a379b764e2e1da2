package uistream

import (
	"errors"
	"sync"
)

// Writer accepts chunks for one turn.
type Writer interface {
	Write(Chunk) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(Chunk) error

func (f WriterFunc) Write(c Chunk) error { return f(c) }

// Tee writes every chunk to all writers, serialising concurrent callers.
// A failing writer does not stop the others.
type Tee struct {
	mu      sync.Mutex
	writers []Writer
}

func NewTee(writers ...Writer) *Tee {
	out := make([]Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			out = append(out, w)
		}
	}
	return &Tee{writers: out}
}

func (t *Tee) Write(c Chunk) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, w := range t.writers {
		if err := w.Write(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pipe hands chunks from the generating goroutine to the goroutine that owns
// the HTTP response. After Detach every write is dropped, so generation keeps
// going when the client has gone away.
type Pipe struct {
	ch       chan Chunk
	detached chan struct{}
	once     sync.Once
}

func NewPipe(buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pipe{ch: make(chan Chunk, buffer), detached: make(chan struct{})}
}

func (p *Pipe) Write(c Chunk) error {
	select {
	case <-p.detached:
		return nil
	default:
	}
	select {
	case p.ch <- c:
	case <-p.detached:
	}
	return nil
}

// Chunks is closed by Close once the producer is finished.
func (p *Pipe) Chunks() <-chan Chunk { return p.ch }

// Close must be called by the producer after its last Write.
func (p *Pipe) Close() { close(p.ch) }

// Detach is called by the consumer when it stops reading.
func (p *Pipe) Detach() { p.once.Do(func() { close(p.detached) }) }
