package resumable

import (
	"context"
	"sync"
	"time"
)

type memStream struct {
	chunks  [][]byte
	done    bool
	changed chan struct{}
	touched time.Time
}

// Memory keeps streams in process. Suitable for single instance deployments
// and tests.
type Memory struct {
	mu      sync.Mutex
	streams map[string]*memStream
	ttl     time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Memory{streams: make(map[string]*memStream), ttl: ttl}
}

func (m *Memory) stream(id string, create bool) *memStream {
	s, ok := m.streams[id]
	if !ok && create {
		s = &memStream{changed: make(chan struct{})}
		m.streams[id] = s
	}
	return s
}

func (m *Memory) evictLocked(now time.Time) {
	for id, s := range m.streams {
		if s.done && now.Sub(s.touched) > m.ttl {
			delete(m.streams, id)
		}
	}
}

func (m *Memory) Append(_ context.Context, streamID string, chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stream(streamID, true)
	cp := append([]byte(nil), chunk...)
	s.chunks = append(s.chunks, cp)
	s.touched = time.Now()
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

func (m *Memory) Close(_ context.Context, streamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.evictLocked(now)
	s := m.stream(streamID, true)
	if s.done {
		return nil
	}
	s.done = true
	s.touched = now
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, streamID string) (<-chan []byte, error) {
	m.mu.Lock()
	if m.stream(streamID, false) == nil {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	m.mu.Unlock()

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		next := 0
		for {
			m.mu.Lock()
			s := m.stream(streamID, false)
			if s == nil {
				m.mu.Unlock()
				return
			}
			pending := s.chunks[next:]
			done := s.done
			wait := s.changed
			m.mu.Unlock()

			for _, c := range pending {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
			next += len(pending)
			if done {
				return
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
