package resumable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan []byte) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(c))
		case <-timeout:
			t.Fatalf("subscription did not finish, got %v", out)
		}
	}
}

func TestMemory_ReplayAfterClose(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, "s1", []byte("a")))
	require.NoError(t, m.Append(ctx, "s1", []byte("b")))
	require.NoError(t, m.Close(ctx, "s1"))

	ch, err := m.Subscribe(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, collect(t, ch))
}

func TestMemory_FollowsLiveStream(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, "s2", []byte("first")))

	ch, err := m.Subscribe(ctx, "s2")
	require.NoError(t, err)

	go func() {
		_ = m.Append(ctx, "s2", []byte("second"))
		_ = m.Close(ctx, "s2")
	}()
	assert.Equal(t, []string{"first", "second"}, collect(t, ch))
}

func TestMemory_UnknownStream(t *testing.T) {
	m := NewMemory(time.Minute)
	_, err := m.Subscribe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
