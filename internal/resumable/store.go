// Package resumable records the chunks of an in-flight chat turn so a client
// that lost its connection can reattach by stream id.
package resumable

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("resumable: stream not found")

// Store is written by exactly one turn per stream id and read by any number of
// reconnecting clients. Subscribe replays from the first chunk and follows the
// stream until it is closed or ctx ends.
type Store interface {
	Append(ctx context.Context, streamID string, chunk []byte) error
	Close(ctx context.Context, streamID string) error
	Subscribe(ctx context.Context, streamID string) (<-chan []byte, error)
}
