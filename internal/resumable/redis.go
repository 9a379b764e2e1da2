package resumable

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	fieldChunk = "c"
	fieldDone  = "done"
)

// Redis stores every stream as a Redis Stream at "resumable:<id>".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	block  time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl, block: 5 * time.Second}
}

func key(streamID string) string { return "resumable:" + streamID }

func (r *Redis) add(ctx context.Context, streamID string, values map[string]any) error {
	k := key(streamID)
	pipe := r.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: k, Values: values})
	pipe.Expire(ctx, k, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Append(ctx context.Context, streamID string, chunk []byte) error {
	return r.add(ctx, streamID, map[string]any{fieldChunk: chunk})
}

func (r *Redis) Close(ctx context.Context, streamID string) error {
	return r.add(ctx, streamID, map[string]any{fieldDone: "1"})
}

func (r *Redis) Subscribe(ctx context.Context, streamID string) (<-chan []byte, error) {
	k := key(streamID)
	n, err := r.client.Exists(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		lastID := "0"
		for {
			res, err := r.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{k, lastID},
				Count:   128,
				Block:   r.block,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("stream_id", streamID).Msg("resumable xread failed")
				}
				return
			}
			for _, s := range res {
				for _, msg := range s.Messages {
					lastID = msg.ID
					if _, ok := msg.Values[fieldDone]; ok {
						return
					}
					v, ok := msg.Values[fieldChunk]
					if !ok {
						continue
					}
					var chunk []byte
					switch t := v.(type) {
					case string:
						chunk = []byte(t)
					case []byte:
						chunk = t
					default:
						continue
					}
					select {
					case out <- chunk:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}
